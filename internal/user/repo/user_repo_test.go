package repo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
)

func newRepo(t *testing.T, h http.HandlerFunc) *UserRepo {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewUserRepo(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}, nil, nil)
}

func TestFetchPage(t *testing.T) {
	r := newRepo(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/users", req.URL.Path)
		assert.Equal(t, "10", req.URL.Query().Get("limit"))
		assert.Equal(t, "20", req.URL.Query().Get("skip"))
		assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"users":[{"id":21,"username":"a","email":"a@x.io","address":{"city":"Phoenix","postalCode":"85001"}},{"id":22,"username":"b"}],"total":208,"skip":20,"limit":10}`)
	})

	page, err := r.FetchPage(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, 208, page.Total)
	require.Len(t, page.Users, 2)
	assert.Equal(t, int64(21), page.Users[0].ID)
	assert.Equal(t, "Phoenix", page.Users[0].Address.City)
	assert.Equal(t, "85001", page.Users[0].Address.PostalCode)
}

func TestFetchPageEmptyIsValid(t *testing.T) {
	r := newRepo(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, `{"users":[],"total":0}`)
	})
	page, err := r.FetchPage(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Len())
}

func TestFetchPageMalformed(t *testing.T) {
	cases := map[string]string{
		"missing users": `{"total":3}`,
		"missing total": `{"users":[]}`,
		"negative":      `{"users":[],"total":-1}`,
		"no id":         `{"users":[{"username":"x"}],"total":1}`,
		"not json":      `<html>`,
		"wrong type":    `{"users":"nope","total":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			r := newRepo(t, func(w http.ResponseWriter, req *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			_, err := r.FetchPage(context.Background(), 10, 0)
			require.ErrorIs(t, err, ErrRequestFailed)
			var re *RequestError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, http.StatusOK, re.Status)
		})
	}
}

func TestNonSuccessStatusUsesRemoteMessage(t *testing.T) {
	r := newRepo(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"User with id '999' not found"}`)
	})
	_, err := r.FetchByID(context.Background(), 999)
	var re *RequestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusNotFound, re.Status)
	assert.Equal(t, "User with id '999' not found", re.Message)
	assert.False(t, errors.Is(err, ErrTransportFailed))
}

func TestNonSuccessStatusFallbackMessage(t *testing.T) {
	r := newRepo(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	err := r.Remove(context.Background(), 7)
	var re *RequestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "Failed to delete user with id 7", re.Message)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewUserRepo(Config{BaseURL: url, Timeout: time.Second}, nil, nil)
	_, err := r.FetchPage(context.Background(), 10, 0)
	require.ErrorIs(t, err, ErrTransportFailed)
	assert.False(t, errors.Is(err, ErrRequestFailed))
}

func TestCancelledContextIsTransportFailure(t *testing.T) {
	r := newRepo(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, `{"users":[],"total":0}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.FetchPage(ctx, 10, 0)
	assert.ErrorIs(t, err, ErrTransportFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreatePostsJSON(t *testing.T) {
	r := newRepo(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/users/add", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		var in entity.CreateUserData
		require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
		assert.Equal(t, "neo", in.Username)
		require.NotNil(t, in.Address)
		assert.Equal(t, "Zion", in.Address.City)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(entity.User{ID: 209, Username: in.Username, Email: in.Email})
	})

	u, err := r.Create(context.Background(), entity.CreateUserData{
		Username: "neo",
		Email:    "neo@zion.io",
		Address:  &entity.Address{City: "Zion"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(209), u.ID)
}

func TestUpdatePutsPartialJSON(t *testing.T) {
	r := newRepo(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/users/5", req.URL.Path)
		var raw map[string]any
		require.NoError(t, json.NewDecoder(req.Body).Decode(&raw))
		assert.Equal(t, "x@y.io", raw["email"])
		_, hasAddr := raw["address"]
		assert.False(t, hasAddr)
		_, _ = io.WriteString(w, `{"id":5,"username":"u5","email":"x@y.io"}`)
	})
	u, err := r.Update(context.Background(), 5, entity.CreateUserData{Username: "u5", Email: "x@y.io"})
	require.NoError(t, err)
	assert.Equal(t, "x@y.io", u.Email)
}

func TestRemoveIgnoresBody(t *testing.T) {
	r := newRepo(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodDelete, req.Method)
		assert.Equal(t, "/users/7", req.URL.Path)
		_, _ = io.WriteString(w, `{"id":7,"isDeleted":true}`)
	})
	assert.NoError(t, r.Remove(context.Background(), 7))
}

func TestInvalidPagingArguments(t *testing.T) {
	r := NewUserRepo(Config{}, nil, nil)
	_, err := r.FetchPage(context.Background(), 0, 0)
	assert.Error(t, err)
	_, err = r.FetchPage(context.Background(), 10, -1)
	assert.Error(t, err)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls++
		_, _ = io.WriteString(w, `{"users":[],"total":0}`)
	}))
	defer srv.Close()

	r := NewUserRepo(Config{BaseURL: srv.URL, RateLimit: 0.001, Burst: 1}, nil, nil)
	_, err := r.FetchPage(context.Background(), 10, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.FetchPage(ctx, 10, 0)
	assert.ErrorIs(t, err, ErrTransportFailed)
	assert.Equal(t, 1, calls)
}
