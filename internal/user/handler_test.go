package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userrepo "github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/repo"
)

func newTestRouter(t *testing.T, f *fakeRemote, mode Mode) (*mux.Router, *UserService) {
	t.Helper()
	svc, _, _ := newService(t, f, mode)
	r := mux.NewRouter()
	NewHandler(svc, nil).Register(r)
	return r, svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) Snapshot {
	t.Helper()
	var s Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

func TestHandlerIntents(t *testing.T) {
	r, _ := newTestRouter(t, newFakeRemote(seedRange(1, 42)), ModeIncremental)

	rec := do(t, r, http.MethodGet, "/users/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 10, decodeSnapshot(t, rec).Cursor)

	rec = do(t, r, http.MethodPost, "/users/more", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, decodeSnapshot(t, rec).Cursor)

	rec = do(t, r, http.MethodPost, "/users/page/2", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/users/mode", `{"mode":"paged"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ModePaged, decodeSnapshot(t, rec).Mode)

	rec = do(t, r, http.MethodPost, "/users/page/9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	s := decodeSnapshot(t, rec)
	assert.Equal(t, 4, s.PageIndex)
	assert.Equal(t, []int64{41, 42}, ids(s.Users))

	rec = do(t, r, http.MethodPost, "/users/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodPost, "/users/mode", `{"mode":"grid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRefreshPolicy(t *testing.T) {
	r, svc := newTestRouter(t, newFakeRemote(seedRange(1, 5)), ModeIncremental)

	rec := do(t, r, http.MethodPost, "/users/auto-refresh/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeSnapshot(t, rec).Refresh.Enabled)

	rec = do(t, r, http.MethodPut, "/users/auto-refresh/interval", `{"seconds":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, decodeSnapshot(t, rec).Refresh.IntervalSeconds)

	rec = do(t, r, http.MethodPut, "/users/auto-refresh/interval", `{"seconds":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 30, svc.List().Policy().IntervalSeconds)
}

func TestHandlerMutations(t *testing.T) {
	f := newFakeRemote(seed(5, 7, 9))
	r, _ := newTestRouter(t, f, ModeIncremental)

	rec := do(t, r, http.MethodGet, "/users/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"user7"`)

	rec = do(t, r, http.MethodPost, "/users", `{"username":"","email":"bad"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var verr struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verr))
	assert.Equal(t, "Name is required", verr.Fields["username"])
	assert.Equal(t, "Email is invalid", verr.Fields["email"])

	rec = do(t, r, http.MethodPost, "/users", `{"username":"neo","email":"neo@zion.io"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":10`)

	rec = do(t, r, http.MethodPut, "/users/9", `{"username":"nine","email":"nine@x.io"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodDelete, "/users/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	s := decodeSnapshot(t, rec)
	assert.NotContains(t, ids(s.Users), int64(7))
	require.NotNil(t, s.Notice)
	assert.Equal(t, "User deleted successfully!", s.Notice.Message)

	rec = do(t, r, http.MethodDelete, "/notice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeSnapshot(t, rec).Notice)
}

func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"request", &userrepo.RequestError{Op: "delete", Status: 404, Message: "User with id '7' not found"}, http.StatusBadGateway},
		{"transport", &userrepo.TransportError{Op: "delete", Err: errors.New("dial tcp: refused")}, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeRemote(seed(5, 7, 9))
			r, _ := newTestRouter(t, f, ModeIncremental)
			f.mutateErr = tc.err

			rec := do(t, r, http.MethodDelete, "/users/7", "")
			assert.Equal(t, tc.code, rec.Code)
		})
	}

	f := newFakeRemote(seed(5, 7, 9))
	r, _ := newTestRouter(t, f, ModeIncremental)
	f.mutateErr = &userrepo.RequestError{Op: "delete", Status: 404, Message: "User with id '7' not found"}
	rec := do(t, r, http.MethodDelete, "/users/7", "")
	var body struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "User with id '7' not found", body.Error)
	assert.Equal(t, 404, body.Status)
}

func TestHandlerNotMounted(t *testing.T) {
	svc := NewUserService(newFakeRemote(nil), nil, nil, nil)
	r := mux.NewRouter()
	NewHandler(svc, nil).Register(r)

	rec := do(t, r, http.MethodPost, "/users/more", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, r, http.MethodGet, "/users/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeSnapshot(t, rec).Mounted)
}
