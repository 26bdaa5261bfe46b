package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/utilities"
)

const (
	DefaultBaseURL = "https://dummyjson.com"
	maxBodyBytes   = 4 << 20
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps outgoing requests per second; zero disables the limiter.
	RateLimit float64
	Burst     int
}

// UserRepo talks to the remote user service over HTTP. It performs no retries.
type UserRepo struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// NewUserRepo builds a repo. A nil client gets a default one using cfg.Timeout,
// a nil logger is replaced by a no-op logger.
func NewUserRepo(cfg Config, client *http.Client, logger *zap.SugaredLogger) *UserRepo {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &UserRepo{baseURL: base, client: client, logger: logger}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return r
}

type pagePayload struct {
	Users *[]entity.User `json:"users"`
	Total *int           `json:"total"`
}

// FetchPage lists users with limit/skip paging.
func (r *UserRepo) FetchPage(ctx context.Context, limit, offset int) (*entity.Page, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("fetch page: invalid limit %d / offset %d", limit, offset)
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(offset))

	var payload pagePayload
	status, err := r.do(ctx, "list", http.MethodGet, "/users?"+q.Encode(), nil, &payload, "Failed to fetch users")
	if err != nil {
		return nil, err
	}
	if payload.Users == nil || payload.Total == nil || *payload.Total < 0 {
		return nil, &RequestError{Op: "list", Status: status, Message: "malformed page payload"}
	}
	for _, u := range *payload.Users {
		if u.ID <= 0 {
			return nil, &RequestError{Op: "list", Status: status, Message: "malformed page payload: user without id"}
		}
	}
	return &entity.Page{Users: *payload.Users, Total: *payload.Total}, nil
}

// FetchByID returns a single user.
func (r *UserRepo) FetchByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.userCall(ctx, "get", http.MethodGet, userPath(id), nil,
		fmt.Sprintf("Failed to fetch user with id %d", id))
}

// Create adds a user and returns the record the service assigned.
func (r *UserRepo) Create(ctx context.Context, data entity.CreateUserData) (*entity.User, error) {
	return r.userCall(ctx, "create", http.MethodPost, "/users/add", data, "Failed to create user")
}

// Update replaces the given fields of a user.
func (r *UserRepo) Update(ctx context.Context, id int64, data entity.CreateUserData) (*entity.User, error) {
	return r.userCall(ctx, "update", http.MethodPut, userPath(id), data,
		fmt.Sprintf("Failed to update user with id %d", id))
}

// Remove deletes a user. Any response body is ignored.
func (r *UserRepo) Remove(ctx context.Context, id int64) error {
	_, err := r.do(ctx, "delete", http.MethodDelete, userPath(id), nil, nil,
		fmt.Sprintf("Failed to delete user with id %d", id))
	return err
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}

func (r *UserRepo) userCall(ctx context.Context, op, method, path string, body any, failMsg string) (*entity.User, error) {
	var u entity.User
	status, err := r.do(ctx, op, method, path, body, &u, failMsg)
	if err != nil {
		return nil, err
	}
	if u.ID <= 0 {
		return nil, &RequestError{Op: op, Status: status, Message: "malformed user payload"}
	}
	return &u, nil
}

// do issues one request and decodes a success body into out (when non-nil).
// It returns the response status alongside any error.
func (r *UserRepo) do(ctx context.Context, op, method, path string, body any, out any, failMsg string) (status int, err error) {
	start := time.Now()
	reqID := utilities.NewSnowflakeID()
	defer func() {
		metrics.ObserveRemote(op, start, err)
		r.logger.Debugw("remote call",
			"op", op,
			"method", method,
			"path", path,
			"request_id", reqID,
			"status", status,
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
			"err", err,
		)
	}()

	if r.limiter != nil {
		if werr := r.limiter.Wait(ctx); werr != nil {
			return 0, &TransportError{Op: op, Err: werr}
		}
	}

	var reader io.Reader
	if body != nil {
		b, merr := json.Marshal(body)
		if merr != nil {
			return 0, fmt.Errorf("%s: encode body: %w", op, merr)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("%s: new request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := r.client.Do(req)
	if err != nil {
		return 0, &TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()
	status = res.StatusCode

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return status, &TransportError{Op: op, Err: err}
	}

	if status < 200 || status >= 300 {
		return status, &RequestError{Op: op, Status: status, Message: remoteMessage(raw, failMsg)}
	}
	if out == nil {
		return status, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return status, &RequestError{Op: op, Status: status, Message: "malformed response: " + err.Error()}
	}
	return status, nil
}

// remoteMessage prefers the service's own {"message": "..."} text.
func remoteMessage(raw []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.Message) != "" {
		return body.Message
	}
	return fallback
}
