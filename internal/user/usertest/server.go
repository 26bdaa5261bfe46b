// Package usertest runs an in-memory stand-in for the remote user service.
package usertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
)

// Server serves /users with limit/skip paging plus the single-user routes.
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	users []entity.User
	calls int
}

// Users builds n sequential users starting at id 1.
func Users(n int) []entity.User {
	out := make([]entity.User, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, entity.User{
			ID:       int64(i),
			Username: fmt.Sprintf("user%d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
			Address:  entity.Address{City: "Springfield", Country: "US"},
		})
	}
	return out
}

func NewServer(users []entity.User) *Server {
	s := &Server{users: append([]entity.User(nil), users...)}
	r := mux.NewRouter()
	r.HandleFunc("/users", s.list).Methods(http.MethodGet)
	r.HandleFunc("/users/add", s.add).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}", s.get).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}", s.update).Methods(http.MethodPut)
	r.HandleFunc("/users/{id:[0-9]+}", s.remove).Methods(http.MethodDelete)
	s.Server = httptest.NewServer(r)
	return s
}

// Calls reports how many requests reached the server.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	start := min(skip, len(s.users))
	end := min(skip+limit, len(s.users))
	writeJSON(w, http.StatusOK, map[string]any{
		"users": s.users[start:end],
		"total": len(s.users),
		"skip":  skip,
		"limit": limit,
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	i, ok := s.find(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.users[i])
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var data entity.CreateUserData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var next int64 = 1
	for _, u := range s.users {
		next = max(next, u.ID+1)
	}
	u := entity.User{ID: next, Username: data.Username, Email: data.Email, Phone: data.Phone}
	if data.Address != nil {
		u.Address = *data.Address
	}
	s.users = append(s.users, u)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var data entity.CreateUserData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	i, ok := s.find(w, r)
	if !ok {
		return
	}
	u := &s.users[i]
	if data.Username != "" {
		u.Username = data.Username
	}
	if data.Email != "" {
		u.Email = data.Email
	}
	if data.Phone != "" {
		u.Phone = data.Phone
	}
	if data.Address != nil {
		u.Address = *data.Address
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	i, ok := s.find(w, r)
	if !ok {
		return
	}
	u := s.users[i]
	s.users = append(s.users[:i], s.users[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "isDeleted": true})
}

// find must be called with s.mu held.
func (s *Server) find(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := mux.Vars(r)["id"]
	id, _ := strconv.ParseInt(raw, 10, 64)
	for i, u := range s.users {
		if u.ID == id {
			return i, true
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("User with id '%s' not found", raw)})
	return 0, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
