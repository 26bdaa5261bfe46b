package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/repo"
)

// Handler turns HTTP requests into list intents and mutations. Intents
// answer with the resulting snapshot.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the user routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/users/state", h.State).Methods(http.MethodGet)
	r.HandleFunc("/users/mode", h.SwitchMode).Methods(http.MethodPost)
	r.HandleFunc("/users/more", h.LoadMore).Methods(http.MethodPost)
	r.HandleFunc("/users/page/{n:-?[0-9]+}", h.GoToPage).Methods(http.MethodPost)
	r.HandleFunc("/users/refresh", h.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/users/auto-refresh/toggle", h.ToggleAutoRefresh).Methods(http.MethodPost)
	r.HandleFunc("/users/auto-refresh/interval", h.SetRefreshInterval).Methods(http.MethodPut)
	r.HandleFunc("/users", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/users/{id:[0-9]+}", h.Remove).Methods(http.MethodDelete)
	r.HandleFunc("/notice", h.DismissNotice).Methods(http.MethodDelete)
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.List().Snapshot())
}

// ModeRequest selects the retrieval mode.
type ModeRequest struct {
	Mode Mode `json:"mode"`
}

func (h *Handler) SwitchMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid mode payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	h.intent(w, h.svc.List().SwitchMode(r.Context(), req.Mode))
}

func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	h.intent(w, h.svc.List().LoadMore(r.Context()))
}

func (h *Handler) GoToPage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page"})
		return
	}
	h.intent(w, h.svc.List().GoToPage(r.Context(), n))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.intent(w, h.svc.List().Refresh(r.Context()))
}

func (h *Handler) ToggleAutoRefresh(w http.ResponseWriter, r *http.Request) {
	h.svc.List().ToggleAutoRefresh()
	h.intent(w, nil)
}

// IntervalRequest sets the auto-refresh countdown length.
type IntervalRequest struct {
	Seconds int `json:"seconds"`
}

func (h *Handler) SetRefreshInterval(w http.ResponseWriter, r *http.Request) {
	var req IntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid interval payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	h.intent(w, h.svc.List().SetRefreshInterval(req.Seconds))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req entity.CreateUserData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid create payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	u, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req entity.CreateUserData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid update payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	u, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	h.intent(w, h.svc.Remove(r.Context(), id))
}

func (h *Handler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	h.svc.DismissNotice()
	h.intent(w, nil)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) intent(w http.ResponseWriter, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.svc.List().Snapshot())
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	var re *userrepo.RequestError
	switch {
	case errors.As(err, &ve):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": ErrValidationFailed.Error(), "fields": ve.Fields})
	case errors.As(err, &re):
		h.logger.Debugw("remote request failed", "err", err)
		h.writeJSON(w, http.StatusBadGateway, map[string]any{"error": re.Message, "status": re.Status})
	case errors.Is(err, userrepo.ErrTransportFailed):
		h.logger.Warnw("remote unreachable", "err", err)
		h.writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "remote user service unreachable"})
	case errors.Is(err, ErrMutationPending), errors.Is(err, ErrWrongMode):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidInterval), errors.Is(err, ErrInvalidMode):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNotMounted):
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		h.logger.Warnw("request failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
