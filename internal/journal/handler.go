package journal

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Handler serves the journal over HTTP.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List returns the newest entries; ?limit= caps the count.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Warnw("journal list failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
