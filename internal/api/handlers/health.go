package handlers

import (
	"context"
	"net/http"

	"github.com/live-neon/neon-soul-sub003/internal/buildconfig"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

type healthResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	info := buildconfig.Get()
	resp := healthResponse{Status: "ok", Version: info.Version, Commit: info.Commit}
	if err := h.store.Ping(r.Context()); err != nil {
		resp.Status = "error"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
