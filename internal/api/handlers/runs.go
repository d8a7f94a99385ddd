package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
	"github.com/live-neon/neon-soul-sub003/internal/service"
)

// maxRunBody caps the size of a run request body.
const maxRunBody = 8 << 20

// Runner is the synthesis entry point the handler drives.
type Runner interface {
	Run(ctx context.Context, req service.RunRequest) (*domain.RunResult, error)
}

type RunHandler struct {
	runner Runner
	logger *zap.Logger
}

func NewRunHandler(runner Runner, logger *zap.Logger) *RunHandler {
	return &RunHandler{runner: runner, logger: logger}
}

type runErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// Create runs one synthesis cycle over the posted signals.
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.runner.Run(r.Context(), req)
	if err != nil {
		var runErr *service.FatalRunError
		switch {
		case errors.Is(err, service.ErrNoSignals), errors.Is(err, service.ErrInvalidSignal):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &runErr):
			writeJSON(w, http.StatusBadGateway, runErrorResponse{Error: runErr.Err.Error(), Stage: runErr.Stage})
		default:
			h.logger.Error("synthesis run failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "synthesis run failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
