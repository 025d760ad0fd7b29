package handler

import (
	"context"
	"errors"
	"net/http"

	"booking-engine/internal/model"
	"booking-engine/internal/reconcile"
	"booking-engine/internal/service"

	"github.com/rs/zerolog"
)

// SweepRunner runs one sweep under the same lock as the scheduled ticks.
type SweepRunner interface {
	RunOnce(ctx context.Context) (*service.SweepReport, error)
}

// ReconcileHandler exposes a manual expiry sweep to admins.
type ReconcileHandler struct {
	runner SweepRunner
	logger zerolog.Logger
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(runner SweepRunner, logger zerolog.Logger) *ReconcileHandler {
	return &ReconcileHandler{
		runner: runner,
		logger: logger.With().Str("handler", "reconcile").Logger(),
	}
}

// Sweep handles POST /api/admin/reconcile requests.
func (h *ReconcileHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, reconcile.ErrLockHeld) {
			writeError(w, http.StatusConflict, model.ErrCodeSweepInProgress, "another sweep is already running", h.logger)
			return
		}
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
