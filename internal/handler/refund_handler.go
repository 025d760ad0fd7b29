package handler

import (
	"net/http"

	"booking-engine/internal/model"
	"booking-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RefundHandler handles refund request HTTP requests.
type RefundHandler struct {
	service service.RefundService
	logger  zerolog.Logger
}

// NewRefundHandler creates a new refund request handler.
func NewRefundHandler(service service.RefundService, logger zerolog.Logger) *RefundHandler {
	return &RefundHandler{
		service: service,
		logger:  logger.With().Str("handler", "refund").Logger(),
	}
}

// Submit handles POST /api/refund-requests requests.
func (h *RefundHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.RefundSubmission
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	rr, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, rr)
}

// Get handles GET /api/admin/refund-requests/{id} requests.
func (h *RefundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	rr, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

// Resolve handles POST /api/admin/refund-requests/{id}/resolve requests.
func (h *RefundHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	var req model.RefundResolution
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	rr, err := h.service.Resolve(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

func (h *RefundHandler) requestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid refund request ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
