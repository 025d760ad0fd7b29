package handler

import (
	"context"
	"net/http"

	"booking-engine/internal/model"
	"booking-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CustomerActor is recorded on cancellations made through the public route.
const CustomerActor = "customer"

// BookingHandler handles booking and payment HTTP requests.
type BookingHandler struct {
	bookings service.BookingService
	payments service.PaymentService
	logger   zerolog.Logger
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(bookings service.BookingService, payments service.PaymentService, logger zerolog.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		payments: payments,
		logger:   logger.With().Str("handler", "booking").Logger(),
	}
}

// Create handles POST /api/bookings requests.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	b, err := h.bookings.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, b.View())
}

// Get handles GET /api/bookings/{reference} requests.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Get(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, b.View())
}

// ListByOwner handles GET /api/bookings?ownerId= requests.
func (h *BookingHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	bookings, err := h.bookings.ListByOwner(r.Context(), r.URL.Query().Get("ownerId"), limit, offset)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	views := make([]model.BookingView, 0, len(bookings))
	for i := range bookings {
		views = append(views, bookings[i].View())
	}
	writeJSON(w, http.StatusOK, views)
}

// RecordPayment handles POST /api/bookings/{reference}/payments requests.
func (h *BookingHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	b, err := h.payments.RecordPayment(r.Context(), chi.URLParam(r, "reference"), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, b.View())
}

// CustomerCancel handles POST /api/bookings/{reference}/cancel. The body is
// optional and the actor is always the customer.
func (h *BookingHandler) CustomerCancel(w http.ResponseWriter, r *http.Request) {
	req := model.StatusRequest{}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req, h.logger) {
		return
	}
	req.Actor = CustomerActor

	h.respond(w, r, h.bookings.Cancel, &req)
}

// Approve handles POST /api/admin/bookings/{reference}/approve.
func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.bookings.Approve)
}

// Reject handles POST /api/admin/bookings/{reference}/reject.
func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.bookings.Reject)
}

// Complete handles POST /api/admin/bookings/{reference}/complete.
func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.bookings.Complete)
}

// AdminCancel handles POST /api/admin/bookings/{reference}/cancel.
func (h *BookingHandler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.bookings.Cancel)
}

// AddNote handles POST /api/admin/bookings/{reference}/notes.
func (h *BookingHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req model.NoteRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	b, err := h.bookings.AddNote(r.Context(), chi.URLParam(r, "reference"), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, b.View())
}

type transitionFunc func(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error)

func (h *BookingHandler) adminTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	var req model.StatusRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	h.respond(w, r, fn, &req)
}

func (h *BookingHandler) respond(w http.ResponseWriter, r *http.Request, fn transitionFunc, req *model.StatusRequest) {
	b, err := fn(r.Context(), chi.URLParam(r, "reference"), req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, b.View())
}
