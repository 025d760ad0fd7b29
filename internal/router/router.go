package router

import (
	"net/http"
	"time"

	"booking-engine/internal/handler"
	"booking-engine/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Bookings   *handler.BookingHandler
	Promotions *handler.PromotionHandler
	Refunds    *handler.RefundHandler
	Reconcile  *handler.ReconcileHandler
}

// New creates a new HTTP router with all routes and middleware configured.
// Routes under /api/admin require the API key.
func New(h Handlers, apiKey string, requestTimeout time.Duration, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	if requestTimeout > 0 {
		r.Use(chimw.Timeout(requestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.Bookings.Create)
			r.Get("/", h.Bookings.ListByOwner)
			r.Get("/{reference}", h.Bookings.Get)
			r.Post("/{reference}/payments", h.Bookings.RecordPayment)
			r.Post("/{reference}/cancel", h.Bookings.CustomerCancel)
		})
		r.Post("/quotes", h.Promotions.Quote)
		r.Post("/refund-requests", h.Refunds.Submit)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(apiKey, logger))

			r.Route("/bookings/{reference}", func(r chi.Router) {
				r.Post("/approve", h.Bookings.Approve)
				r.Post("/reject", h.Bookings.Reject)
				r.Post("/complete", h.Bookings.Complete)
				r.Post("/cancel", h.Bookings.AdminCancel)
				r.Post("/notes", h.Bookings.AddNote)
			})

			r.Route("/promotions", func(r chi.Router) {
				r.Get("/", h.Promotions.List)
				r.Post("/", h.Promotions.Create)
				r.Get("/{id}", h.Promotions.Get)
				r.Put("/{id}", h.Promotions.Update)
			})

			r.Get("/refund-requests/{id}", h.Refunds.Get)
			r.Post("/refund-requests/{id}/resolve", h.Refunds.Resolve)

			if h.Reconcile != nil {
				r.Post("/reconcile", h.Reconcile.Sweep)
			}
		})
	})

	return r
}
