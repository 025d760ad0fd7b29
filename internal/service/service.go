package service

import (
	"context"
	"time"

	"booking-engine/internal/model"
	"booking-engine/internal/promotion"

	"github.com/google/uuid"
)

// Clock returns the current time. Services take one so tests can pin now.
type Clock func() time.Time

// SystemClock reads the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// EffectDispatcher delivers the side effects of a committed change.
type EffectDispatcher interface {
	Dispatch(ctx context.Context, effects []model.Effect)
}

// BookingService defines operations for the booking lifecycle.
type BookingService interface {
	// Create validates and stores a new pending booking with its first timer armed.
	Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)

	// Get retrieves a booking by reference.
	Get(ctx context.Context, reference string) (*model.Booking, error)

	// ListByOwner retrieves an owner's bookings, newest first.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Booking, error)

	Approve(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error)
	Reject(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error)
	Cancel(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error)
	Complete(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error)

	// AddNote appends an admin note.
	AddNote(ctx context.Context, reference string, req *model.NoteRequest) (*model.Booking, error)
}

// PaymentService records money received against bookings.
type PaymentService interface {
	// RecordPayment adds a payment and, when it settles a confirmed
	// booking, moves the booking to fully_paid in the same update.
	RecordPayment(ctx context.Context, reference string, req *model.PaymentRequest) (*model.Booking, error)
}

// ReconciliationService cancels bookings whose timer has elapsed.
type ReconciliationService interface {
	Sweep(ctx context.Context) (*SweepReport, error)
}

// PromotionService defines operations for promotion management and pricing.
type PromotionService interface {
	Create(ctx context.Context, req *model.PromotionRequest) (*model.Promotion, error)
	Update(ctx context.Context, id int64, req *model.PromotionRequest) (*model.Promotion, error)
	Get(ctx context.Context, id int64) (*model.Promotion, error)
	List(ctx context.Context, limit, offset int) ([]model.Promotion, error)

	// Quote prices an item against the promotions running now.
	Quote(ctx context.Context, req *model.QuoteRequest) (*model.Quote, error)

	// Import bulk loads promotion files and upserts them by title.
	Import(ctx context.Context, paths []string) (*promotion.ImportReport, error)
}

// RefundService defines the refund request workflow.
type RefundService interface {
	Submit(ctx context.Context, req *model.RefundSubmission) (*model.RefundRequest, error)
	Resolve(ctx context.Context, id uuid.UUID, req *model.RefundResolution) (*model.RefundRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error)
}
