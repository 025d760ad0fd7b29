package repository

import (
	"context"
	"errors"
	"time"

	"booking-engine/internal/booking"
	"booking-engine/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrStalePrecondition means a conditional update matched no row because
	// the stored state no longer equals the expected pre-state.
	ErrStalePrecondition = errors.New("stale precondition")

	// ErrDuplicate means an insert violated a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
)

// ExpiryCursor is the position of the last row of a ListExpired page.
type ExpiryCursor struct {
	DeadlineAt time.Time
	ID         int64
}

// CursorAfter returns the cursor positioned on b.
func CursorAfter(b *model.Booking) *ExpiryCursor {
	return &ExpiryCursor{DeadlineAt: b.Deadline.At, ID: b.ID}
}

// BookingRepository defines the interface for booking data access operations.
// Get methods return (nil, nil) when nothing matches.
type BookingRepository interface {
	// Create inserts a booking with its initial payments and notes, setting b.ID.
	// A reference collision returns ErrDuplicate.
	Create(ctx context.Context, b *model.Booking) error

	// GetByReference retrieves a booking with its payments and notes.
	GetByReference(ctx context.Context, reference string) (*model.Booking, error)

	// ListByOwner retrieves an owner's bookings, newest first.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Booking, error)

	// ListExpired retrieves bookings whose active timer elapsed before now,
	// ordered by (deadline, id) and starting strictly after the cursor when
	// one is given. Payments and notes are not loaded.
	ListExpired(ctx context.Context, now time.Time, after *ExpiryCursor, limit int) ([]model.Booking, error)

	// ApplyChange commits a state machine change if the booking is still in
	// change.From (and, for expiries, still carries an elapsed timer of the
	// expected kind). Otherwise it returns ErrStalePrecondition.
	ApplyChange(ctx context.Context, bookingID int64, change *booking.Change) error

	// ApplyPayment records a payment if the booking is still in status with
	// amountPaid equal to paidBefore, optionally committing change in the
	// same transaction. Otherwise it returns ErrStalePrecondition.
	ApplyPayment(ctx context.Context, bookingID int64, status model.BookingStatus, paidBefore decimal.Decimal, payment *model.Payment, change *booking.Change) error

	// AppendNote adds an immutable note to a booking.
	AppendNote(ctx context.Context, bookingID int64, note *model.Note) error
}

// PromotionRepository defines the interface for promotion data access operations.
type PromotionRepository interface {
	// Create inserts a promotion, setting p.ID. A title collision returns ErrDuplicate.
	Create(ctx context.Context, p *model.Promotion) error

	// Update overwrites the editable fields of promotion p.ID.
	Update(ctx context.Context, p *model.Promotion) error

	// Upsert inserts or replaces the promotion with the same title.
	Upsert(ctx context.Context, p *model.Promotion) error

	// UpsertAll upserts a batch in one transaction.
	UpsertAll(ctx context.Context, promotions []model.Promotion) error

	// GetByID retrieves a promotion.
	GetByID(ctx context.Context, id int64) (*model.Promotion, error)

	// List retrieves promotions ordered by id.
	List(ctx context.Context, limit, offset int) ([]model.Promotion, error)

	// ListActive retrieves every promotion with isActive set.
	ListActive(ctx context.Context) ([]model.Promotion, error)
}

// RefundRequestRepository defines the interface for refund request data access.
type RefundRequestRepository interface {
	// Create inserts a refund request. A second request for the same
	// booking returns ErrDuplicate.
	Create(ctx context.Context, r *model.RefundRequest) error

	// GetByID retrieves a refund request with its notes.
	GetByID(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error)

	// GetByBookingReference retrieves the refund request for a booking.
	GetByBookingReference(ctx context.Context, reference string) (*model.RefundRequest, error)

	// UpdateStatus moves the request from one status to another and appends
	// note, or returns ErrStalePrecondition if the status has changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.RefundStatus, note *model.Note, at time.Time) error
}

// ItemRepository defines the catalog lookups needed at booking time.
type ItemRepository interface {
	// GetByID retrieves a catalog item.
	GetByID(ctx context.Context, id string) (*model.CatalogItem, error)

	// GetAvailability reports whether the item exists with the given type
	// and is open for booking.
	GetAvailability(ctx context.Context, id string, itemType model.ItemType) (bool, error)

	// Upsert inserts or replaces a catalog item.
	Upsert(ctx context.Context, item *model.CatalogItem) error
}
