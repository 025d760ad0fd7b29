package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusRejected  BookingStatus = "rejected"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	StatusFullyPaid BookingStatus = "fully_paid"
)

// IsTerminal reports whether no further transition can leave the status.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// PaymentOption is how the customer chose to settle the total.
type PaymentOption string

const (
	PaymentFull        PaymentOption = "full"
	PaymentDownpayment PaymentOption = "downpayment"
)

// DeadlineKind tags which timer, if any, governs a booking.
type DeadlineKind string

const (
	DeadlineNone                      DeadlineKind = ""
	DeadlineAwaitingPayment           DeadlineKind = "awaiting_payment"
	DeadlineAwaitingBalance           DeadlineKind = "awaiting_balance"
	DeadlineAwaitingAdminConfirmation DeadlineKind = "awaiting_admin_confirmation"
)

// Deadline is the single pending timer of a booking. A booking can only
// ever carry one, so the three legacy timestamp fields are projections of it.
type Deadline struct {
	Kind DeadlineKind `json:"kind,omitempty"`
	At   time.Time    `json:"at,omitempty"`
}

// NoDeadline returns the cleared timer.
func NoDeadline() Deadline { return Deadline{} }

// AwaitingPayment is the short initial payment window for cars and tours.
func AwaitingPayment(at time.Time) Deadline {
	return Deadline{Kind: DeadlineAwaitingPayment, At: at.UTC()}
}

// AwaitingBalance is the window to settle a downpayment balance.
func AwaitingBalance(at time.Time) Deadline {
	return Deadline{Kind: DeadlineAwaitingBalance, At: at.UTC()}
}

// AwaitingAdminConfirmation is the window for staff to review a paid transport booking.
func AwaitingAdminConfirmation(at time.Time) Deadline {
	return Deadline{Kind: DeadlineAwaitingAdminConfirmation, At: at.UTC()}
}

// IsSet reports whether a timer is active.
func (d Deadline) IsSet() bool { return d.Kind != DeadlineNone }

// ElapsedAt reports whether the timer fired strictly before now.
func (d Deadline) ElapsedAt(now time.Time) bool {
	return d.IsSet() && d.At.Before(now)
}

func (d Deadline) timeIf(kind DeadlineKind) *time.Time {
	if d.Kind != kind {
		return nil
	}
	t := d.At
	return &t
}

// Payment is a single recorded payment against a booking.
type Payment struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	PaymentReference string          `json:"paymentReference" db:"payment_reference"`
	ManualReference  string          `json:"manualReference,omitempty" db:"manual_reference"`
	ProofRef         string          `json:"proofRef,omitempty" db:"proof_ref"`
	PaidAt           time.Time       `json:"paidAt" db:"paid_at"`
}

// Note is an immutable admin or system annotation.
type Note struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Text       string    `json:"text" db:"text"`
	Author     string    `json:"author" db:"author"`
	Attachment string    `json:"attachment,omitempty" db:"attachment"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// SystemAuthor is the author recorded on notes written by the reconciliation sweep.
const SystemAuthor = "system"

// NewNote builds a note stamped at now.
func NewNote(text, author, attachment string, now time.Time) *Note {
	return &Note{
		ID:         uuid.New(),
		Text:       text,
		Author:     author,
		Attachment: attachment,
		CreatedAt:  now.UTC(),
	}
}

// Customer identifies who made the booking.
type Customer struct {
	OwnerID string `json:"ownerId,omitempty" db:"owner_id"`
	Name    string `json:"name" db:"customer_name"`
	Email   string `json:"email" db:"customer_email"`
	Phone   string `json:"phone,omitempty" db:"customer_phone"`
}

// Booking is a reservation of a catalog item.
type Booking struct {
	ID              int64            `json:"-" db:"id"`
	Reference       string           `json:"reference" db:"reference"`
	ItemType        ItemType         `json:"itemType" db:"item_type"`
	ItemID          string           `json:"itemId" db:"item_id"`
	ItemName        string           `json:"itemName" db:"item_name"`
	Customer        Customer         `json:"customer"`
	StartDate       time.Time        `json:"startDate" db:"start_date"`
	EndDate         time.Time        `json:"endDate" db:"end_date"`
	NumberOfDays    int              `json:"numberOfDays" db:"number_of_days"`
	TotalPrice      decimal.Decimal  `json:"totalPrice" db:"total_price"`
	AmountPaid      decimal.Decimal  `json:"amountPaid" db:"amount_paid"`
	PaymentOption   PaymentOption    `json:"paymentOption" db:"payment_option"`
	OriginalPrice   *decimal.Decimal `json:"originalPrice,omitempty" db:"original_price"`
	DiscountApplied *decimal.Decimal `json:"discountApplied,omitempty" db:"discount_applied"`
	PromotionTitle  string           `json:"promotionTitle,omitempty" db:"promotion_title"`
	Status          BookingStatus    `json:"status" db:"status"`
	Deadline        Deadline         `json:"deadline"`
	Payments        []Payment        `json:"payments"`
	Notes           []Note           `json:"notes"`
	CreatedAt       time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time        `json:"updatedAt" db:"updated_at"`
}

// PendingExpiresAt is set only while awaiting the initial car/tour payment.
func (b *Booking) PendingExpiresAt() *time.Time {
	return b.Deadline.timeIf(DeadlineAwaitingPayment)
}

// PaymentDueDate is set only while a downpayment balance is outstanding.
func (b *Booking) PaymentDueDate() *time.Time {
	return b.Deadline.timeIf(DeadlineAwaitingBalance)
}

// AdminConfirmationDueDate is set only while a paid transport booking awaits staff review.
func (b *Booking) AdminConfirmationDueDate() *time.Time {
	return b.Deadline.timeIf(DeadlineAwaitingAdminConfirmation)
}

// Balance returns the unpaid remainder, never negative.
func (b *Booking) Balance() decimal.Decimal {
	remaining := b.TotalPrice.Sub(b.AmountPaid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// BookingView is the JSON shape returned to clients, exposing the
// deadline as the three timestamp fields callers expect.
type BookingView struct {
	*Booking
	PendingExpiresAt         *time.Time `json:"pendingExpiresAt"`
	PaymentDueDate           *time.Time `json:"paymentDueDate"`
	AdminConfirmationDueDate *time.Time `json:"adminConfirmationDueDate"`
}

// View wraps b for serialisation.
func (b *Booking) View() BookingView {
	return BookingView{
		Booking:                  b,
		PendingExpiresAt:         b.PendingExpiresAt(),
		PaymentDueDate:           b.PaymentDueDate(),
		AdminConfirmationDueDate: b.AdminConfirmationDueDate(),
	}
}

// CreateBookingRequest is the payload for creating a booking. Prices are
// quoted beforehand and arrive already discounted.
type CreateBookingRequest struct {
	ItemType        ItemType         `json:"itemType" validate:"required,oneof=car tour transport"`
	ItemID          string           `json:"itemId" validate:"required"`
	ItemName        string           `json:"itemName" validate:"required"`
	OwnerID         string           `json:"ownerId"`
	CustomerName    string           `json:"customerName" validate:"required"`
	CustomerEmail   string           `json:"customerEmail" validate:"required,email"`
	CustomerPhone   string           `json:"customerPhone"`
	StartDate       *time.Time       `json:"startDate" validate:"required"`
	EndDate         *time.Time       `json:"endDate"`
	TotalPrice      decimal.Decimal  `json:"totalPrice"`
	PaymentOption   PaymentOption    `json:"paymentOption" validate:"required,oneof=full downpayment"`
	OriginalPrice   *decimal.Decimal `json:"originalPrice"`
	DiscountApplied *decimal.Decimal `json:"discountApplied"`
	PromotionTitle  string           `json:"promotionTitle"`
	InitialPayment  *PaymentRequest  `json:"initialPayment"`
}

// PaymentRequest is the payload for recording a payment.
type PaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	ProofRef        string          `json:"proofRef" validate:"required"`
	ManualReference string          `json:"manualReference"`
}

// StatusRequest carries the actor and optional reason for a status change.
type StatusRequest struct {
	Actor  string `json:"actor" validate:"required"`
	Reason string `json:"reason"`
}

// NoteRequest is the payload for appending a note.
type NoteRequest struct {
	Text       string `json:"text" validate:"required"`
	Author     string `json:"author" validate:"required"`
	Attachment string `json:"attachment"`
}
