package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundTier is the share of the total a customer gets back.
type RefundTier string

const (
	RefundFull RefundTier = "full"
	RefundHalf RefundTier = "half"
	RefundNone RefundTier = "none"
)

// RefundStatus is the lifecycle state of a refund request.
type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundApproved  RefundStatus = "approved"
	RefundDeclined  RefundStatus = "declined"
	RefundConfirmed RefundStatus = "confirmed"
)

// RefundRequest is a customer's claim for money back on a booking. The
// policy and amount are frozen at submission.
type RefundRequest struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	BookingReference       string          `json:"bookingReference" db:"booking_reference"`
	SubmitterName          string          `json:"submitterName" db:"submitter_name"`
	SubmitterEmail         string          `json:"submitterEmail" db:"submitter_email"`
	SubmitterPhone         string          `json:"submitterPhone,omitempty" db:"submitter_phone"`
	Reason                 string          `json:"reason" db:"reason"`
	BookingTotalPrice      decimal.Decimal `json:"bookingTotalPrice" db:"booking_total_price"`
	BookingStartDate       time.Time       `json:"bookingStartDate" db:"booking_start_date"`
	RefundPolicy           RefundTier      `json:"refundPolicy" db:"refund_policy"`
	CalculatedRefundAmount decimal.Decimal `json:"calculatedRefundAmount" db:"calculated_refund_amount"`
	Status                 RefundStatus    `json:"status" db:"status"`
	Notes                  []Note          `json:"notes"`
	CreatedAt              time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time       `json:"updatedAt" db:"updated_at"`
}

// RefundSubmission is the payload for a new refund request.
type RefundSubmission struct {
	BookingReference string `json:"bookingReference" validate:"required"`
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone"`
	Reason           string `json:"reason" validate:"required"`
}

// RefundResolution is the payload for an admin decision on a refund request.
type RefundResolution struct {
	Status     RefundStatus `json:"status" validate:"required,oneof=approved declined confirmed"`
	Admin      string       `json:"admin" validate:"required"`
	Note       string       `json:"note" validate:"required"`
	Attachment string       `json:"attachment"`
}
