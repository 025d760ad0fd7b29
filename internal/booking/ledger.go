package booking

import (
	"strings"
	"time"

	"booking-engine/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger tracks money received against a booking's total price.
type Ledger struct{}

// IsFullyPaid reports whether the amount paid covers the total.
func (Ledger) IsFullyPaid(b *model.Booking) bool {
	return b.AmountPaid.GreaterThanOrEqual(b.TotalPrice)
}

// Record appends a payment to b and raises AmountPaid by its amount.
// Callers enforce any workflow rule about the exact amount; the ledger only
// guarantees a positive amount, a payable booking, and that the payments
// always sum to AmountPaid.
func (l Ledger) Record(b *model.Booking, amount decimal.Decimal, proofRef, manualRef string, now time.Time) (*model.Payment, error) {
	if !amount.IsPositive() {
		return nil, model.ValidationError("payment amount must be greater than zero")
	}
	if b.Status.IsTerminal() {
		return nil, model.ErrBookingNotPayable
	}

	payment := model.Payment{
		ID:               uuid.New(),
		Amount:           amount,
		PaymentReference: NewPaymentReference(),
		ManualReference:  manualRef,
		ProofRef:         proofRef,
		PaidAt:           now.UTC(),
	}

	b.Payments = append(b.Payments, payment)
	b.AmountPaid = b.AmountPaid.Add(amount)
	return &payment, nil
}

// Sum totals the recorded payments.
func (Ledger) Sum(b *model.Booking) decimal.Decimal {
	total := decimal.Zero
	for _, p := range b.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// NewPaymentReference returns a system-generated payment reference.
func NewPaymentReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY-" + strings.ToUpper(id[:12])
}
