// Package refund computes how much of a booking is refundable.
package refund

import (
	"time"

	"booking-engine/internal/model"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// FullRefundLeadTime is how far ahead of the start date a cancellation still
// earns the whole amount back.
const FullRefundLeadTime = 7 * day

// Result is the frozen outcome of a refund calculation.
type Result struct {
	Policy model.RefundTier
	Amount decimal.Decimal
}

// Calculate returns the refund tier and amount for a booking starting at
// start with the given total, evaluated at now.
func Calculate(start time.Time, total decimal.Decimal, now time.Time) Result {
	until := start.Sub(now)
	switch {
	case until >= FullRefundLeadTime:
		return Result{Policy: model.RefundFull, Amount: total}
	case until >= 0:
		return Result{Policy: model.RefundHalf, Amount: total.Div(decimal.NewFromInt(2)).Round(2)}
	default:
		return Result{Policy: model.RefundNone, Amount: decimal.Zero}
	}
}
