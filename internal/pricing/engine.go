// Package pricing selects the best promotional price for an item.
package pricing

import (
	"time"

	"booking-engine/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Item is the thing being priced.
type Item struct {
	Type      model.ItemType
	ID        string
	BasePrice decimal.Decimal
}

// Engine picks the lowest price among the eligible promotions.
type Engine struct{}

// NewEngine creates a pricing engine.
func NewEngine() *Engine {
	return &Engine{}
}

// PriceFor returns the quote for item given the candidate promotions at now.
// The lowest candidate wins and ties keep the first promotion seen. Prices
// never go below zero.
func (e *Engine) PriceFor(item Item, promotions []model.Promotion, now time.Time) model.Quote {
	quote := model.Quote{
		OriginalPrice:   item.BasePrice,
		FinalPrice:      item.BasePrice,
		DiscountApplied: decimal.Zero,
	}

	for i := range promotions {
		p := &promotions[i]
		if !p.RunningAt(now) || !p.CoversItem(item.Type, item.ID) {
			continue
		}
		candidate := Discounted(item.BasePrice, p)
		if quote.AppliedPromotion == nil || candidate.LessThan(quote.FinalPrice) {
			quote.FinalPrice = candidate
			quote.AppliedPromotion = p
		}
	}

	quote.DiscountApplied = quote.OriginalPrice.Sub(quote.FinalPrice)
	return quote
}

// Discounted applies a single promotion to base, clamped at zero.
func Discounted(base decimal.Decimal, p *model.Promotion) decimal.Decimal {
	var price decimal.Decimal
	switch p.DiscountType {
	case model.DiscountPercentage:
		price = base.Mul(hundred.Sub(p.DiscountValue)).Div(hundred)
	case model.DiscountFixed:
		price = base.Sub(p.DiscountValue)
	default:
		return base
	}
	if price.IsNegative() {
		return decimal.Zero
	}
	return price.Round(2)
}
