package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType is how a promotion reduces the price.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// ApplicableAll marks a promotion that applies to every item type.
const ApplicableAll = "all"

// Promotion is a time-bounded discount rule.
type Promotion struct {
	ID            int64           `json:"id" db:"id"`
	Title         string          `json:"title" db:"title"`
	DiscountType  DiscountType    `json:"discountType" db:"discount_type"`
	DiscountValue decimal.Decimal `json:"discountValue" db:"discount_value"`
	ApplicableTo  string          `json:"applicableTo" db:"applicable_to"`
	ItemIDs       []string        `json:"itemIds" db:"item_ids"`
	IsActive      bool            `json:"isActive" db:"is_active"`
	StartDate     time.Time       `json:"startDate" db:"start_date"`
	EndDate       time.Time       `json:"endDate" db:"end_date"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// RunningAt reports whether the promotion is switched on and inside its window.
func (p *Promotion) RunningAt(now time.Time) bool {
	return p.IsActive && !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// CoversItem reports whether the promotion targets the given item.
func (p *Promotion) CoversItem(itemType ItemType, itemID string) bool {
	if p.ApplicableTo == ApplicableAll {
		return true
	}
	if p.ApplicableTo != string(itemType) {
		return false
	}
	for _, id := range p.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// PromotionRequest is the payload for creating or editing a promotion.
type PromotionRequest struct {
	Title         string          `json:"title" validate:"required"`
	DiscountType  DiscountType    `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	ApplicableTo  string          `json:"applicableTo" validate:"required,oneof=all car tour transport"`
	ItemIDs       []string        `json:"itemIds"`
	IsActive      bool            `json:"isActive"`
	StartDate     time.Time       `json:"startDate" validate:"required"`
	EndDate       time.Time       `json:"endDate" validate:"required,gtefield=StartDate"`
}

// QuoteRequest asks for the best price of an item.
type QuoteRequest struct {
	ItemType  ItemType        `json:"itemType" validate:"required,oneof=car tour transport"`
	ItemID    string          `json:"itemId" validate:"required"`
	BasePrice decimal.Decimal `json:"basePrice"`
}

// Quote is the priced result for one item.
type Quote struct {
	OriginalPrice    decimal.Decimal `json:"originalPrice"`
	FinalPrice       decimal.Decimal `json:"finalPrice"`
	DiscountApplied  decimal.Decimal `json:"discountApplied"`
	AppliedPromotion *Promotion      `json:"appliedPromotion"`
}
