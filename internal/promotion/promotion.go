// Package promotion loads, stores and caches promotion rules.
package promotion

import (
	"context"
	"fmt"
	"time"

	"booking-engine/internal/model"
	"booking-engine/internal/validation"

	"github.com/shopspring/decimal"
)

var maxPercentage = decimal.NewFromInt(100)

// Loader reads a batch of promotion definitions from a file or object key.
type Loader interface {
	Load(ctx context.Context, path string) ([]model.Promotion, error)
}

// Store persists promotions keyed by title. UpsertAll writes the whole
// batch or nothing.
type Store interface {
	UpsertAll(ctx context.Context, promotions []model.Promotion) error
}

// Lister returns every promotion with isActive set, regardless of its
// date window.
type Lister interface {
	ListActive(ctx context.Context) ([]model.Promotion, error)
}

// Source is a read path for the active promotion set that can be told to
// forget what it holds.
type Source interface {
	Lister
	Invalidate(ctx context.Context) error
}

// Build validates req and converts it to a promotion stamped at now.
func Build(req *model.PromotionRequest, now time.Time) (*model.Promotion, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.DiscountValue.IsPositive() {
		return nil, model.ValidationError("discountValue: must be greater than zero")
	}
	if req.DiscountType == model.DiscountPercentage && req.DiscountValue.GreaterThan(maxPercentage) {
		return nil, model.ValidationError(fmt.Sprintf("discountValue: percentage cannot exceed %s", maxPercentage))
	}
	if req.ApplicableTo == model.ApplicableAll && len(req.ItemIDs) > 0 {
		return nil, model.ValidationError("itemIds: must be empty when applicableTo is all")
	}

	itemIDs := req.ItemIDs
	if itemIDs == nil {
		itemIDs = []string{}
	}

	return &model.Promotion{
		Title:         req.Title,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		ApplicableTo:  req.ApplicableTo,
		ItemIDs:       itemIDs,
		IsActive:      req.IsActive,
		StartDate:     req.StartDate.UTC(),
		EndDate:       req.EndDate.UTC(),
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}, nil
}
