package service

import (
	"context"
	"errors"
	"fmt"

	"booking-engine/internal/model"
	"booking-engine/internal/pricing"
	"booking-engine/internal/promotion"
	"booking-engine/internal/repository"
	"booking-engine/internal/validation"

	"github.com/rs/zerolog"
)

// promotionService implements PromotionService.
type promotionService struct {
	promotions repository.PromotionRepository
	items      repository.ItemRepository
	source     promotion.Source
	importer   *promotion.Importer
	engine     *pricing.Engine
	now        Clock
	logger     zerolog.Logger
}

// NewPromotionService creates a new promotion service. source serves the
// active set used for quotes; importer may be nil when bulk import is off.
func NewPromotionService(
	promotions repository.PromotionRepository,
	items repository.ItemRepository,
	source promotion.Source,
	importer *promotion.Importer,
	engine *pricing.Engine,
	clock Clock,
	logger zerolog.Logger,
) PromotionService {
	if clock == nil {
		clock = SystemClock
	}
	return &promotionService{
		promotions: promotions,
		items:      items,
		source:     source,
		importer:   importer,
		engine:     engine,
		now:        clock,
		logger:     logger.With().Str("service", "promotion").Logger(),
	}
}

// Create stores a new promotion.
func (s *promotionService) Create(ctx context.Context, req *model.PromotionRequest) (*model.Promotion, error) {
	if req == nil {
		return nil, model.ValidationError("promotion is required")
	}
	p, err := promotion.Build(req, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.promotions.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.ValidationError(fmt.Sprintf("title: a promotion named %q already exists", p.Title))
		}
		return nil, fmt.Errorf("failed to create promotion: %w", err)
	}

	s.invalidate(ctx)
	s.logger.Info().Int64("promotion_id", p.ID).Str("title", p.Title).Msg("promotion created")
	return p, nil
}

// Update replaces the editable fields of a promotion.
func (s *promotionService) Update(ctx context.Context, id int64, req *model.PromotionRequest) (*model.Promotion, error) {
	if req == nil {
		return nil, model.ValidationError("promotion is required")
	}
	p, err := promotion.Build(req, s.now())
	if err != nil {
		return nil, err
	}
	p.ID = id

	if err := s.promotions.Update(ctx, p); err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			return nil, model.NewDomainError(model.ErrCodeNotFound, fmt.Sprintf("promotion %d not found", id))
		case errors.Is(err, repository.ErrDuplicate):
			return nil, model.ValidationError(fmt.Sprintf("title: a promotion named %q already exists", p.Title))
		}
		return nil, fmt.Errorf("failed to update promotion: %w", err)
	}

	s.invalidate(ctx)
	s.logger.Info().Int64("promotion_id", id).Msg("promotion updated")
	return p, nil
}

// Get retrieves a promotion.
func (s *promotionService) Get(ctx context.Context, id int64) (*model.Promotion, error) {
	p, err := s.promotions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get promotion: %w", err)
	}
	if p == nil {
		return nil, model.NewDomainError(model.ErrCodeNotFound, fmt.Sprintf("promotion %d not found", id))
	}
	return p, nil
}

// List retrieves promotions page by page.
func (s *promotionService) List(ctx context.Context, limit, offset int) ([]model.Promotion, error) {
	promotions, err := s.promotions.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	return promotions, nil
}

// Quote prices an item. A zero base price falls back to the catalog price.
func (s *promotionService) Quote(ctx context.Context, req *model.QuoteRequest) (*model.Quote, error) {
	if req == nil {
		return nil, model.ValidationError("quote request is required")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.BasePrice.IsNegative() {
		return nil, model.ValidationError("basePrice: must not be negative")
	}

	base := req.BasePrice
	if base.IsZero() {
		item, err := s.items.GetByID(ctx, req.ItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up item: %w", err)
		}
		if item == nil || item.Type != req.ItemType {
			return nil, model.NewDomainError(model.ErrCodeNotFound, fmt.Sprintf("%s %s not found", req.ItemType, req.ItemID))
		}
		base = item.BasePrice
	}

	active, err := s.source.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load active promotions")
		return nil, fmt.Errorf("failed to load promotions: %w", err)
	}

	quote := s.engine.PriceFor(pricing.Item{Type: req.ItemType, ID: req.ItemID, BasePrice: base}, active, s.now())

	event := s.logger.Debug().
		Str("item_id", req.ItemID).
		Str("original", quote.OriginalPrice.String()).
		Str("final", quote.FinalPrice.String())
	if quote.AppliedPromotion != nil {
		event = event.Str("promotion", quote.AppliedPromotion.Title)
	}
	event.Msg("quote computed")

	return &quote, nil
}

// Import bulk loads promotion files.
func (s *promotionService) Import(ctx context.Context, paths []string) (*promotion.ImportReport, error) {
	if s.importer == nil {
		return nil, errors.New("promotion import is not configured")
	}
	if len(paths) == 0 {
		return &promotion.ImportReport{}, nil
	}

	report, err := s.importer.Import(ctx, paths)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return report, nil
}

func (s *promotionService) invalidate(ctx context.Context) {
	if err := s.source.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate promotion cache")
	}
}
