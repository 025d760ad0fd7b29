package repository

import (
	"context"
	"errors"
	"fmt"

	"booking-engine/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// itemRepository implements the ItemRepository interface using PostgreSQL.
type itemRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewItemRepository creates a new PostgreSQL-backed catalog repository.
func NewItemRepository(pool *pgxpool.Pool, logger zerolog.Logger) ItemRepository {
	return &itemRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "item").Logger(),
	}
}

// GetByID retrieves a catalog item.
func (r *itemRepository) GetByID(ctx context.Context, id string) (*model.CatalogItem, error) {
	query := `
		SELECT id, item_type, name, base_price, is_available, created_at
		FROM catalog_items
		WHERE id = $1
	`
	var item model.CatalogItem
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.Type, &item.Name, &item.BasePrice, &item.IsAvailable, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("item_id", id).Msg("item not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("item_id", id).Msg("failed to query item")
		return nil, fmt.Errorf("failed to query item: %w", err)
	}
	return &item, nil
}

// GetAvailability reports whether the item exists with the given type and is available.
func (r *itemRepository) GetAvailability(ctx context.Context, id string, itemType model.ItemType) (bool, error) {
	query := `SELECT is_available FROM catalog_items WHERE id = $1 AND item_type = $2`

	var available bool
	if err := r.pool.QueryRow(ctx, query, id, itemType).Scan(&available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.logger.Error().Err(err).Str("item_id", id).Msg("failed to query item availability")
		return false, fmt.Errorf("failed to query item availability: %w", err)
	}
	return available, nil
}

// Upsert inserts or replaces a catalog item.
func (r *itemRepository) Upsert(ctx context.Context, item *model.CatalogItem) error {
	query := `
		INSERT INTO catalog_items (id, item_type, name, base_price, is_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			item_type = EXCLUDED.item_type,
			name = EXCLUDED.name,
			base_price = EXCLUDED.base_price,
			is_available = EXCLUDED.is_available
	`
	if _, err := r.pool.Exec(ctx, query, item.ID, item.Type, item.Name, item.BasePrice, item.IsAvailable, item.CreatedAt); err != nil {
		r.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to upsert item")
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}
