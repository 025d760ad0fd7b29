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

const promotionColumns = `
	id, title, discount_type, discount_value, applicable_to, item_ids,
	is_active, start_date, end_date, created_at, updated_at`

// promotionRepository implements the PromotionRepository interface using PostgreSQL.
type promotionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPromotionRepository creates a new PostgreSQL-backed promotion repository.
func NewPromotionRepository(pool *pgxpool.Pool, logger zerolog.Logger) PromotionRepository {
	return &promotionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "promotion").Logger(),
	}
}

// Create inserts a promotion.
func (r *promotionRepository) Create(ctx context.Context, p *model.Promotion) error {
	query := `
		INSERT INTO promotions (title, discount_type, discount_value, applicable_to, item_ids,
			is_active, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query, p.Title, p.DiscountType, p.DiscountValue, p.ApplicableTo,
		p.ItemIDs, p.IsActive, p.StartDate, p.EndDate, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		err = mapWriteError(err)
		if errors.Is(err, ErrDuplicate) {
			return err
		}
		r.logger.Error().Err(err).Str("title", p.Title).Msg("failed to create promotion")
		return fmt.Errorf("failed to create promotion: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of a promotion.
func (r *promotionRepository) Update(ctx context.Context, p *model.Promotion) error {
	query := `
		UPDATE promotions
		SET title = $1, discount_type = $2, discount_value = $3, applicable_to = $4, item_ids = $5,
			is_active = $6, start_date = $7, end_date = $8, updated_at = $9
		WHERE id = $10
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query, p.Title, p.DiscountType, p.DiscountValue, p.ApplicableTo,
		p.ItemIDs, p.IsActive, p.StartDate, p.EndDate, p.UpdatedAt, p.ID).Scan(&p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		err = mapWriteError(err)
		if errors.Is(err, ErrDuplicate) {
			return err
		}
		r.logger.Error().Err(err).Int64("promotion_id", p.ID).Msg("failed to update promotion")
		return fmt.Errorf("failed to update promotion: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the promotion with the same title.
func (r *promotionRepository) Upsert(ctx context.Context, p *model.Promotion) error {
	if err := upsertPromotion(ctx, r.pool, p); err != nil {
		r.logger.Error().Err(err).Str("title", p.Title).Msg("failed to upsert promotion")
		return fmt.Errorf("failed to upsert promotion: %w", err)
	}
	return nil
}

// UpsertAll upserts every promotion in one transaction. Either all of them
// are written or none are.
func (r *promotionRepository) UpsertAll(ctx context.Context, promotions []model.Promotion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range promotions {
		if err := upsertPromotion(ctx, tx, &promotions[i]); err != nil {
			r.logger.Error().Err(err).Str("title", promotions[i].Title).Msg("failed to upsert promotion")
			return fmt.Errorf("failed to upsert promotion %q: %w", promotions[i].Title, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.logger.Debug().Int("count", len(promotions)).Msg("promotions upserted")
	return nil
}

// rowQuerier is satisfied by both the pool and a transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsertPromotion(ctx context.Context, q rowQuerier, p *model.Promotion) error {
	query := `
		INSERT INTO promotions (title, discount_type, discount_value, applicable_to, item_ids,
			is_active, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (title) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			applicable_to = EXCLUDED.applicable_to,
			item_ids = EXCLUDED.item_ids,
			is_active = EXCLUDED.is_active,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	return q.QueryRow(ctx, query, p.Title, p.DiscountType, p.DiscountValue, p.ApplicableTo,
		p.ItemIDs, p.IsActive, p.StartDate, p.EndDate, p.CreatedAt, p.UpdatedAt).Scan(&p.ID, &p.CreatedAt)
}

// GetByID retrieves a promotion.
func (r *promotionRepository) GetByID(ctx context.Context, id int64) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	p, err := scanPromotion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("promotion_id", id).Msg("failed to query promotion")
		return nil, fmt.Errorf("failed to query promotion: %w", err)
	}
	return p, nil
}

// List retrieves promotions ordered by id.
func (r *promotionRepository) List(ctx context.Context, limit, offset int) ([]model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions ORDER BY id LIMIT $1 OFFSET $2`
	return r.list(ctx, query, limit, offset)
}

// ListActive retrieves every promotion with isActive set, in id order so
// that price ties resolve the same way every time.
func (r *promotionRepository) ListActive(ctx context.Context) ([]model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE is_active ORDER BY id`
	return r.list(ctx, query)
}

func (r *promotionRepository) list(ctx context.Context, query string, args ...any) ([]model.Promotion, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query promotions")
		return nil, fmt.Errorf("failed to query promotions: %w", err)
	}
	defer rows.Close()

	promotions := make([]model.Promotion, 0)
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan promotion: %w", err)
		}
		promotions = append(promotions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating promotions: %w", err)
	}
	return promotions, nil
}

func scanPromotion(row pgx.Row) (*model.Promotion, error) {
	var p model.Promotion
	err := row.Scan(&p.ID, &p.Title, &p.DiscountType, &p.DiscountValue, &p.ApplicableTo, &p.ItemIDs,
		&p.IsActive, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.StartDate = p.StartDate.UTC()
	p.EndDate = p.EndDate.UTC()
	return &p, nil
}
