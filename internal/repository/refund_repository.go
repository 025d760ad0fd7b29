package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-engine/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const refundColumns = `
	id, booking_reference, submitter_name, submitter_email, COALESCE(submitter_phone, ''),
	reason, booking_total_price, booking_start_date, refund_policy, calculated_refund_amount,
	status, created_at, updated_at`

// refundRequestRepository implements the RefundRequestRepository interface using PostgreSQL.
type refundRequestRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewRefundRequestRepository creates a new PostgreSQL-backed refund request repository.
func NewRefundRequestRepository(pool *pgxpool.Pool, logger zerolog.Logger) RefundRequestRepository {
	return &refundRequestRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "refund_request").Logger(),
	}
}

// Create inserts a refund request.
func (r *refundRequestRepository) Create(ctx context.Context, req *model.RefundRequest) error {
	query := `
		INSERT INTO refund_requests (id, booking_reference, submitter_name, submitter_email, submitter_phone,
			reason, booking_total_price, booking_start_date, refund_policy, calculated_refund_amount,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.pool.Exec(ctx, query, req.ID, req.BookingReference, req.SubmitterName, req.SubmitterEmail,
		nullString(req.SubmitterPhone), req.Reason, req.BookingTotalPrice, req.BookingStartDate,
		req.RefundPolicy, req.CalculatedRefundAmount, req.Status, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		err = mapWriteError(err)
		if errors.Is(err, ErrDuplicate) {
			return err
		}
		r.logger.Error().Err(err).Str("booking_reference", req.BookingReference).Msg("failed to create refund request")
		return fmt.Errorf("failed to create refund request: %w", err)
	}
	return nil
}

// GetByID retrieves a refund request with its notes.
func (r *refundRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	return r.get(ctx, `SELECT `+refundColumns+` FROM refund_requests WHERE id = $1`, id)
}

// GetByBookingReference retrieves the refund request for a booking.
func (r *refundRequestRepository) GetByBookingReference(ctx context.Context, reference string) (*model.RefundRequest, error) {
	return r.get(ctx, `SELECT `+refundColumns+` FROM refund_requests WHERE booking_reference = $1`, reference)
}

func (r *refundRequestRepository) get(ctx context.Context, query string, arg any) (*model.RefundRequest, error) {
	var req model.RefundRequest
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&req.ID, &req.BookingReference, &req.SubmitterName, &req.SubmitterEmail, &req.SubmitterPhone,
		&req.Reason, &req.BookingTotalPrice, &req.BookingStartDate, &req.RefundPolicy,
		&req.CalculatedRefundAmount, &req.Status, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query refund request")
		return nil, fmt.Errorf("failed to query refund request: %w", err)
	}
	req.BookingStartDate = req.BookingStartDate.UTC()

	notesQuery := `
		SELECT id, text, author, COALESCE(attachment, ''), created_at
		FROM refund_request_notes
		WHERE refund_request_id = $1
		ORDER BY created_at, id
	`
	if req.Notes, err = queryNotes(ctx, r.pool, notesQuery, req.ID); err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus moves a request between statuses and appends a note.
func (r *refundRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.RefundStatus, note *model.Note, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE refund_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, at, id, from)
	if err != nil {
		r.logger.Error().Err(err).Str("refund_request_id", id.String()).Msg("failed to update refund status")
		return fmt.Errorf("failed to update refund request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStalePrecondition
	}

	if note != nil {
		query := `
			INSERT INTO refund_request_notes (id, refund_request_id, text, author, attachment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, query, note.ID, id, note.Text, note.Author, nullString(note.Attachment), note.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert refund note: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit refund status: %w", err)
	}
	return nil
}
