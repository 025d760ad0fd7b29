package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-engine/internal/booking"
	"booking-engine/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const bookingColumns = `
	id, reference, item_type, item_id, item_name,
	COALESCE(owner_id, ''), customer_name, customer_email, COALESCE(customer_phone, ''),
	start_date, end_date, number_of_days, total_price, amount_paid, payment_option,
	original_price, discount_applied, COALESCE(promotion_title, ''),
	status, deadline_kind, deadline_at, created_at, updated_at`

// bookingRepository implements the BookingRepository interface using PostgreSQL.
type bookingRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewBookingRepository creates a new PostgreSQL-backed booking repository.
func NewBookingRepository(pool *pgxpool.Pool, logger zerolog.Logger) BookingRepository {
	return &bookingRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "booking").Logger(),
	}
}

// Create inserts a booking with its initial payments and notes.
func (r *bookingRepository) Create(ctx context.Context, b *model.Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	kind, at := deadlineArgs(b.Deadline)
	query := `
		INSERT INTO bookings (
			reference, item_type, item_id, item_name, owner_id, customer_name, customer_email,
			customer_phone, start_date, end_date, number_of_days, total_price, amount_paid,
			payment_option, original_price, discount_applied, promotion_title, status,
			deadline_kind, deadline_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id
	`

	err = tx.QueryRow(ctx, query,
		b.Reference, b.ItemType, b.ItemID, b.ItemName, nullString(b.Customer.OwnerID),
		b.Customer.Name, b.Customer.Email, nullString(b.Customer.Phone), b.StartDate, b.EndDate,
		b.NumberOfDays, b.TotalPrice, b.AmountPaid, b.PaymentOption, nullDecimal(b.OriginalPrice),
		nullDecimal(b.DiscountApplied), nullString(b.PromotionTitle), b.Status, kind, at,
		b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		err = mapWriteError(err)
		if errors.Is(err, ErrDuplicate) {
			r.logger.Warn().Str("reference", b.Reference).Msg("booking reference collision")
			return err
		}
		r.logger.Error().Err(err).Str("reference", b.Reference).Msg("failed to create booking")
		return fmt.Errorf("failed to create booking: %w", err)
	}

	for i := range b.Payments {
		if err := insertPayment(ctx, tx, b.ID, &b.Payments[i]); err != nil {
			return err
		}
	}
	for i := range b.Notes {
		if err := insertBookingNote(ctx, tx, b.ID, &b.Notes[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("reference", b.Reference).Msg("failed to commit booking")
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	r.logger.Debug().
		Str("reference", b.Reference).
		Int64("booking_id", b.ID).
		Msg("booking created successfully")

	return nil
}

// GetByReference retrieves a booking with its payments and notes.
func (r *bookingRepository) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = $1`

	b, err := scanBooking(r.pool.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("reference", reference).Msg("booking not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("reference", reference).Msg("failed to query booking")
		return nil, fmt.Errorf("failed to query booking: %w", err)
	}

	if b.Payments, err = r.payments(ctx, b.ID); err != nil {
		return nil, err
	}
	if b.Notes, err = r.notes(ctx, b.ID); err != nil {
		return nil, err
	}

	return b, nil
}

// ListByOwner retrieves an owner's bookings, newest first.
func (r *bookingRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	return r.list(ctx, query, ownerID, limit, offset)
}

// ListExpired retrieves one page of bookings whose active timer elapsed
// before now.
func (r *bookingRepository) ListExpired(ctx context.Context, now time.Time, after *ExpiryCursor, limit int) ([]model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE deadline_at < $1
		  AND (
			(status = 'pending' AND item_type IN ('car', 'tour') AND deadline_kind = 'awaiting_payment')
			OR (status = 'confirmed' AND payment_option = 'downpayment' AND deadline_kind = 'awaiting_balance')
			OR (status = 'pending' AND item_type = 'transport' AND deadline_kind = 'awaiting_admin_confirmation')
		  )
		  AND ($3::timestamptz IS NULL OR (deadline_at, id) > ($3::timestamptz, $4::bigint))
		ORDER BY deadline_at, id
		LIMIT $2`

	var afterAt, afterID any
	if after != nil {
		afterAt, afterID = after.DeadlineAt, after.ID
	}
	return r.list(ctx, query, now, limit, afterAt, afterID)
}

func (r *bookingRepository) list(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query bookings")
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan booking row")
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating booking rows")
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}

// ApplyChange commits a state machine change under its preconditions.
func (r *bookingRepository) ApplyChange(ctx context.Context, bookingID int64, change *booking.Change) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := updateStatus(ctx, tx, bookingID, change); err != nil {
		if !errors.Is(err, ErrStalePrecondition) {
			r.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("failed to apply booking change")
		}
		return err
	}

	if change.Note != nil {
		if err := insertBookingNote(ctx, tx, bookingID, change.Note); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit booking change: %w", err)
	}

	r.logger.Debug().
		Int64("booking_id", bookingID).
		Str("event", string(change.Event)).
		Str("from", string(change.From)).
		Str("to", string(change.To)).
		Msg("booking change applied")

	return nil
}

// ApplyPayment records a payment under an optimistic check on amount paid.
func (r *bookingRepository) ApplyPayment(ctx context.Context, bookingID int64, status model.BookingStatus, paidBefore decimal.Decimal, payment *model.Payment, change *booking.Change) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE bookings
		SET amount_paid = amount_paid + $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND amount_paid = $5
	`
	tag, err := tx.Exec(ctx, query, payment.Amount, payment.PaidAt, bookingID, status, paidBefore)
	if err != nil {
		r.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("failed to update amount paid")
		return fmt.Errorf("failed to update amount paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStalePrecondition
	}

	if err := insertPayment(ctx, tx, bookingID, payment); err != nil {
		return err
	}

	if change != nil {
		if err := updateStatus(ctx, tx, bookingID, change); err != nil {
			return err
		}
		if change.Note != nil {
			if err := insertBookingNote(ctx, tx, bookingID, change.Note); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}

	r.logger.Debug().
		Int64("booking_id", bookingID).
		Str("payment_reference", payment.PaymentReference).
		Str("amount", payment.Amount.String()).
		Msg("payment recorded")

	return nil
}

// AppendNote adds an immutable note to a booking.
func (r *bookingRepository) AppendNote(ctx context.Context, bookingID int64, note *model.Note) error {
	if err := insertBookingNote(ctx, r.pool, bookingID, note); err != nil {
		r.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("failed to append note")
		return err
	}
	return nil
}

func (r *bookingRepository) payments(ctx context.Context, bookingID int64) ([]model.Payment, error) {
	query := `
		SELECT id, amount, payment_reference, COALESCE(manual_reference, ''), COALESCE(proof_ref, ''), paid_at
		FROM booking_payments
		WHERE booking_id = $1
		ORDER BY paid_at, payment_reference
	`
	rows, err := r.pool.Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]model.Payment, 0)
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.Amount, &p.PaymentReference, &p.ManualReference, &p.ProofRef, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

func (r *bookingRepository) notes(ctx context.Context, bookingID int64) ([]model.Note, error) {
	query := `
		SELECT id, text, author, COALESCE(attachment, ''), created_at
		FROM booking_notes
		WHERE booking_id = $1
		ORDER BY created_at, id
	`
	return queryNotes(ctx, r.pool, query, bookingID)
}

// dbtx is the subset of pgxpool.Pool and pgx.Tx used by shared helpers.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func updateStatus(ctx context.Context, tx dbtx, bookingID int64, change *booking.Change) error {
	kind, at := deadlineArgs(change.Deadline)
	query := `
		UPDATE bookings
		SET status = $1, deadline_kind = $2, deadline_at = $3, updated_at = $4
		WHERE id = $5 AND status = $6
		  AND ($7::text IS NULL OR (deadline_kind = $7 AND deadline_at < $4))
	`
	tag, err := tx.Exec(ctx, query,
		change.To, kind, at, change.At, bookingID, change.From, nullString(string(change.ExpectDeadline)))
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStalePrecondition
	}
	return nil
}

func insertPayment(ctx context.Context, tx dbtx, bookingID int64, p *model.Payment) error {
	query := `
		INSERT INTO booking_payments (id, booking_id, amount, payment_reference, manual_reference, proof_ref, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.Exec(ctx, query, p.ID, bookingID, p.Amount, p.PaymentReference,
		nullString(p.ManualReference), nullString(p.ProofRef), p.PaidAt); err != nil {
		return fmt.Errorf("failed to insert payment: %w", mapWriteError(err))
	}
	return nil
}

func insertBookingNote(ctx context.Context, tx dbtx, bookingID int64, n *model.Note) error {
	query := `
		INSERT INTO booking_notes (id, booking_id, text, author, attachment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query, n.ID, bookingID, n.Text, n.Author, nullString(n.Attachment), n.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

func queryNotes(ctx context.Context, db dbtx, query string, arg any) ([]model.Note, error) {
	rows, err := db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := make([]model.Note, 0)
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.Text, &n.Author, &n.Attachment, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

func deadlineArgs(d model.Deadline) (any, any) {
	if !d.IsSet() {
		return nil, nil
	}
	return string(d.Kind), d.At
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b               model.Booking
		originalPrice   decimal.NullDecimal
		discountApplied decimal.NullDecimal
		deadlineKind    *string
		deadlineAt      *time.Time
	)
	err := row.Scan(
		&b.ID, &b.Reference, &b.ItemType, &b.ItemID, &b.ItemName,
		&b.Customer.OwnerID, &b.Customer.Name, &b.Customer.Email, &b.Customer.Phone,
		&b.StartDate, &b.EndDate, &b.NumberOfDays, &b.TotalPrice, &b.AmountPaid, &b.PaymentOption,
		&originalPrice, &discountApplied, &b.PromotionTitle,
		&b.Status, &deadlineKind, &deadlineAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.OriginalPrice = fromNullDecimal(originalPrice)
	b.DiscountApplied = fromNullDecimal(discountApplied)
	if deadlineKind != nil && deadlineAt != nil {
		b.Deadline = model.Deadline{Kind: model.DeadlineKind(*deadlineKind), At: deadlineAt.UTC()}
	}
	b.StartDate = b.StartDate.UTC()
	b.EndDate = b.EndDate.UTC()
	b.Payments = []model.Payment{}
	b.Notes = []model.Note{}
	return &b, nil
}
