package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-engine/internal/booking"
	"booking-engine/internal/model"
	"booking-engine/internal/refund"
	"booking-engine/internal/repository"
	"booking-engine/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// refundMoves lists the status changes an admin may make on a refund request.
var refundMoves = map[model.RefundStatus][]model.RefundStatus{
	model.RefundPending:  {model.RefundApproved, model.RefundDeclined, model.RefundConfirmed},
	model.RefundApproved: {model.RefundConfirmed},
}

// refundCancelAttempts bounds how often Resolve reloads a booking that keeps
// changing underneath the cancellation.
const refundCancelAttempts = 3

var refundTemplates = map[model.RefundStatus]model.EmailTemplate{
	model.RefundApproved:  model.TemplateRefundApproved,
	model.RefundDeclined:  model.TemplateRefundDeclined,
	model.RefundConfirmed: model.TemplateRefundConfirmed,
}

// refundService implements RefundService.
type refundService struct {
	refunds    repository.RefundRequestRepository
	bookings   repository.BookingRepository
	machine    *booking.Machine
	dispatcher EffectDispatcher
	now        Clock
	logger     zerolog.Logger
}

// NewRefundService creates a new refund request service.
func NewRefundService(
	refunds repository.RefundRequestRepository,
	bookings repository.BookingRepository,
	machine *booking.Machine,
	dispatcher EffectDispatcher,
	clock Clock,
	logger zerolog.Logger,
) RefundService {
	if clock == nil {
		clock = SystemClock
	}
	return &refundService{
		refunds:    refunds,
		bookings:   bookings,
		machine:    machine,
		dispatcher: dispatcher,
		now:        clock,
		logger:     logger.With().Str("service", "refund").Logger(),
	}
}

// Submit records a refund request with its policy and amount frozen at now.
func (s *refundService) Submit(ctx context.Context, req *model.RefundSubmission) (*model.RefundRequest, error) {
	if req == nil {
		return nil, model.ValidationError("refund request is required")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	b, err := loadBooking(ctx, s.bookings, req.BookingReference, s.logger)
	if err != nil {
		return nil, err
	}

	existing, err := s.refunds.GetByBookingReference(ctx, b.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing refund requests: %w", err)
	}
	if existing != nil {
		return nil, duplicateRefund(b.Reference)
	}

	if b.Status.IsTerminal() {
		return nil, model.NewDomainError(model.ErrCodeNotRefundable,
			fmt.Sprintf("booking %s is %s and cannot be refunded", b.Reference, b.Status))
	}

	now := s.now()
	result := refund.Calculate(b.StartDate, b.TotalPrice, now)

	r := &model.RefundRequest{
		ID:                     uuid.New(),
		BookingReference:       b.Reference,
		SubmitterName:          req.Name,
		SubmitterEmail:         req.Email,
		SubmitterPhone:         req.Phone,
		Reason:                 req.Reason,
		BookingTotalPrice:      b.TotalPrice,
		BookingStartDate:       b.StartDate,
		RefundPolicy:           result.Policy,
		CalculatedRefundAmount: result.Amount,
		Status:                 model.RefundPending,
		Notes:                  []model.Note{},
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.refunds.Create(ctx, r); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateRefund(b.Reference)
		}
		s.logger.Error().Err(err).Str("reference", b.Reference).Msg("failed to create refund request")
		return nil, fmt.Errorf("failed to create refund request: %w", err)
	}

	s.logger.Info().
		Str("refund_request_id", r.ID.String()).
		Str("reference", b.Reference).
		Str("policy", string(r.RefundPolicy)).
		Str("amount", r.CalculatedRefundAmount.String()).
		Msg("refund request submitted")

	s.dispatcher.Dispatch(context.WithoutCancel(ctx), []model.Effect{
		model.NotificationEffect(model.StaffRecipient,
			fmt.Sprintf("Refund requested for booking %s (%s policy, %s)", b.Reference, r.RefundPolicy, r.CalculatedRefundAmount.StringFixed(2)),
			"/admin/refund-requests/"+r.ID.String()),
	})
	return r, nil
}

// Resolve applies an admin decision. Approving or declining also cancels
// the booking; that happens first, so a cancellation that cannot be made
// leaves the refund request unchanged and the admin can retry.
func (s *refundService) Resolve(ctx context.Context, id uuid.UUID, req *model.RefundResolution) (*model.RefundRequest, error) {
	if req == nil {
		return nil, model.ValidationError("resolution is required")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !refundMoveAllowed(r.Status, req.Status) {
		return nil, model.NewDomainError(model.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot move refund request from %s to %s", r.Status, req.Status))
	}

	now := s.now()
	if req.Status == model.RefundApproved || req.Status == model.RefundDeclined {
		if err := s.cancelBooking(ctx, r, req.Status, req.Admin, now); err != nil {
			return nil, err
		}
	}

	note := model.NewNote(req.Note, req.Admin, req.Attachment, now)
	if err := s.refunds.UpdateStatus(ctx, r.ID, r.Status, req.Status, note, now); err != nil {
		if errors.Is(err, repository.ErrStalePrecondition) {
			return nil, model.NewDomainError(model.ErrCodeInvalidTransition,
				fmt.Sprintf("refund request %s changed concurrently", r.ID))
		}
		return nil, fmt.Errorf("failed to resolve refund request: %w", err)
	}

	from := r.Status
	r.Status = req.Status
	r.UpdatedAt = now
	r.Notes = append(r.Notes, *note)

	s.logger.Info().
		Str("refund_request_id", r.ID.String()).
		Str("from", string(from)).
		Str("to", string(r.Status)).
		Str("admin", req.Admin).
		Msg("refund request resolved")

	s.dispatcher.Dispatch(context.WithoutCancel(ctx), []model.Effect{
		model.RefundEmailEffect(refundTemplates[r.Status], r, req.Note),
	})
	return r, nil
}

// Get retrieves a refund request.
func (s *refundService) Get(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	r, err := s.refunds.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get refund request: %w", err)
	}
	if r == nil {
		return nil, model.NewDomainError(model.ErrCodeNotFound, fmt.Sprintf("refund request %s not found", id))
	}
	return r, nil
}

// cancelBooking moves the refunded booking to cancelled. The refund email
// already tells the customer, so the booking's own cancellation email is not
// sent. A booking that is already terminal is left alone. When another actor
// moves the booking first, it is reloaded and cancelled from its new status.
func (s *refundService) cancelBooking(ctx context.Context, r *model.RefundRequest, outcome model.RefundStatus, admin string, now time.Time) error {
	logger := s.logger.With().Str("reference", r.BookingReference).Logger()
	reason := fmt.Sprintf("Cancelled after refund request was %s (%s policy, refund %s).",
		outcome, r.RefundPolicy, r.CalculatedRefundAmount.StringFixed(2))

	for attempt := 1; attempt <= refundCancelAttempts; attempt++ {
		b, err := s.bookings.GetByReference(ctx, r.BookingReference)
		if err != nil {
			logger.Error().Err(err).Msg("failed to load booking for refund cancellation")
			return fmt.Errorf("failed to load booking %s: %w", r.BookingReference, err)
		}
		if b == nil {
			return model.NewDomainError(model.ErrCodeNotFound, fmt.Sprintf("booking %s not found", r.BookingReference))
		}
		if b.Status.IsTerminal() {
			logger.Info().Str("status", string(b.Status)).Msg("booking already terminal, not cancelling")
			return nil
		}

		change, err := s.machine.Apply(b, booking.EventCancel, booking.Input{Actor: admin, Reason: reason}, now)
		if err != nil {
			return err
		}

		err = s.bookings.ApplyChange(ctx, b.ID, change)
		if err == nil {
			logger.Info().Str("from", string(change.From)).Msg("booking cancelled for refund")
			return nil
		}
		if !errors.Is(err, repository.ErrStalePrecondition) {
			logger.Error().Err(err).Msg("failed to cancel booking for refund")
			return fmt.Errorf("failed to cancel booking %s: %w", r.BookingReference, err)
		}
		logger.Info().Int("attempt", attempt).Str("status", string(b.Status)).Msg("booking changed concurrently, reloading")
	}

	return model.NewDomainError(model.ErrCodeInvalidTransition,
		fmt.Sprintf("booking %s kept changing while it was being cancelled; retry", r.BookingReference))
}

func refundMoveAllowed(from, to model.RefundStatus) bool {
	for _, next := range refundMoves[from] {
		if next == to {
			return true
		}
	}
	return false
}

func duplicateRefund(reference string) error {
	return model.NewDomainError(model.ErrCodeDuplicateRequest,
		fmt.Sprintf("a refund request already exists for booking %s", reference))
}
