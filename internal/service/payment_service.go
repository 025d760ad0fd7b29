package service

import (
	"context"
	"errors"
	"fmt"

	"booking-engine/internal/booking"
	"booking-engine/internal/model"
	"booking-engine/internal/repository"
	"booking-engine/internal/validation"

	"github.com/rs/zerolog"
)

// paymentService implements PaymentService.
type paymentService struct {
	bookings   repository.BookingRepository
	machine    *booking.Machine
	dispatcher EffectDispatcher
	now        Clock
	logger     zerolog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	bookings repository.BookingRepository,
	machine *booking.Machine,
	dispatcher EffectDispatcher,
	clock Clock,
	logger zerolog.Logger,
) PaymentService {
	if clock == nil {
		clock = SystemClock
	}
	return &paymentService{
		bookings:   bookings,
		machine:    machine,
		dispatcher: dispatcher,
		now:        clock,
		logger:     logger.With().Str("service", "payment").Logger(),
	}
}

// RecordPayment adds a payment to a booking.
func (s *paymentService) RecordPayment(ctx context.Context, reference string, req *model.PaymentRequest) (*model.Booking, error) {
	if req == nil {
		return nil, model.ValidationError("payment is required")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, model.ValidationError("amount: must be greater than zero")
	}

	b, err := loadBooking(ctx, s.bookings, reference, s.logger)
	if err != nil {
		return nil, err
	}

	if b.Status.IsTerminal() || b.Status == model.StatusFullyPaid {
		return nil, model.NewDomainError(model.ErrCodeBookingNotPayable,
			fmt.Sprintf("booking %s is %s and does not accept payments", reference, b.Status))
	}

	balance := b.Balance()
	switch b.Status {
	case model.StatusConfirmed:
		if !req.Amount.Equal(balance) {
			s.logger.Warn().
				Str("reference", reference).
				Str("amount", req.Amount.String()).
				Str("balance", balance.String()).
				Msg("top-up does not settle the balance")
			return nil, model.NewDomainError(model.ErrCodeInsufficientAmount,
				fmt.Sprintf("payment must equal the remaining balance of %s", balance.StringFixed(2)))
		}
	case model.StatusPending:
		if req.Amount.GreaterThan(balance) {
			return nil, model.ValidationError(
				fmt.Sprintf("amount: exceeds the remaining balance of %s", balance.StringFixed(2)))
		}
	}

	now := s.now()
	status := b.Status
	paidBefore := b.AmountPaid

	payment, err := (booking.Ledger{}).Record(b, req.Amount, req.ProofRef, req.ManualReference, now)
	if err != nil {
		return nil, err
	}

	var change *booking.Change
	if status == model.StatusConfirmed && (booking.Ledger{}).IsFullyPaid(b) {
		if change, err = s.machine.Apply(b, booking.EventBalancePaid, booking.Input{}, now); err != nil {
			return nil, err
		}
	}

	if err := s.bookings.ApplyPayment(ctx, b.ID, status, paidBefore, payment, change); err != nil {
		if errors.Is(err, repository.ErrStalePrecondition) {
			return nil, model.NewDomainError(model.ErrCodeBookingNotPayable,
				fmt.Sprintf("booking %s changed while the payment was being recorded; retry", reference))
		}
		s.logger.Error().Err(err).Str("reference", reference).Msg("failed to record payment")
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.Info().
		Str("reference", reference).
		Str("payment_reference", payment.PaymentReference).
		Str("amount", payment.Amount.String()).
		Msg("payment recorded")

	if change != nil {
		change.ApplyTo(b)
		s.dispatcher.Dispatch(context.WithoutCancel(ctx), change.Effects)
	}
	return b, nil
}
