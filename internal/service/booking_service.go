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

// bookingService implements BookingService.
type bookingService struct {
	bookings   repository.BookingRepository
	items      repository.ItemRepository
	machine    *booking.Machine
	dispatcher EffectDispatcher
	now        Clock
	retries    int
	logger     zerolog.Logger
}

// NewBookingService creates a new booking service. referenceRetries bounds
// how many fresh references are tried when one collides.
func NewBookingService(
	bookings repository.BookingRepository,
	items repository.ItemRepository,
	machine *booking.Machine,
	dispatcher EffectDispatcher,
	clock Clock,
	referenceRetries int,
	logger zerolog.Logger,
) BookingService {
	if clock == nil {
		clock = SystemClock
	}
	if referenceRetries < 1 {
		referenceRetries = 1
	}
	return &bookingService{
		bookings:   bookings,
		items:      items,
		machine:    machine,
		dispatcher: dispatcher,
		now:        clock,
		retries:    referenceRetries,
		logger:     logger.With().Str("service", "booking").Logger(),
	}
}

// Create validates and stores a new pending booking.
func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	if req == nil {
		return nil, model.ValidationError("booking request is required")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.TotalPrice.IsNegative() {
		return nil, model.ValidationError("totalPrice: must not be negative")
	}

	start := req.StartDate.UTC()
	end := start
	if req.EndDate != nil {
		end = req.EndDate.UTC()
	}
	if end.Before(start) {
		return nil, model.ValidationError("endDate: must not be before startDate")
	}

	available, err := s.items.GetAvailability(ctx, req.ItemID, req.ItemType)
	if err != nil {
		s.logger.Error().Err(err).Str("item_id", req.ItemID).Msg("failed to check item availability")
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	if !available {
		s.logger.Warn().
			Str("item_id", req.ItemID).
			Str("item_type", string(req.ItemType)).
			Msg("item not available")
		return nil, model.ErrNotAvailable
	}

	now := s.now()
	b := &model.Booking{
		ItemType: req.ItemType,
		ItemID:   req.ItemID,
		ItemName: req.ItemName,
		Customer: model.Customer{
			OwnerID: req.OwnerID,
			Name:    req.CustomerName,
			Email:   req.CustomerEmail,
			Phone:   req.CustomerPhone,
		},
		StartDate:       start,
		EndDate:         end,
		NumberOfDays:    booking.NumberOfDays(start, end),
		TotalPrice:      req.TotalPrice,
		PaymentOption:   req.PaymentOption,
		OriginalPrice:   req.OriginalPrice,
		DiscountApplied: req.DiscountApplied,
		PromotionTitle:  req.PromotionTitle,
		Status:          model.StatusPending,
		Payments:        []model.Payment{},
		Notes:           []model.Note{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if p := req.InitialPayment; p != nil {
		if err := validation.Struct(p); err != nil {
			return nil, err
		}
		if p.Amount.GreaterThan(b.TotalPrice) {
			return nil, model.ValidationError("initialPayment: amount exceeds the booking total")
		}
		if _, err := (booking.Ledger{}).Record(b, p.Amount, p.ProofRef, p.ManualReference, now); err != nil {
			return nil, err
		}
	}

	var effects []model.Effect
	for attempt := 1; ; attempt++ {
		if b.Reference, err = booking.NewReference(b.ItemType, now); err != nil {
			return nil, fmt.Errorf("failed to generate booking reference: %w", err)
		}
		if effects, err = s.machine.Initial(b, now); err != nil {
			return nil, err
		}

		err = s.bookings.Create(ctx, b)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicate) && attempt < s.retries {
			s.logger.Warn().Str("reference", b.Reference).Int("attempt", attempt).Msg("booking reference collision, retrying")
			continue
		}
		s.logger.Error().Err(err).Str("reference", b.Reference).Msg("failed to create booking")
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.logger.Info().
		Str("reference", b.Reference).
		Str("item_type", string(b.ItemType)).
		Str("deadline", string(b.Deadline.Kind)).
		Msg("booking created successfully")

	s.dispatcher.Dispatch(context.WithoutCancel(ctx), effects)
	return b, nil
}

// Get retrieves a booking by reference.
func (s *bookingService) Get(ctx context.Context, reference string) (*model.Booking, error) {
	return loadBooking(ctx, s.bookings, reference, s.logger)
}

// ListByOwner retrieves an owner's bookings.
func (s *bookingService) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Booking, error) {
	if ownerID == "" {
		return nil, model.ValidationError("ownerId: is required")
	}
	bookings, err := s.bookings.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("owner_id", ownerID).Msg("failed to list bookings")
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (s *bookingService) Approve(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error) {
	return s.transition(ctx, reference, booking.EventApprove, req)
}

func (s *bookingService) Reject(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error) {
	return s.transition(ctx, reference, booking.EventReject, req)
}

func (s *bookingService) Cancel(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error) {
	return s.transition(ctx, reference, booking.EventCancel, req)
}

func (s *bookingService) Complete(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error) {
	return s.transition(ctx, reference, booking.EventComplete, req)
}

// AddNote appends an admin note.
func (s *bookingService) AddNote(ctx context.Context, reference string, req *model.NoteRequest) (*model.Booking, error) {
	if req == nil {
		return nil, model.ValidationError("note is required")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	b, err := loadBooking(ctx, s.bookings, reference, s.logger)
	if err != nil {
		return nil, err
	}

	note := model.NewNote(req.Text, req.Author, req.Attachment, s.now())
	if err := s.bookings.AppendNote(ctx, b.ID, note); err != nil {
		return nil, fmt.Errorf("failed to add note: %w", err)
	}
	b.Notes = append(b.Notes, *note)

	s.logger.Info().Str("reference", reference).Str("author", req.Author).Msg("note added")
	return b, nil
}

func (s *bookingService) transition(ctx context.Context, reference string, ev booking.Event, req *model.StatusRequest) (*model.Booking, error) {
	if req == nil {
		return nil, model.ValidationError("actor is required")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	b, err := loadBooking(ctx, s.bookings, reference, s.logger)
	if err != nil {
		return nil, err
	}

	change, err := s.machine.Apply(b, ev, booking.Input{Actor: req.Actor, Reason: req.Reason}, s.now())
	if err != nil {
		s.logger.Warn().
			Str("reference", reference).
			Str("event", string(ev)).
			Str("status", string(b.Status)).
			Msg("transition rejected")
		return nil, err
	}

	if err := s.bookings.ApplyChange(ctx, b.ID, change); err != nil {
		if errors.Is(err, repository.ErrStalePrecondition) {
			return nil, lostRace(ctx, s.bookings, reference, ev, s.logger)
		}
		return nil, fmt.Errorf("failed to %s booking: %w", ev, err)
	}
	change.ApplyTo(b)

	s.logger.Info().
		Str("reference", reference).
		Str("actor", req.Actor).
		Str("from", string(change.From)).
		Str("to", string(change.To)).
		Msg("booking status changed")

	s.dispatcher.Dispatch(context.WithoutCancel(ctx), change.Effects)
	return b, nil
}

func loadBooking(ctx context.Context, repo repository.BookingRepository, reference string, logger zerolog.Logger) (*model.Booking, error) {
	b, err := repo.GetByReference(ctx, reference)
	if err != nil {
		logger.Error().Err(err).Str("reference", reference).Msg("failed to get booking")
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if b == nil {
		return nil, model.NewDomainError(model.ErrCodeNotFound, fmt.Sprintf("booking %s not found", reference))
	}
	return b, nil
}

// lostRace reports the status that won when a conditional update matched
// nothing.
func lostRace(ctx context.Context, repo repository.BookingRepository, reference string, ev booking.Event, logger zerolog.Logger) error {
	current, err := repo.GetByReference(ctx, reference)
	if err != nil || current == nil {
		return model.ErrInvalidTransition
	}
	logger.Warn().
		Str("reference", reference).
		Str("event", string(ev)).
		Str("status", string(current.Status)).
		Msg("concurrent update won the race")
	return model.NewDomainError(model.ErrCodeInvalidTransition,
		fmt.Sprintf("cannot %s booking %s: it changed concurrently and is now %s", ev, reference, current.Status))
}
