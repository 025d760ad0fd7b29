package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-engine/internal/booking"
	"booking-engine/internal/model"
	"booking-engine/internal/repository"

	"github.com/rs/zerolog"
)

// DefaultSweepBatch is how many expired bookings one page of a sweep loads.
const DefaultSweepBatch = 500

// SweepReport summarises one reconciliation pass.
type SweepReport struct {
	Scanned   int      `json:"scanned"`
	Cancelled []string `json:"cancelled"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
}

// reconciliationService implements ReconciliationService.
type reconciliationService struct {
	bookings   repository.BookingRepository
	machine    *booking.Machine
	dispatcher EffectDispatcher
	now        Clock
	batch      int
	logger     zerolog.Logger
}

// NewReconciliationService creates the expiry sweep.
func NewReconciliationService(
	bookings repository.BookingRepository,
	machine *booking.Machine,
	dispatcher EffectDispatcher,
	clock Clock,
	logger zerolog.Logger,
) ReconciliationService {
	if clock == nil {
		clock = SystemClock
	}
	return &reconciliationService{
		bookings:   bookings,
		machine:    machine,
		dispatcher: dispatcher,
		now:        clock,
		batch:      DefaultSweepBatch,
		logger:     logger.With().Str("service", "reconciliation").Logger(),
	}
}

// Sweep cancels every booking whose active timer elapsed before now. Each
// booking is moved with its own conditional update; a booking another actor
// already moved is skipped, and a failure on one booking does not stop the
// rest. Expired bookings are read page by page behind a (deadline, id)
// cursor, so rows that keep failing cannot hide the ones after them.
func (s *reconciliationService) Sweep(ctx context.Context) (*SweepReport, error) {
	now := s.now()
	report := &SweepReport{Cancelled: []string{}}

	var after *repository.ExpiryCursor
	for {
		page, err := s.bookings.ListExpired(ctx, now, after, s.batch)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to list expired bookings")
			return nil, fmt.Errorf("failed to list expired bookings: %w", err)
		}
		report.Scanned += len(page)
		if len(page) == 0 {
			break
		}
		after = repository.CursorAfter(&page[len(page)-1])

		for i := range page {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			s.expire(ctx, &page[i], now, report)
		}

		if len(page) < s.batch {
			break
		}
	}

	if report.Scanned > 0 {
		s.logger.Info().
			Int("scanned", report.Scanned).
			Int("cancelled", len(report.Cancelled)).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Msg("sweep finished")
	}
	return report, nil
}

func (s *reconciliationService) expire(ctx context.Context, b *model.Booking, now time.Time, report *SweepReport) {
	ev, ok := booking.ExpiryEvent(b)
	if !ok {
		report.Skipped++
		return
	}

	change, err := s.machine.Apply(b, ev, booking.Input{Actor: model.SystemAuthor}, now)
	if err != nil {
		// The row no longer matches its own timer rule.
		s.logger.Debug().Err(err).Str("reference", b.Reference).Msg("expiry does not apply")
		report.Skipped++
		return
	}

	if err := s.bookings.ApplyChange(ctx, b.ID, change); err != nil {
		if errors.Is(err, repository.ErrStalePrecondition) {
			report.Skipped++
			return
		}
		s.logger.Error().Err(err).Str("reference", b.Reference).Msg("failed to cancel expired booking")
		report.Failed++
		return
	}
	change.ApplyTo(b)
	report.Cancelled = append(report.Cancelled, b.Reference)

	s.logger.Info().
		Str("reference", b.Reference).
		Str("event", string(ev)).
		Msg("booking expired")

	s.dispatcher.Dispatch(context.WithoutCancel(ctx), change.Effects)
}
