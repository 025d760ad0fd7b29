package notify

import (
	"context"
	"sync"
	"time"

	"booking-engine/internal/model"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds one delivery when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Dispatcher delivers effects after the state change that produced them has
// been committed. Delivery is fire-and-forget: it runs in the background,
// each effect gets its own timeout, and failures are logged and never
// returned.
type Dispatcher struct {
	mailer   Mailer
	notifier Notifier
	timeout  time.Duration
	logger   zerolog.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates an effect dispatcher.
func NewDispatcher(mailer Mailer, notifier Notifier, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		mailer:   mailer,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch hands the effects to a background goroutine and returns
// immediately. Effects of one call are delivered in order. Cancelling ctx
// does not abort delivery; only the per-effect timeout does.
func (d *Dispatcher) Dispatch(ctx context.Context, effects []model.Effect) {
	if len(effects) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error().Interface("panic", r).Msg("effect delivery panicked")
			}
		}()
		for _, effect := range effects {
			d.deliver(ctx, effect)
		}
	}()
}

// Wait blocks until every dispatched effect has been delivered, failed or
// timed out.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, effect model.Effect) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	switch effect.Kind {
	case model.EffectEmail:
		d.sendEmail(ctx, effect)
	case model.EffectNotification:
		d.sendNotification(ctx, effect)
	default:
		d.logger.Warn().Str("kind", string(effect.Kind)).Msg("dropping effect of unknown kind")
	}
}

func (d *Dispatcher) sendEmail(ctx context.Context, effect model.Effect) {
	if effect.Recipient == "" {
		d.logger.Debug().Str("template", string(effect.Template)).Msg("no email recipient, skipping")
		return
	}
	email, err := Render(effect)
	if err != nil {
		d.logger.Error().Err(err).Str("template", string(effect.Template)).Msg("failed to render email")
		return
	}
	if err := d.mailer.Send(ctx, email); err != nil {
		d.logger.Error().
			Err(err).
			Str("template", string(effect.Template)).
			Str("to", effect.Recipient).
			Msg("failed to send email")
		return
	}
	d.logger.Debug().Str("template", string(effect.Template)).Str("to", effect.Recipient).Msg("email sent")
}

func (d *Dispatcher) sendNotification(ctx context.Context, effect model.Effect) {
	if err := d.notifier.Notify(ctx, effect.Recipient, effect.Message, effect.Link); err != nil {
		d.logger.Error().
			Err(err).
			Str("recipient", effect.Recipient).
			Msg("failed to send notification")
	}
}
