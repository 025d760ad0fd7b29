// Package app assembles the services both binaries run from configuration.
package app

import (
	"context"
	"fmt"

	"booking-engine/internal/booking"
	"booking-engine/internal/config"
	"booking-engine/internal/database"
	"booking-engine/internal/notify"
	"booking-engine/internal/pricing"
	"booking-engine/internal/promotion"
	"booking-engine/internal/reconcile"
	"booking-engine/internal/repository"
	"booking-engine/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds the wired services and the resources they own.
type App struct {
	Bookings   service.BookingService
	Payments   service.PaymentService
	Reconciler service.ReconciliationService
	Promotions service.PromotionService
	Refunds    service.RefundService
	Scheduler  *reconcile.Scheduler

	closers []func() error
	logger  zerolog.Logger
}

// New connects to the database and the optional backends and wires every
// service. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{logger: logger}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise database: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	dispatcher, err := a.newDispatcher(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() error { dispatcher.Wait(); return nil })

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	}

	a.wireServices(ctx, cfg, pool, rdb, dispatcher)
	return a, nil
}

func (a *App) wireServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, dispatcher service.EffectDispatcher) {
	bookingRepo := repository.NewBookingRepository(pool, a.logger)
	itemRepo := repository.NewItemRepository(pool, a.logger)
	promotionRepo := repository.NewPromotionRepository(pool, a.logger)
	refundRepo := repository.NewRefundRequestRepository(pool, a.logger)

	machine := booking.NewMachine(booking.Windows{
		Pending:           cfg.Booking.PendingWindow,
		AdminConfirmation: cfg.Booking.AdminConfirmationWindow,
		BalanceDue:        cfg.Booking.BalanceDueWindow,
	})

	var source promotion.Source
	var lock reconcile.Lock
	if rdb != nil {
		source = promotion.NewCachedSource(rdb, promotionRepo, cfg.Promotions.CacheTTL, a.logger)
		lock = reconcile.NewRedisLock(rdb, reconcile.DefaultLockKey, cfg.Reconcile.LockTTL)
	} else {
		source = promotion.NewDirectSource(promotionRepo)
		lock = &reconcile.LocalLock{}
	}

	importer := promotion.NewImporter(a.newPromotionLoader(ctx, cfg), promotionRepo, a.logger)

	a.Bookings = service.NewBookingService(bookingRepo, itemRepo, machine, dispatcher, service.SystemClock, cfg.Booking.ReferenceRetries, a.logger)
	a.Payments = service.NewPaymentService(bookingRepo, machine, dispatcher, service.SystemClock, a.logger)
	a.Reconciler = service.NewReconciliationService(bookingRepo, machine, dispatcher, service.SystemClock, a.logger)
	a.Promotions = service.NewPromotionService(promotionRepo, itemRepo, source, importer, pricing.NewEngine(), service.SystemClock, a.logger)
	a.Refunds = service.NewRefundService(refundRepo, bookingRepo, machine, dispatcher, service.SystemClock, a.logger)
	a.Scheduler = reconcile.NewScheduler(a.Reconciler, lock, cfg.Reconcile.Interval, a.logger)
}

// newDispatcher picks SendGrid when an API key is configured and fans
// notifications out to every enabled channel.
func (a *App) newDispatcher(ctx context.Context, cfg *config.Config) (*notify.Dispatcher, error) {
	var mailer notify.Mailer
	if cfg.Email.SendGridAPIKey != "" {
		mailer = notify.NewSendGridMailer(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName, a.logger)
	} else {
		a.logger.Warn().Msg("SENDGRID_API_KEY not set, emails are logged only")
		mailer = notify.NewLogMailer(a.logger)
	}

	notifiers := []notify.Notifier{notify.NewLogNotifier(a.logger)}
	if cfg.Kafka.Enabled {
		kafka := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, a.logger)
		a.closers = append(a.closers, kafka.Close)
		notifiers = append(notifiers, kafka)
	}
	if cfg.Push.Enabled {
		fcm, err := notify.NewFCMNotifier(ctx, cfg.Push.CredentialsFile, cfg.Push.Title, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise push notifications: %w", err)
		}
		notifiers = append(notifiers, fcm)
	}

	return notify.NewDispatcher(mailer, notify.NewMultiNotifier(notifiers...), cfg.Notify.Timeout, a.logger), nil
}

func (a *App) newPromotionLoader(ctx context.Context, cfg *config.Config) promotion.Loader {
	fileLoader := promotion.NewFileLoader(a.logger)
	if !cfg.S3.Enabled {
		a.logger.Info().Msg("using local file system for promotion files (S3 disabled)")
		return fileLoader
	}

	s3Loader, err := promotion.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, a.logger)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to initialise S3 loader, falling back to local file system only")
		s3Loader = nil
	}
	return promotion.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, a.logger)
}

// ImportPromotions loads the configured promotion files, if any.
func (a *App) ImportPromotions(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	report, err := a.Promotions.Import(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to import promotions: %w", err)
	}
	a.logger.Info().
		Int("files", report.Files).
		Int("loaded", report.Loaded).
		Int("upserted", report.Upserted).
		Msg("promotions imported")
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("failed to release resource")
		}
	}
	a.closers = nil
}
