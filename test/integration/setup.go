package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"booking-engine/internal/database"
	"booking-engine/internal/model"
	"booking-engine/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, a pool and the schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	pool, err := database.NewPoolFromURL(ctx, connStr, 10, 2, 5*time.Minute, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedItems inserts the catalog used by the flows.
func SeedItems(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	repo := repository.NewItemRepository(pool, zerolog.Nop())
	items := []model.CatalogItem{
		{ID: "car-1", Type: model.ItemTypeCar, Name: "Compact Sedan", BasePrice: decimal.NewFromInt(1000), IsAvailable: true},
		{ID: "tour-1", Type: model.ItemTypeTour, Name: "Island Hopping", BasePrice: decimal.NewFromInt(2000), IsAvailable: true},
		{ID: "van-1", Type: model.ItemTypeTransport, Name: "Airport Van", BasePrice: decimal.NewFromInt(800), IsAvailable: true},
		{ID: "car-off", Type: model.ItemTypeCar, Name: "Retired SUV", BasePrice: decimal.NewFromInt(1500), IsAvailable: false},
	}

	for i := range items {
		items[i].CreatedAt = time.Now().UTC()
		if err := repo.Upsert(context.Background(), &items[i]); err != nil {
			t.Fatalf("failed to seed item %s: %v", items[i].ID, err)
		}
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	tables := []string{
		"refund_request_notes", "refund_requests",
		"booking_notes", "booking_payments", "bookings",
		"promotions", "catalog_items",
	}
	for _, table := range tables {
		if _, err := pool.Exec(context.Background(), fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// recordingDispatcher keeps every dispatched effect.
type recordingDispatcher struct {
	mu      sync.Mutex
	effects []model.Effect
}

func (d *recordingDispatcher) Dispatch(_ context.Context, effects []model.Effect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.effects = append(d.effects, effects...)
}

func (d *recordingDispatcher) templates() []model.EmailTemplate {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.EmailTemplate
	for _, e := range d.effects {
		if e.Kind == model.EffectEmail {
			out = append(out, e.Template)
		}
	}
	return out
}

// testClock is a settable clock shared by every service in a flow.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
