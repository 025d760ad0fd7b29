package repository

import (
	"context"
	"testing"
	"time"

	"booking-engine/internal/database"
	"booking-engine/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// setupTestDB creates a PostgreSQL testcontainer with the schema migrated.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.NewPoolFromURL(ctx, connStr, 5, 1, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func newBooking(reference string, itemType model.ItemType, option model.PaymentOption) *model.Booking {
	return &model.Booking{
		Reference: reference,
		ItemType:  itemType,
		ItemID:    "item-1",
		ItemName:  "Test item",
		Customer: model.Customer{
			OwnerID: "owner-1",
			Name:    "Ana Cruz",
			Email:   "ana@example.com",
		},
		StartDate:     testNow.Add(10 * 24 * time.Hour),
		EndDate:       testNow.Add(12 * 24 * time.Hour),
		NumberOfDays:  2,
		TotalPrice:    decimal.NewFromInt(1000),
		AmountPaid:    decimal.Zero,
		PaymentOption: option,
		Status:        model.StatusPending,
		Payments:      []model.Payment{},
		Notes:         []model.Note{},
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
}
