// Command seedcatalog connects with the service configuration and upserts a
// small catalog for local runs.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"booking-engine/internal/config"
	"booking-engine/internal/database"
	"booking-engine/internal/model"
	"booking-engine/internal/repository"

	"github.com/shopspring/decimal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return err
	}

	repo := repository.NewItemRepository(pool, logger)
	now := time.Now().UTC()
	items := []model.CatalogItem{
		{ID: "car-1", Type: model.ItemTypeCar, Name: "Compact Sedan", BasePrice: decimal.NewFromInt(1000)},
		{ID: "car-2", Type: model.ItemTypeCar, Name: "Family SUV", BasePrice: decimal.NewFromInt(1800)},
		{ID: "tour-1", Type: model.ItemTypeTour, Name: "Island Hopping", BasePrice: decimal.NewFromInt(2000)},
		{ID: "van-1", Type: model.ItemTypeTransport, Name: "Airport Van", BasePrice: decimal.NewFromInt(800)},
	}
	for i := range items {
		items[i].IsAvailable = true
		items[i].CreatedAt = now
		if err := repo.Upsert(ctx, &items[i]); err != nil {
			return err
		}
	}

	fmt.Printf("Seeded %d catalog items\n", len(items))
	return nil
}
