package promotion

import (
	"context"
	"fmt"
	"sync"

	"booking-engine/internal/model"

	"github.com/rs/zerolog"
)

// ImportReport summarises a bulk import.
type ImportReport struct {
	Files    int `json:"files"`
	Loaded   int `json:"loaded"`
	Upserted int `json:"upserted"`
}

// Importer loads promotion files concurrently and upserts them by title.
type Importer struct {
	loader Loader
	store  Store
	logger zerolog.Logger
}

// NewImporter creates a promotion importer.
func NewImporter(loader Loader, store Store, logger zerolog.Logger) *Importer {
	return &Importer{
		loader: loader,
		store:  store,
		logger: logger.With().Str("component", "promotion-importer").Logger(),
	}
}

// Import loads every path and upserts the result in one batch. When two
// files define the same title, the later path wins. Nothing is written if
// any file fails to load or any promotion fails to store.
func (i *Importer) Import(ctx context.Context, paths []string) (*ImportReport, error) {
	type loadResult struct {
		index      int
		promotions []model.Promotion
		err        error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for idx, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			promotions, err := i.loader.Load(ctx, path)
			resultChan <- loadResult{index: index, promotions: promotions, err: err}
		}(idx, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	report := &ImportReport{Files: len(paths)}
	byTitle := make(map[string]int)
	var merged []model.Promotion

	for idx, result := range results {
		if result.err != nil {
			i.logger.Error().Err(result.err).Str("file", paths[idx]).Msg("failed to load promotion file")
			return nil, fmt.Errorf("failed to load promotion file %s: %w", paths[idx], result.err)
		}
		report.Loaded += len(result.promotions)
		for _, p := range result.promotions {
			if pos, seen := byTitle[p.Title]; seen {
				merged[pos] = p
				continue
			}
			byTitle[p.Title] = len(merged)
			merged = append(merged, p)
		}
	}

	if len(merged) > 0 {
		if err := i.store.UpsertAll(ctx, merged); err != nil {
			i.logger.Error().Err(err).Int("promotions", len(merged)).Msg("failed to store imported promotions")
			return nil, fmt.Errorf("failed to store imported promotions: %w", err)
		}
	}
	report.Upserted = len(merged)

	i.logger.Info().
		Int("files", report.Files).
		Int("loaded", report.Loaded).
		Int("upserted", report.Upserted).
		Msg("promotion import complete")

	return report, nil
}
