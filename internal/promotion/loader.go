package promotion

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"booking-engine/internal/model"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for gzipped newline-delimited JSON files.
type fileLoader struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewFileLoader creates a new file-based promotion loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "promotion-loader").Logger(),
		now:    time.Now,
	}
}

// Load reads a gzipped file with one promotion JSON object per line.
func (l *fileLoader) Load(ctx context.Context, filePath string) ([]model.Promotion, error) {
	l.logger.Info().Str("file", filePath).Msg("loading promotion file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open promotion file")
		return nil, fmt.Errorf("failed to open promotion file %s: %w", filePath, err)
	}
	defer file.Close()

	promotions, err := decodeGzip(ctx, file, filePath, l.now())
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("error reading promotion file")
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("promotions_loaded", len(promotions)).
		Msg("promotion file loaded successfully")

	return promotions, nil
}

// decodeGzip parses gzipped NDJSON promotion records. Blank lines are
// skipped; any malformed or invalid record fails the whole file.
func decodeGzip(ctx context.Context, r io.Reader, source string, now time.Time) ([]model.Promotion, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var promotions []model.Promotion
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req model.PromotionRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return nil, fmt.Errorf("%s line %d: invalid JSON: %w", source, lineNo, err)
		}
		p, err := Build(&req, now)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, lineNo, err)
		}
		promotions = append(promotions, *p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading promotion file %s: %w", source, err)
	}
	return promotions, nil
}
