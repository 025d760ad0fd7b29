// Command genpromotions writes sample gzipped NDJSON promotion files for the
// bulk importer.
package main

import (
	"compress/gzip"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"booking-engine/internal/model"

	"github.com/shopspring/decimal"
)

// File 1: Summer Cars, Island Tours, Early Bird
// File 2: Early Bird (redefined, wins on import), Airport Transfers
func main() {
	dataDir := flag.String("dir", "data/promotions", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	start := time.Now().UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 3, 0)

	files := map[string][]model.PromotionRequest{
		"promotions1.ndjson.gz": {
			{Title: "Summer Cars", DiscountType: model.DiscountPercentage, DiscountValue: decimal.NewFromInt(15), ApplicableTo: "car", IsActive: true, StartDate: start, EndDate: end},
			{Title: "Island Tours", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(300), ApplicableTo: "tour", ItemIDs: []string{"tour-1"}, IsActive: true, StartDate: start, EndDate: end},
			{Title: "Early Bird", DiscountType: model.DiscountPercentage, DiscountValue: decimal.NewFromInt(5), ApplicableTo: "all", IsActive: true, StartDate: start, EndDate: end},
		},
		"promotions2.ndjson.gz": {
			{Title: "Early Bird", DiscountType: model.DiscountPercentage, DiscountValue: decimal.NewFromInt(8), ApplicableTo: "all", IsActive: true, StartDate: start, EndDate: end},
			{Title: "Airport Transfers", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(100), ApplicableTo: "transport", IsActive: false, StartDate: start, EndDate: end},
		},
	}

	for filename, promotions := range files {
		filePath := filepath.Join(*dataDir, filename)

		if err := writePromotionFile(filePath, promotions); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d promotions\n", filePath, len(promotions))
	}

	fmt.Println("\nImport with PROMOTION_IMPORT_FILES=promotions1.ndjson.gz,promotions2.ndjson.gz")
}

func writePromotionFile(filePath string, promotions []model.PromotionRequest) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	enc := json.NewEncoder(gzipWriter)
	for i := range promotions {
		if err := enc.Encode(&promotions[i]); err != nil {
			return fmt.Errorf("failed to write promotion: %w", err)
		}
	}

	return nil
}
