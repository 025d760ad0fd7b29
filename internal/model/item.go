package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType classifies what is being rented.
type ItemType string

const (
	ItemTypeCar       ItemType = "car"
	ItemTypeTour      ItemType = "tour"
	ItemTypeTransport ItemType = "transport"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeCar, ItemTypeTour, ItemTypeTransport:
		return true
	}
	return false
}

// CatalogItem is a rentable car, tour or transport service.
type CatalogItem struct {
	ID          string          `json:"id" db:"id"`
	Type        ItemType        `json:"type" db:"item_type"`
	Name        string          `json:"name" db:"name"`
	BasePrice   decimal.Decimal `json:"basePrice" db:"base_price"`
	IsAvailable bool            `json:"isAvailable" db:"is_available"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}
