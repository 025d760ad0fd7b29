package booking

import (
	"crypto/rand"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"booking-engine/internal/model"
)

const referenceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var referencePrefixes = map[model.ItemType]string{
	model.ItemTypeCar:       "CAR",
	model.ItemTypeTour:      "TOUR",
	model.ItemTypeTransport: "TRN",
}

// NewReference generates a booking reference of the form
// PREFIX-TIMESTAMP36-RANDOM4, all uppercase.
func NewReference(itemType model.ItemType, now time.Time) (string, error) {
	prefix, ok := referencePrefixes[itemType]
	if !ok {
		prefix = "BK"
	}

	suffix := make([]byte, 4)
	base := big.NewInt(int64(len(referenceAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}

	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return prefix + "-" + stamp + "-" + string(suffix), nil
}

// NumberOfDays returns the whole days covered by [start, end], rounded up
// and never less than one. A zero end means a single-day item.
func NumberOfDays(start, end time.Time) int {
	if end.IsZero() || !end.After(start) {
		return 1
	}
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}
