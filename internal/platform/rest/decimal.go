package rest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// ParseDecimal parses a venue-supplied numeric string. An empty string is
// reported as zero so callers can treat it as "no data".
func ParseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: field %s: %v", domain.ErrExchange, field, err)
	}
	return d, nil
}
