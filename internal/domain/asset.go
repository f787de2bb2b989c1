package domain

import (
	"fmt"
	"strings"
)

// AssetSymbol identifies a logical tradable asset (e.g. "BTC"). It is the
// unit of aggregation across exchanges.
type AssetSymbol string

// ExchangeID identifies a trading venue (e.g. "binance").
type ExchangeID string

// MappingRow is one asset together with its venue-specific trading pairs.
type MappingRow struct {
	Asset AssetSymbol
	Pairs map[ExchangeID]string
}

// SymbolMapping maps (asset, exchange) to the trading pair string a venue
// expects. It is built once at startup and never mutated afterwards.
type SymbolMapping struct {
	assets    []AssetSymbol
	exchanges []ExchangeID
	pairs     map[AssetSymbol]map[ExchangeID]string
}

// NewSymbolMapping builds an immutable mapping. Asset order and exchange order
// are preserved; they define iteration order for aggregation and detection.
// Empty pair strings are treated as "no listing" for that venue.
func NewSymbolMapping(exchanges []ExchangeID, rows []MappingRow) (*SymbolMapping, error) {
	if len(exchanges) == 0 {
		return nil, fmt.Errorf("mapping: no exchange columns")
	}
	seenEx := make(map[ExchangeID]bool, len(exchanges))
	for _, ex := range exchanges {
		if ex == "" {
			return nil, fmt.Errorf("mapping: empty exchange name")
		}
		if seenEx[ex] {
			return nil, fmt.Errorf("mapping: duplicate exchange %q", ex)
		}
		seenEx[ex] = true
	}

	m := &SymbolMapping{
		assets:    make([]AssetSymbol, 0, len(rows)),
		exchanges: append([]ExchangeID(nil), exchanges...),
		pairs:     make(map[AssetSymbol]map[ExchangeID]string, len(rows)),
	}
	for _, row := range rows {
		if row.Asset == "" {
			return nil, fmt.Errorf("mapping: empty base symbol")
		}
		if _, dup := m.pairs[row.Asset]; dup {
			return nil, fmt.Errorf("mapping: duplicate base symbol %q", row.Asset)
		}
		venues := make(map[ExchangeID]string, len(exchanges))
		for ex, pair := range row.Pairs {
			if !seenEx[ex] {
				return nil, fmt.Errorf("mapping: %s: unknown exchange %q", row.Asset, ex)
			}
			if p := strings.TrimSpace(pair); p != "" {
				venues[ex] = p
			}
		}
		m.assets = append(m.assets, row.Asset)
		m.pairs[row.Asset] = venues
	}
	return m, nil
}

// Assets returns the monitored assets in mapping order.
func (m *SymbolMapping) Assets() []AssetSymbol {
	return append([]AssetSymbol(nil), m.assets...)
}

// Exchanges returns the exchange columns in mapping order.
func (m *SymbolMapping) Exchanges() []ExchangeID {
	return append([]ExchangeID(nil), m.exchanges...)
}

// Pair returns the venue-specific pair for asset on exchange. The second
// return value is false when the asset or venue has no listing.
func (m *SymbolMapping) Pair(asset AssetSymbol, exchange ExchangeID) (string, bool) {
	venues, ok := m.pairs[asset]
	if !ok {
		return "", false
	}
	p, ok := venues[exchange]
	return p, ok
}

// Len returns the number of monitored assets.
func (m *SymbolMapping) Len() int { return len(m.assets) }
