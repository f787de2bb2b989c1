package domain

import (
	"errors"
	"time"
)

// TickerSnapshot is the result of one ticker query against one venue.
type TickerSnapshot struct {
	Exchange    ExchangeID  `json:"exchange"`
	Symbol      AssetSymbol `json:"symbol"`
	Pair        string      `json:"pair"`
	LastPrice   float64     `json:"last_price"`
	QuoteVolume float64     `json:"quote_volume"`
	FetchedAt   time.Time   `json:"fetched_at"`
}

// SkipReason explains why a (symbol, exchange) pair produced no quote.
type SkipReason string

const (
	SkipNone        SkipReason = ""
	SkipUnmapped    SkipReason = "unmapped"
	SkipUnsupported SkipReason = "unsupported"
	SkipNetwork     SkipReason = "network"
	SkipExchange    SkipReason = "exchange"
	SkipEmpty       SkipReason = "empty"
	SkipError       SkipReason = "error"
)

// FetchOutcome is the per-pair result of one aggregation cycle: either a
// snapshot (Skip == SkipNone) or a skip reason with an optional cause.
type FetchOutcome struct {
	Symbol   AssetSymbol
	Exchange ExchangeID
	Pair     string
	Snapshot TickerSnapshot
	Skip     SkipReason
	Err      error
}

// OK reports whether the outcome carries a usable snapshot.
func (o FetchOutcome) OK() bool { return o.Skip == SkipNone }

// ClassifyFetchError maps a connector error to its skip reason.
func ClassifyFetchError(err error) SkipReason {
	switch {
	case err == nil:
		return SkipNone
	case errors.Is(err, ErrUnsupportedPair):
		return SkipUnsupported
	case errors.Is(err, ErrExchange):
		return SkipExchange
	case errors.Is(err, ErrNetwork):
		return SkipNetwork
	default:
		return SkipError
	}
}

// Quote is one venue's observed price and quote volume for a symbol.
type Quote struct {
	Exchange ExchangeID `json:"exchange"`
	Price    float64    `json:"price"`
	Volume   float64    `json:"volume"`
}

// SymbolQuotes holds every quote gathered for one symbol in one cycle, in
// exchange iteration order.
type SymbolQuotes struct {
	Symbol AssetSymbol `json:"symbol"`
	Quotes []Quote     `json:"quotes"`
}

// PriceMap is the cross-exchange view built by one aggregation cycle. Symbols
// appear in mapping order. It is discarded at the end of the cycle.
type PriceMap struct {
	CycleID    string         `json:"cycle_id"`
	ObservedAt time.Time      `json:"observed_at"`
	Symbols    []SymbolQuotes `json:"symbols"`
}

// Quotes returns the quotes for symbol, or nil if it is not present.
func (pm PriceMap) Quotes(symbol AssetSymbol) []Quote {
	for _, sq := range pm.Symbols {
		if sq.Symbol == symbol {
			return sq.Quotes
		}
	}
	return nil
}

// ExchangeStats summarises one venue's fetch results for a cycle.
type ExchangeStats struct {
	Exchange  ExchangeID `json:"exchange"`
	Fetched   int        `json:"fetched"`
	Skipped   int        `json:"skipped"`
	LastError string     `json:"last_error,omitempty"`
}
