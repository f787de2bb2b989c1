package domain

import "time"

// Opportunity is a detected cross-exchange price discrepancy. It is built once
// by the detector and never modified.
type Opportunity struct {
	ID            string      `json:"id"`
	Symbol        AssetSymbol `json:"symbol"`
	SpreadPct     float64     `json:"spread_pct"`
	VolatilityPct float64     `json:"volatility_pct"`
	BuyExchange   ExchangeID  `json:"buy_exchange"`
	SellExchange  ExchangeID  `json:"sell_exchange"`
	BuyPrice      float64     `json:"buy_price"`
	SellPrice     float64     `json:"sell_price"`
	Profit        float64     `json:"profit"`
	DetectedAt    time.Time   `json:"detected_at"`
}

// CycleReport summarises one completed polling cycle.
type CycleReport struct {
	ID            string          `json:"id"`
	StartedAt     time.Time       `json:"started_at"`
	Duration      time.Duration   `json:"duration"`
	Prices        PriceMap        `json:"prices"`
	Opportunities []Opportunity   `json:"opportunities"`
	Exchanges     []ExchangeStats `json:"exchanges"`
	Notified      int             `json:"notified"`
	NotifyFailed  int             `json:"notify_failed"`
}

// Tickers flattens the report's price map into one row per quote.
func (r CycleReport) Tickers() []TickerSnapshot {
	var out []TickerSnapshot
	for _, sq := range r.Prices.Symbols {
		for _, q := range sq.Quotes {
			out = append(out, TickerSnapshot{
				Exchange:    q.Exchange,
				Symbol:      sq.Symbol,
				LastPrice:   q.Price,
				QuoteVolume: q.Volume,
				FetchedAt:   r.Prices.ObservedAt,
			})
		}
	}
	return out
}
