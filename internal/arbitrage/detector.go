package arbitrage

import (
	"log/slog"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Default detection thresholds.
const (
	DefaultMinSpreadPct = 1.5
	DefaultMinVolume    = 10000
)

// VolatilitySource supplies the informational volatility figure attached to
// each opportunity.
type VolatilitySource interface {
	Volatility(symbol domain.AssetSymbol) float64
}

// DetectorConfig holds the liquidity and spread thresholds.
type DetectorConfig struct {
	// MinSpreadPct is the smallest (max-min)/min*100 spread that qualifies.
	MinSpreadPct float64
	// MinVolume is the minimum quote-currency volume a quote needs to be
	// considered at all.
	MinVolume float64
}

// Detector turns a cross-exchange price map into opportunities. It holds no
// state of its own, so detecting the same PriceMap twice yields the same
// result provided the volatility source has not changed in between.
type Detector struct {
	cfg    DetectorConfig
	vol    VolatilitySource
	logger *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(cfg DetectorConfig, vol VolatilitySource, logger *slog.Logger) *Detector {
	return &Detector{
		cfg:    cfg,
		vol:    vol,
		logger: logger.With(slog.String("component", "detector")),
	}
}

// Detect evaluates every symbol of pm in order and returns the qualifying
// opportunities in that same order.
func (d *Detector) Detect(pm domain.PriceMap) []domain.Opportunity {
	var out []domain.Opportunity
	for _, sq := range pm.Symbols {
		opp, ok := d.evaluate(sq)
		if !ok {
			continue
		}
		opp.ID = opportunityID(pm.CycleID, sq.Symbol)
		opp.DetectedAt = pm.ObservedAt
		out = append(out, opp)
	}
	return out
}

func (d *Detector) evaluate(sq domain.SymbolQuotes) (domain.Opportunity, bool) {
	var (
		liquid   int
		buy      domain.Quote
		sell     domain.Quote
		haveBest bool
	)
	for _, q := range sq.Quotes {
		if q.Volume < d.cfg.MinVolume {
			continue
		}
		liquid++
		if !haveBest {
			buy, sell, haveBest = q, q, true
			continue
		}
		// Strict comparisons keep the first quote on ties.
		if q.Price < buy.Price {
			buy = q
		}
		if q.Price > sell.Price {
			sell = q
		}
	}
	if liquid < 2 {
		return domain.Opportunity{}, false
	}

	if buy.Price <= 0 {
		d.logger.Debug("non-positive minimum price",
			slog.String("symbol", string(sq.Symbol)),
			slog.String("exchange", string(buy.Exchange)),
			slog.Float64("price", buy.Price),
		)
		return domain.Opportunity{}, false
	}

	spread := SpreadPct(buy.Price, sell.Price)
	if spread < d.cfg.MinSpreadPct {
		return domain.Opportunity{}, false
	}

	var vol float64
	if d.vol != nil {
		vol = d.vol.Volatility(sq.Symbol)
	}

	return domain.Opportunity{
		Symbol:        sq.Symbol,
		SpreadPct:     spread,
		VolatilityPct: vol,
		BuyExchange:   buy.Exchange,
		SellExchange:  sell.Exchange,
		BuyPrice:      buy.Price,
		SellPrice:     sell.Price,
		Profit:        sell.Price - buy.Price,
	}, true
}

// SpreadPct returns (max-min)/min*100. Callers must ensure min > 0.
func SpreadPct(minPrice, maxPrice float64) float64 {
	return (maxPrice - minPrice) / minPrice * 100
}

func opportunityID(cycleID string, symbol domain.AssetSymbol) string {
	if cycleID == "" {
		return string(symbol)
	}
	return cycleID + "/" + string(symbol)
}
