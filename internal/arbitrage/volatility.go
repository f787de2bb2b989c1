package arbitrage

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// hoursPerYear annualises returns under an hourly sampling assumption.
const hoursPerYear = 365 * 24

var errTooFewReturns = errors.New("need at least two returns for a sample deviation")

// VolatilityEstimator derives annualised volatility from a HistoryStore.
type VolatilityEstimator struct {
	history *HistoryStore
	logger  *slog.Logger
}

// NewVolatilityEstimator creates an estimator reading from history.
func NewVolatilityEstimator(history *HistoryStore, logger *slog.Logger) *VolatilityEstimator {
	return &VolatilityEstimator{
		history: history,
		logger:  logger.With(slog.String("component", "volatility")),
	}
}

// Volatility returns the annualised volatility of symbol in percent. It is a
// best-effort figure: short histories and invalid prices yield 0.
func (v *VolatilityEstimator) Volatility(symbol domain.AssetSymbol) float64 {
	prices := v.history.History(symbol)
	if len(prices) < 2 {
		return 0
	}
	vol, err := AnnualizedVolatility(prices)
	if err != nil {
		if !errors.Is(err, errTooFewReturns) {
			v.logger.Warn("volatility computation failed",
				slog.String("symbol", string(symbol)),
				slog.String("error", err.Error()),
			)
		}
		return 0
	}
	return vol
}

// AnnualizedVolatility computes the sample standard deviation of the log
// returns of prices, scaled by sqrt(365*24) and expressed in percent.
func AnnualizedVolatility(prices []float64) (float64, error) {
	if len(prices) < 3 {
		return 0, errTooFewReturns
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			return 0, fmt.Errorf("non-positive price at index %d", i)
		}
		r := math.Log(cur / prev)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return 0, fmt.Errorf("non-finite return at index %d", i)
		}
		returns = append(returns, r)
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(returns)-1))

	vol := std * math.Sqrt(hoursPerYear) * 100
	if math.IsNaN(vol) || math.IsInf(vol, 0) {
		return 0, fmt.Errorf("non-finite volatility")
	}
	return vol, nil
}
