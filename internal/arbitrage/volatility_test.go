package arbitrage

import (
	"io"
	"log/slog"
	"math"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVolatilityShortHistory(t *testing.T) {
	h := NewHistoryStore(10)
	v := NewVolatilityEstimator(h, discardLogger())

	if got := v.Volatility("BTC"); got != 0 {
		t.Fatalf("Volatility(empty) = %v, want 0", got)
	}
	h.Record("BTC", 100)
	if got := v.Volatility("BTC"); got != 0 {
		t.Fatalf("Volatility(1 point) = %v, want 0", got)
	}
	h.Record("BTC", 101)
	if got := v.Volatility("BTC"); got != 0 {
		t.Fatalf("Volatility(2 points) = %v, want 0", got)
	}
}

func TestVolatilityConstantPrices(t *testing.T) {
	h := NewHistoryStore(10)
	for i := 0; i < 5; i++ {
		h.Record("ETH", 3000)
	}
	v := NewVolatilityEstimator(h, discardLogger())
	if got := v.Volatility("ETH"); got != 0 {
		t.Fatalf("Volatility(constant) = %v, want 0", got)
	}
}

func TestVolatilityNonPositivePrice(t *testing.T) {
	h := NewHistoryStore(10)
	for _, p := range []float64{100, 0, 102} {
		h.Record("BTC", p)
	}
	v := NewVolatilityEstimator(h, discardLogger())
	if got := v.Volatility("BTC"); got != 0 {
		t.Fatalf("Volatility(with zero price) = %v, want 0", got)
	}
}

func TestAnnualizedVolatilityMatchesFormula(t *testing.T) {
	prices := []float64{100, 110, 99}

	r1 := math.Log(110.0 / 100.0)
	r2 := math.Log(99.0 / 110.0)
	mean := (r1 + r2) / 2
	std := math.Sqrt(((r1-mean)*(r1-mean) + (r2-mean)*(r2-mean)) / 1)
	want := std * math.Sqrt(365*24) * 100

	got, err := AnnualizedVolatility(prices)
	if err != nil {
		t.Fatalf("AnnualizedVolatility: %v", err)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("AnnualizedVolatility = %v, want %v", got, want)
	}
}

func TestAnnualizedVolatilityErrors(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
	}{
		{"too short", []float64{1, 2}},
		{"negative", []float64{1, -2, 3}},
		{"zero", []float64{0, 2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := AnnualizedVolatility(tc.prices); err == nil {
				t.Fatalf("AnnualizedVolatility(%v) returned no error", tc.prices)
			}
		})
	}
}
