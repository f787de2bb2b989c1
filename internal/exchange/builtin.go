package exchange

import (
	"time"

	"github.com/alanyoungcy/arbwatch/internal/platform/binance"
	"github.com/alanyoungcy/arbwatch/internal/platform/coinbase"
	"github.com/alanyoungcy/arbwatch/internal/platform/kraken"
)

// DefaultRegistry returns a registry with every built-in venue.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(binance.ID, func(baseURL string, timeout time.Duration) Connector {
		return binance.NewClient(baseURL, timeout)
	})
	r.Register(coinbase.ID, func(baseURL string, timeout time.Duration) Connector {
		return coinbase.NewClient(baseURL, timeout)
	})
	r.Register(kraken.ID, func(baseURL string, timeout time.Duration) Connector {
		return kraken.NewClient(baseURL, timeout)
	})
	return r
}
