// Package exchange turns raw venue connectors into ready-to-poll venues:
// markets are loaded once at startup and every ticker request is optionally
// throttled through a shared rate limiter.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Connector is the public-market-data surface each venue client provides.
type Connector interface {
	ID() domain.ExchangeID
	LoadMarkets(ctx context.Context) (map[string]struct{}, error)
	FetchTicker(ctx context.Context, pair string) (domain.TickerSnapshot, error)
}

// VenueOptions configures request throttling for a venue.
type VenueOptions struct {
	// Limiter, when non-nil, gates every ticker request.
	Limiter domain.RateLimiter
	// RatePerSecond is the request budget per second. Zero disables
	// throttling.
	RatePerSecond int
}

// Venue is a connector whose market set has been loaded.
type Venue struct {
	conn    Connector
	markets map[string]struct{}
	opts    VenueOptions
	logger  *slog.Logger
}

// Open loads the connector's markets. A failure here is fatal to startup:
// without a market set no pair can be validated.
func Open(ctx context.Context, conn Connector, opts VenueOptions, logger *slog.Logger) (*Venue, error) {
	markets, err := conn.LoadMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange: open %s: %w", conn.ID(), err)
	}
	return &Venue{
		conn:    conn,
		markets: markets,
		opts:    opts,
		logger:  logger.With(slog.String("component", "venue"), slog.String("exchange", string(conn.ID()))),
	}, nil
}

// ID returns the venue identifier.
func (v *Venue) ID() domain.ExchangeID { return v.conn.ID() }

// Supports reports whether pair is listed on the venue.
func (v *Venue) Supports(pair string) bool {
	_, ok := v.markets[pair]
	return ok
}

// MarketCount returns the number of loaded markets.
func (v *Venue) MarketCount() int { return len(v.markets) }

// FetchTicker waits for rate-limit budget and then queries the connector.
// Limiter failures other than cancellation are logged and ignored.
func (v *Venue) FetchTicker(ctx context.Context, pair string) (domain.TickerSnapshot, error) {
	if v.opts.Limiter != nil && v.opts.RatePerSecond > 0 {
		key := "exchange:" + string(v.conn.ID())
		if err := v.opts.Limiter.Wait(ctx, key, v.opts.RatePerSecond, time.Second); err != nil {
			if ctx.Err() != nil {
				return domain.TickerSnapshot{}, fmt.Errorf("%w: rate limit wait: %v", domain.ErrNetwork, ctx.Err())
			}
			v.logger.Warn("rate limiter unavailable, continuing", slog.String("error", err.Error()))
		}
	}
	return v.conn.FetchTicker(ctx, pair)
}
