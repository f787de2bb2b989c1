package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// DefaultTickerTTL bounds how long a ticker stays readable after the last
// cycle that observed it.
const DefaultTickerTTL = 5 * time.Minute

// PriceCache implements domain.PriceCache. Each ticker is stored as JSON at
// "ticker:{exchange}:{symbol}" with a TTL so stale venues age out.
type PriceCache struct {
	c   *Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache. A non-positive ttl uses
// DefaultTickerTTL.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		ttl = DefaultTickerTTL
	}
	return &PriceCache{c: c, ttl: ttl}
}

func (pc *PriceCache) tickerKey(exchange domain.ExchangeID, symbol domain.AssetSymbol) string {
	return pc.c.key("ticker", string(exchange), string(symbol))
}

// SetTicker stores the latest ticker for (exchange, symbol).
func (pc *PriceCache) SetTicker(ctx context.Context, t domain.TickerSnapshot) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis: marshal ticker: %w", err)
	}
	key := pc.tickerKey(t.Exchange, t.Symbol)
	if err := pc.c.rdb.Set(ctx, key, data, pc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set ticker %s: %w", key, err)
	}
	return nil
}

// SetTickers stores a batch of tickers in one pipeline round trip.
func (pc *PriceCache) SetTickers(ctx context.Context, tickers []domain.TickerSnapshot) error {
	if len(tickers) == 0 {
		return nil
	}
	pipe := pc.c.rdb.Pipeline()
	for _, t := range tickers {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("redis: marshal ticker: %w", err)
		}
		pipe.Set(ctx, pc.tickerKey(t.Exchange, t.Symbol), data, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set tickers pipeline: %w", err)
	}
	return nil
}

// GetTicker returns the cached ticker or domain.ErrNotFound.
func (pc *PriceCache) GetTicker(ctx context.Context, exchange domain.ExchangeID, symbol domain.AssetSymbol) (domain.TickerSnapshot, error) {
	key := pc.tickerKey(exchange, symbol)
	data, err := pc.c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TickerSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("redis: get ticker %s: %w", key, err)
	}

	var t domain.TickerSnapshot
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("redis: decode ticker %s: %w", key, err)
	}
	return t, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
