package domain

import (
	"context"
	"time"
)

// PriceCache keeps the latest ticker per (exchange, symbol) for readers
// outside the polling process.
type PriceCache interface {
	SetTicker(ctx context.Context, t TickerSnapshot) error
	GetTicker(ctx context.Context, exchange ExchangeID, symbol AssetSymbol) (TickerSnapshot, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub messaging.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
