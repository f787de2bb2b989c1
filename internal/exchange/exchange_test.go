package exchange

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

type stubConnector struct {
	id      domain.ExchangeID
	markets map[string]struct{}
	loadErr error
	fetched int
}

func (s *stubConnector) ID() domain.ExchangeID { return s.id }

func (s *stubConnector) LoadMarkets(ctx context.Context) (map[string]struct{}, error) {
	return s.markets, s.loadErr
}

func (s *stubConnector) FetchTicker(ctx context.Context, pair string) (domain.TickerSnapshot, error) {
	s.fetched++
	return domain.TickerSnapshot{Pair: pair, LastPrice: 1, QuoteVolume: 1}, nil
}

type stubLimiter struct {
	waits int
	err   error
}

func (l *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}

func (l *stubLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	l.waits++
	return l.err
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestOpenLoadsMarkets(t *testing.T) {
	conn := &stubConnector{id: "x", markets: map[string]struct{}{"BTC/USDT": {}}}
	v, err := Open(context.Background(), conn, VenueOptions{}, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !v.Supports("BTC/USDT") || v.Supports("ETH/USDT") {
		t.Fatal("Supports does not reflect loaded markets")
	}
	if v.MarketCount() != 1 || v.ID() != "x" {
		t.Fatalf("MarketCount/ID = %d/%s", v.MarketCount(), v.ID())
	}
}

func TestOpenFailsWhenMarketsFail(t *testing.T) {
	conn := &stubConnector{id: "x", loadErr: errors.New("down")}
	if _, err := Open(context.Background(), conn, VenueOptions{}, testLogger()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFetchTickerUsesLimiter(t *testing.T) {
	conn := &stubConnector{id: "x", markets: map[string]struct{}{}}
	lim := &stubLimiter{}
	v, _ := Open(context.Background(), conn, VenueOptions{Limiter: lim, RatePerSecond: 5}, testLogger())

	if _, err := v.FetchTicker(context.Background(), "BTC/USDT"); err != nil {
		t.Fatalf("FetchTicker: %v", err)
	}
	if lim.waits != 1 || conn.fetched != 1 {
		t.Fatalf("waits=%d fetched=%d", lim.waits, conn.fetched)
	}

	// A broken limiter does not block polling.
	lim.err = errors.New("redis down")
	if _, err := v.FetchTicker(context.Background(), "BTC/USDT"); err != nil {
		t.Fatalf("FetchTicker with failing limiter: %v", err)
	}
	if conn.fetched != 2 {
		t.Fatalf("fetched = %d, want 2", conn.fetched)
	}
}

func TestFetchTickerCancelledWait(t *testing.T) {
	conn := &stubConnector{id: "x", markets: map[string]struct{}{}}
	lim := &stubLimiter{err: context.Canceled}
	v, _ := Open(context.Background(), conn, VenueOptions{Limiter: lim, RatePerSecond: 5}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := v.FetchTicker(ctx, "BTC/USDT"); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("error %v does not wrap ErrNetwork", err)
	}
	if conn.fetched != 0 {
		t.Fatal("connector queried after cancellation")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	ids := r.List()
	if len(ids) != 3 || ids[0] != "binance" || ids[1] != "coinbase" || ids[2] != "kraken" {
		t.Fatalf("List = %v", ids)
	}
	f, err := r.Get("kraken")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c := f("", time.Second); c.ID() != "kraken" {
		t.Fatalf("factory built %s", c.ID())
	}
	if _, err := r.Get("bitfinex"); err == nil {
		t.Fatal("expected unknown-venue error")
	}
}
