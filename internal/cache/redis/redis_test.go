package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// testClient connects to ARBWATCH_TEST_REDIS (default localhost:6379) and
// skips the test when no server is reachable.
func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("ARBWATCH_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := New(ctx, ClientConfig{Addr: addr, KeyPrefix: "arbwatch-test:" + uuid.NewString()})
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientKeyPrefix(t *testing.T) {
	c := &Client{prefix: "p"}
	if got := c.key("ticker", "binance", "BTC"); got != "p:ticker:binance:BTC" {
		t.Fatalf("key = %q", got)
	}
	c = &Client{}
	if got := c.key("lock", "x"); got != "lock:x" {
		t.Fatalf("key = %q", got)
	}
}

func TestOptionsFromURL(t *testing.T) {
	opts, err := options(ClientConfig{URL: "redis://:pw@example:6380/2", PoolSize: 7})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "example:6380" || opts.Password != "pw" || opts.DB != 2 || opts.PoolSize != 7 {
		t.Fatalf("options = %+v", opts)
	}
	if _, err := options(ClientConfig{URL: "http://nope"}); err == nil {
		t.Fatal("expected error for bad scheme")
	}
}

func TestPriceCacheRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	pc := NewPriceCache(c, time.Minute)

	if _, err := pc.GetTicker(ctx, "binance", "BTC"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetTicker on empty cache: %v", err)
	}

	want := domain.TickerSnapshot{
		Exchange:    "binance",
		Symbol:      "BTC",
		Pair:        "BTC/USDT",
		LastPrice:   50000,
		QuoteVolume: 1e6,
		FetchedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := pc.SetTickers(ctx, []domain.TickerSnapshot{want}); err != nil {
		t.Fatalf("SetTickers: %v", err)
	}
	got, err := pc.GetTicker(ctx, "binance", "BTC")
	if err != nil {
		t.Fatalf("GetTicker: %v", err)
	}
	if got.Pair != want.Pair || got.LastPrice != want.LastPrice || got.QuoteVolume != want.QuoteVolume || !got.FetchedAt.Equal(want.FetchedAt) {
		t.Fatalf("GetTicker = %+v, want %+v", got, want)
	}
}

func TestRateLimiterAllow(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	rl := NewRateLimiter(c)

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "binance", 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := rl.Allow(ctx, "binance", 3, time.Minute)
	if err != nil || ok {
		t.Fatalf("4th request: ok=%v err=%v, want denied", ok, err)
	}

	wctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if err := rl.Wait(wctx, "binance", 3, time.Minute); err == nil {
		t.Fatal("Wait should time out while the window is full")
	}
}

func TestLockManager(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	lm := NewLockManager(c)

	unlock, err := lm.Acquire(ctx, "cycle", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := lm.Acquire(ctx, "cycle", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("second Acquire: %v, want ErrLockHeld", err)
	}
	unlock()
	unlock()

	again, err := lm.Acquire(ctx, "cycle", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after unlock: %v", err)
	}
	again()
}

func TestSignalBus(t *testing.T) {
	c := testClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	bus := NewSignalBus(c)

	channel := c.key("opportunities")
	ch, err := bus.Subscribe(ctx, channel)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := bus.Publish(ctx, channel, []byte("hello")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case msg := <-ch:
		if string(msg) != "hello" {
			t.Fatalf("got %q", msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}
