package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeTickers struct {
	got []domain.TickerSnapshot
	err error
}

func (f *fakeTickers) SetTickers(ctx context.Context, tickers []domain.TickerSnapshot) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	f.got = append(f.got, tickers...)
	return f.err
}

type published struct {
	channel string
	msg     domain.StreamMessage
}

type fakeBus struct {
	out []published
	err error
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	var msg domain.StreamMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	b.out = append(b.out, published{channel: channel, msg: msg})
	return b.err
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func report() domain.CycleReport {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return domain.CycleReport{
		ID:       "c1",
		Duration: 2 * time.Second,
		Prices: domain.PriceMap{
			CycleID:    "c1",
			ObservedAt: at,
			Symbols: []domain.SymbolQuotes{
				{Symbol: "BTC", Quotes: []domain.Quote{
					{Exchange: "binance", Price: 100, Volume: 20000},
					{Exchange: "kraken", Price: 102, Volume: 30000},
				}},
				{Symbol: "ETH", Quotes: []domain.Quote{}},
			},
		},
		Opportunities: []domain.Opportunity{
			{ID: "c1/BTC", Symbol: "BTC", BuyExchange: "binance", SellExchange: "kraken"},
		},
		Exchanges: []domain.ExchangeStats{
			{Exchange: "binance", Fetched: 1, Skipped: 1},
			{Exchange: "kraken", Fetched: 1, Skipped: 1},
		},
		Notified: 1,
	}
}

func TestPriceServiceCachesAndPublishes(t *testing.T) {
	cache := &fakeTickers{}
	bus := &fakeBus{}
	NewPriceService(cache, bus, testLogger()).ObserveCycle(context.Background(), report())

	if len(cache.got) != 2 {
		t.Fatalf("cached %d tickers, want 2", len(cache.got))
	}
	if cache.got[1].Exchange != "kraken" || cache.got[1].Symbol != "BTC" || cache.got[1].LastPrice != 102 {
		t.Fatalf("ticker = %+v", cache.got[1])
	}

	if len(bus.out) != 2 {
		t.Fatalf("published %d messages, want 2", len(bus.out))
	}
	if bus.out[0].channel != domain.ChannelCycles || bus.out[0].msg.Type != domain.MessageCycle {
		t.Fatalf("first = %+v", bus.out[0])
	}
	var sum domain.CycleSummary
	if err := json.Unmarshal(bus.out[0].msg.Payload, &sum); err != nil {
		t.Fatal(err)
	}
	if sum.ID != "c1" || sum.Quotes != 2 || sum.Symbols != 2 || sum.DurationMS != 2000 {
		t.Fatalf("summary = %+v", sum)
	}
	if bus.out[1].channel != domain.ChannelOpportunities || bus.out[1].msg.Type != domain.MessageOpportunity {
		t.Fatalf("second = %+v", bus.out[1])
	}
}

func TestPriceServiceToleratesFailures(t *testing.T) {
	cache := &fakeTickers{err: errors.New("redis down")}
	bus := &fakeBus{err: errors.New("redis down")}
	NewPriceService(cache, bus, testLogger()).ObserveCycle(context.Background(), report())
	if len(bus.out) != 2 {
		t.Fatalf("a cache failure stopped publishing: %d messages", len(bus.out))
	}

	// Nil dependencies are allowed.
	NewPriceService(nil, nil, testLogger()).ObserveCycle(context.Background(), report())
}

type fakeAudit struct {
	events  []string
	details []map[string]any
	err     error
}

func (f *fakeAudit) Log(ctx context.Context, event string, detail map[string]any) error {
	f.events = append(f.events, event)
	f.details = append(f.details, detail)
	return f.err
}

func (f *fakeAudit) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func TestAuditService(t *testing.T) {
	store := &fakeAudit{}
	svc := NewAuditService(store, testLogger())

	m, err := domain.NewSymbolMapping([]domain.ExchangeID{"binance"}, []domain.MappingRow{
		{Asset: "BTC", Pairs: map[domain.ExchangeID]string{"binance": "BTC/USDT"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	svc.RecordStartup(context.Background(), "scan", m, map[domain.ExchangeID]int{"binance": 1500})
	svc.ObserveCycle(context.Background(), report())

	if len(store.events) != 2 || store.events[0] != EventStartup || store.events[1] != EventCycleCompleted {
		t.Fatalf("events = %v", store.events)
	}
	start := store.details[0]
	if assets, _ := start["assets"].([]string); len(assets) != 1 || assets[0] != "BTC" {
		t.Fatalf("startup assets = %v", start["assets"])
	}
	cycle := store.details[1]
	if cycle["cycle_id"] != "c1" || cycle["opportunities"] != 1 || cycle["skipped"] != 2 || cycle["quotes"] != 2 {
		t.Fatalf("cycle detail = %v", cycle)
	}
	if _, leaked := cycle["buy_exchange"]; leaked {
		t.Fatal("opportunity fields written to the audit log")
	}

	store.err = errors.New("db down")
	svc.ObserveCycle(context.Background(), report())
}
