package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[
			{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
			{"symbol":"ETHBTC","status":"TRADING","baseAsset":"ETH","quoteAsset":"BTC"}
		]}`))
	})
	mux.HandleFunc("/api/v3/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"50123.45000000","quoteVolume":"987654321.5","closeTime":1714560000000}`))
		case "ETHBTC":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadMarketsAndFetchTicker(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second)

	markets, err := c.LoadMarkets(context.Background())
	if err != nil {
		t.Fatalf("LoadMarkets: %v", err)
	}
	if _, ok := markets["BTC/USDT"]; !ok || len(markets) != 2 {
		t.Fatalf("markets = %v", markets)
	}

	snap, err := c.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("FetchTicker: %v", err)
	}
	if snap.LastPrice != 50123.45 || snap.QuoteVolume != 987654321.5 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Exchange != ID || snap.Pair != "BTC/USDT" {
		t.Fatalf("snapshot identity = %s %s", snap.Exchange, snap.Pair)
	}
	if !snap.FetchedAt.Equal(time.UnixMilli(1714560000000)) {
		t.Fatalf("FetchedAt = %v", snap.FetchedAt)
	}
}

func TestFetchTickerErrors(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second)
	if _, err := c.FetchTicker(context.Background(), "BTC/USDT"); !errors.Is(err, domain.ErrUnsupportedPair) {
		t.Fatalf("before LoadMarkets: %v", err)
	}
	if _, err := c.LoadMarkets(context.Background()); err != nil {
		t.Fatalf("LoadMarkets: %v", err)
	}
	if _, err := c.FetchTicker(context.Background(), "ETH/BTC"); !errors.Is(err, domain.ErrExchange) {
		t.Fatalf("ETH/BTC: error %v does not wrap ErrExchange", err)
	}
}
