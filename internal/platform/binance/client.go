// Package binance is a public-market-data client for the Binance spot API.
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/platform/rest"
)

// ID is the exchange identifier used in the mapping header.
const ID domain.ExchangeID = "binance"

// DefaultBaseURL is the public spot REST root.
const DefaultBaseURL = "https://api.binance.com"

// Client queries Binance spot markets and 24h tickers.
type Client struct {
	http    *rest.Client
	markets rest.Markets
	now     func() time.Time
}

// NewClient creates a Binance client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: rest.NewClient(baseURL, timeout), now: time.Now}
}

// ID returns the venue identifier.
func (c *Client) ID() domain.ExchangeID { return ID }

type exchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

// LoadMarkets fetches the listed spot symbols and returns them as unified
// "BASE/QUOTE" pairs.
func (c *Client) LoadMarkets(ctx context.Context) (map[string]struct{}, error) {
	var info exchangeInfo
	if err := c.http.GetJSON(ctx, "/api/v3/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("binance: load markets: %w", wrapAPIError(err))
	}

	native := make(map[string]string, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.BaseAsset == "" || s.QuoteAsset == "" {
			continue
		}
		native[rest.Unified(s.BaseAsset, s.QuoteAsset)] = s.Symbol
	}
	c.markets.Replace(native)
	return c.markets.Pairs(), nil
}

type ticker24h struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
	CloseTime   int64  `json:"closeTime"`
}

// FetchTicker returns the last trade price and 24h quote volume of pair.
func (c *Client) FetchTicker(ctx context.Context, pair string) (domain.TickerSnapshot, error) {
	symbol, ok := c.markets.Native(pair)
	if !ok {
		return domain.TickerSnapshot{}, fmt.Errorf("binance: %s: %w", pair, domain.ErrUnsupportedPair)
	}

	var t ticker24h
	params := url.Values{"symbol": {symbol}}
	if err := c.http.GetJSON(ctx, "/api/v3/ticker/24hr", params, &t); err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("binance: ticker %s: %w", symbol, wrapAPIError(err))
	}

	price, err := rest.ParseDecimal("lastPrice", t.LastPrice)
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("binance: ticker %s: %w", symbol, err)
	}
	volume, err := rest.ParseDecimal("quoteVolume", t.QuoteVolume)
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("binance: ticker %s: %w", symbol, err)
	}

	fetched := c.now().UTC()
	if t.CloseTime > 0 {
		fetched = time.UnixMilli(t.CloseTime).UTC()
	}
	return domain.TickerSnapshot{
		Exchange:    ID,
		Pair:        pair,
		LastPrice:   price.InexactFloat64(),
		QuoteVolume: volume.InexactFloat64(),
		FetchedAt:   fetched,
	}, nil
}

// wrapAPIError keeps the classification of err. Binance reports request
// errors as {"code":-1121,"msg":"Invalid symbol."} with a 4xx status, which
// rest already maps to domain.ErrExchange.
func wrapAPIError(err error) error {
	if errors.Is(err, domain.ErrNetwork) || errors.Is(err, domain.ErrExchange) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrExchange, err)
}
