// Package coinbase is a public-market-data client for the Coinbase Exchange
// REST API.
package coinbase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/platform/rest"
)

// ID is the exchange identifier used in the mapping header.
const ID domain.ExchangeID = "coinbase"

// DefaultBaseURL is the public Exchange REST root.
const DefaultBaseURL = "https://api.exchange.coinbase.com"

// Client queries Coinbase products and tickers.
type Client struct {
	http    *rest.Client
	markets rest.Markets
	now     func() time.Time
}

// NewClient creates a Coinbase client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: rest.NewClient(baseURL, timeout), now: time.Now}
}

// ID returns the venue identifier.
func (c *Client) ID() domain.ExchangeID { return ID }

type product struct {
	ID            string `json:"id"`
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
	Status        string `json:"status"`
}

// LoadMarkets fetches the product list and returns it as unified pairs.
func (c *Client) LoadMarkets(ctx context.Context) (map[string]struct{}, error) {
	var products []product
	if err := c.http.GetJSON(ctx, "/products", nil, &products); err != nil {
		return nil, fmt.Errorf("coinbase: load markets: %w", err)
	}

	native := make(map[string]string, len(products))
	for _, p := range products {
		if p.BaseCurrency == "" || p.QuoteCurrency == "" {
			continue
		}
		native[rest.Unified(p.BaseCurrency, p.QuoteCurrency)] = p.ID
	}
	c.markets.Replace(native)
	return c.markets.Pairs(), nil
}

type productTicker struct {
	Price  string `json:"price"`
	Volume string `json:"volume"`
	Time   string `json:"time"`
}

// FetchTicker returns the last trade price of pair. Coinbase reports 24h
// volume in base units, so quote volume is approximated as volume * price.
func (c *Client) FetchTicker(ctx context.Context, pair string) (domain.TickerSnapshot, error) {
	id, ok := c.markets.Native(pair)
	if !ok {
		return domain.TickerSnapshot{}, fmt.Errorf("coinbase: %s: %w", pair, domain.ErrUnsupportedPair)
	}

	var t productTicker
	path := "/products/" + url.PathEscape(id) + "/ticker"
	if err := c.http.GetJSON(ctx, path, nil, &t); err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("coinbase: ticker %s: %w", id, err)
	}

	price, err := rest.ParseDecimal("price", t.Price)
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("coinbase: ticker %s: %w", id, err)
	}
	base, err := rest.ParseDecimal("volume", t.Volume)
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("coinbase: ticker %s: %w", id, err)
	}

	fetched := c.now().UTC()
	if ts, err := time.Parse(time.RFC3339Nano, t.Time); err == nil {
		fetched = ts.UTC()
	}
	return domain.TickerSnapshot{
		Exchange:    ID,
		Pair:        pair,
		LastPrice:   price.InexactFloat64(),
		QuoteVolume: base.Mul(price).InexactFloat64(),
		FetchedAt:   fetched,
	}, nil
}
