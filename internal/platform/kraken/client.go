// Package kraken is a public-market-data client for the Kraken spot API.
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/platform/rest"
)

// ID is the exchange identifier used in the mapping header.
const ID domain.ExchangeID = "kraken"

// DefaultBaseURL is the public REST root.
const DefaultBaseURL = "https://api.kraken.com"

// Kraken's legacy asset codes that differ from the common tickers.
var assetAliases = map[string]string{
	"XBT": "BTC",
	"XDG": "DOGE",
}

// Client queries Kraken asset pairs and tickers.
type Client struct {
	http    *rest.Client
	markets rest.Markets
	now     func() time.Time
}

// NewClient creates a Kraken client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: rest.NewClient(baseURL, timeout), now: time.Now}
}

// ID returns the venue identifier.
func (c *Client) ID() domain.ExchangeID { return ID }

// envelope is Kraken's response wrapper. Errors arrive with HTTP 200 and a
// non-empty error array.
type envelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, path string, params url.Values, out any) error {
	var env envelope
	if err := c.http.GetJSON(ctx, path, params, &env); err != nil {
		return err
	}
	if len(env.Error) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrExchange, strings.Join(env.Error, "; "))
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: decode result: %v", domain.ErrExchange, err)
	}
	return nil
}

type assetPair struct {
	Altname string `json:"altname"`
	WSName  string `json:"wsname"`
}

// LoadMarkets fetches the tradable asset pairs and returns them as unified
// pairs, translating XBT and XDG to BTC and DOGE.
func (c *Client) LoadMarkets(ctx context.Context) (map[string]struct{}, error) {
	var pairs map[string]assetPair
	if err := c.call(ctx, "/0/public/AssetPairs", nil, &pairs); err != nil {
		return nil, fmt.Errorf("kraken: load markets: %w", err)
	}

	native := make(map[string]string, len(pairs))
	for id, p := range pairs {
		base, quote, ok := strings.Cut(p.WSName, "/")
		if !ok {
			continue
		}
		native[rest.Unified(normalizeAsset(base), normalizeAsset(quote))] = id
	}
	c.markets.Replace(native)
	return c.markets.Pairs(), nil
}

func normalizeAsset(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if alias, ok := assetAliases[code]; ok {
		return alias
	}
	return code
}

type tickerInfo struct {
	Close  []string `json:"c"`
	Volume []string `json:"v"`
	VWAP   []string `json:"p"`
}

// FetchTicker returns the last trade price of pair and its 24h quote volume,
// computed as base volume times the 24h volume-weighted average price.
func (c *Client) FetchTicker(ctx context.Context, pair string) (domain.TickerSnapshot, error) {
	id, ok := c.markets.Native(pair)
	if !ok {
		return domain.TickerSnapshot{}, fmt.Errorf("kraken: %s: %w", pair, domain.ErrUnsupportedPair)
	}

	var result map[string]tickerInfo
	if err := c.call(ctx, "/0/public/Ticker", url.Values{"pair": {id}}, &result); err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("kraken: ticker %s: %w", id, err)
	}
	info, ok := result[id]
	if !ok {
		// Kraken may key the result by an alternate name; take the only entry.
		for _, v := range result {
			info, ok = v, true
			break
		}
	}
	if !ok || len(info.Close) == 0 || len(info.Volume) < 2 || len(info.VWAP) < 2 {
		return domain.TickerSnapshot{}, fmt.Errorf("kraken: ticker %s: %w: incomplete ticker", id, domain.ErrExchange)
	}

	price, err := rest.ParseDecimal("c", info.Close[0])
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("kraken: ticker %s: %w", id, err)
	}
	volume, err := rest.ParseDecimal("v", info.Volume[1])
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("kraken: ticker %s: %w", id, err)
	}
	vwap, err := rest.ParseDecimal("p", info.VWAP[1])
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("kraken: ticker %s: %w", id, err)
	}

	return domain.TickerSnapshot{
		Exchange:    ID,
		Pair:        pair,
		LastPrice:   price.InexactFloat64(),
		QuoteVolume: volume.Mul(vwap).InexactFloat64(),
		FetchedAt:   c.now().UTC(),
	}, nil
}
