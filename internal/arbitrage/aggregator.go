package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// TickerSource is one venue whose market listing has already been loaded.
type TickerSource interface {
	ID() domain.ExchangeID
	// Supports reports whether pair is in the venue's loaded market set.
	Supports(pair string) bool
	FetchTicker(ctx context.Context, pair string) (domain.TickerSnapshot, error)
}

// AggregatorConfig tunes the fetch fan-out.
type AggregatorConfig struct {
	// Concurrency bounds the number of in-flight ticker requests.
	Concurrency int
	// RequestTimeout caps every individual ticker request.
	RequestTimeout time.Duration
}

// Aggregator collects one cycle of tickers from every venue, records observed
// prices into the history store and builds the cross-exchange price map.
type Aggregator struct {
	sources []TickerSource
	history *HistoryStore
	cfg     AggregatorConfig
	now     func() time.Time
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator. Sources are iterated in the given
// order, which fixes the order of quotes and history appends per symbol.
func NewAggregator(sources []TickerSource, history *HistoryStore, cfg AggregatorConfig, logger *slog.Logger) *Aggregator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Aggregator{
		sources: sources,
		history: history,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "aggregator")),
	}
}

// Exchanges returns the venue IDs in iteration order.
func (a *Aggregator) Exchanges() []domain.ExchangeID {
	ids := make([]domain.ExchangeID, len(a.sources))
	for i, s := range a.sources {
		ids[i] = s.ID()
	}
	return ids
}

// Aggregate fetches every (symbol, exchange) pair of mapping and folds the
// outcomes into a PriceMap. Fetches run concurrently but the fold walks
// symbols in mapping order and venues in source order, so the result does not
// depend on completion order. A failing pair is skipped; it never aborts the
// cycle.
func (a *Aggregator) Aggregate(ctx context.Context, mapping *domain.SymbolMapping) (domain.PriceMap, []domain.ExchangeStats) {
	assets := mapping.Assets()
	width := len(a.sources)
	outcomes := make([]domain.FetchOutcome, len(assets)*width)

	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i, asset := range assets {
		for j, src := range a.sources {
			idx := i*width + j
			g.Go(func() error {
				outcomes[idx] = a.fetch(ctx, mapping, asset, src)
				return nil
			})
		}
	}
	_ = g.Wait()

	stats := make([]domain.ExchangeStats, width)
	for j, src := range a.sources {
		stats[j].Exchange = src.ID()
	}

	pm := domain.PriceMap{
		ObservedAt: a.now().UTC(),
		Symbols:    make([]domain.SymbolQuotes, 0, len(assets)),
	}
	for i, asset := range assets {
		sq := domain.SymbolQuotes{Symbol: asset, Quotes: []domain.Quote{}}
		for j := range a.sources {
			o := outcomes[i*width+j]
			if !o.OK() {
				stats[j].Skipped++
				if o.Err != nil {
					stats[j].LastError = o.Err.Error()
				}
				a.logSkip(ctx, o)
				continue
			}
			stats[j].Fetched++
			a.history.Record(asset, o.Snapshot.LastPrice)
			sq.Quotes = append(sq.Quotes, domain.Quote{
				Exchange: o.Exchange,
				Price:    o.Snapshot.LastPrice,
				Volume:   o.Snapshot.QuoteVolume,
			})
		}
		pm.Symbols = append(pm.Symbols, sq)
	}

	return pm, stats
}

// fetch resolves and queries a single (symbol, exchange) pair.
func (a *Aggregator) fetch(ctx context.Context, mapping *domain.SymbolMapping, asset domain.AssetSymbol, src TickerSource) domain.FetchOutcome {
	out := domain.FetchOutcome{Symbol: asset, Exchange: src.ID()}

	pair, ok := mapping.Pair(asset, src.ID())
	if !ok {
		out.Skip = domain.SkipUnmapped
		return out
	}
	out.Pair = pair
	if !src.Supports(pair) {
		out.Skip = domain.SkipUnsupported
		return out
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	snap, err := src.FetchTicker(reqCtx, pair)
	if err != nil {
		out.Skip = domain.ClassifyFetchError(err)
		if out.Skip == domain.SkipError && reqCtx.Err() != nil {
			out.Skip = domain.SkipNetwork
		}
		out.Err = err
		return out
	}
	if snap.LastPrice <= 0 || snap.QuoteVolume <= 0 {
		out.Skip = domain.SkipEmpty
		return out
	}

	snap.Exchange = src.ID()
	snap.Symbol = asset
	snap.Pair = pair
	out.Snapshot = snap
	return out
}

func (a *Aggregator) logSkip(ctx context.Context, o domain.FetchOutcome) {
	attrs := []any{
		slog.String("symbol", string(o.Symbol)),
		slog.String("exchange", string(o.Exchange)),
		slog.String("pair", o.Pair),
		slog.String("reason", string(o.Skip)),
	}
	if o.Err != nil {
		attrs = append(attrs, slog.String("error", o.Err.Error()))
	}

	switch o.Skip {
	case domain.SkipEmpty:
		a.logger.DebugContext(ctx, "ticker without price or volume", attrs...)
	case domain.SkipUnmapped, domain.SkipUnsupported:
		a.logger.WarnContext(ctx, fmt.Sprintf("pair not available on %s", o.Exchange), attrs...)
	default:
		a.logger.WarnContext(ctx, "ticker fetch failed", attrs...)
	}
}
