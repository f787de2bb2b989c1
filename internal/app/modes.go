package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/arbitrage"
	s3blob "github.com/alanyoungcy/arbwatch/internal/blob/s3"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/exchange"
	"github.com/alanyoungcy/arbwatch/internal/mapping"
	"github.com/alanyoungcy/arbwatch/internal/scanner"
	"github.com/alanyoungcy/arbwatch/internal/server"
	"github.com/alanyoungcy/arbwatch/internal/server/handler"
	"github.com/alanyoungcy/arbwatch/internal/server/ws"
	"github.com/alanyoungcy/arbwatch/internal/service"
)

// pipeline is the polling stack built from the mapping and the opened venues.
type pipeline struct {
	mapping *domain.SymbolMapping
	venues  []*exchange.Venue
	markets map[domain.ExchangeID]int
	history *arbitrage.HistoryStore
	vol     *arbitrage.VolatilityEstimator
	scanner *scanner.Scanner
}

// ScanMode runs the polling loop until ctx is cancelled, together with the
// optional HTTP server, WebSocket hub and ticker archiver.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)

	observers := a.baseObservers(deps)

	var hub *ws.Hub
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:           a.cfg.Mode,
			StartedAt:      time.Now().UTC(),
			AllowedOrigins: a.cfg.Server.CORSOrigins,
		})
		// With Redis the hub relays the published events instead, which also
		// covers cycles run by other replicas.
		if deps.SignalBus == nil {
			observers = append(observers, hub)
		}
	}

	var archiver *s3blob.Archiver
	if deps.BlobWriter != nil {
		archiver = s3blob.NewArchiver(deps.BlobWriter, a.cfg.S3.Prefix, a.logger)
		observers = append(observers, archiver)
	}

	p, err := a.buildPipeline(ctx, deps, observers)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}
	a.recordStartup(ctx, deps, p)

	g.Go(func() error {
		return p.scanner.Run(ctx)
	})
	if archiver != nil {
		g.Go(func() error {
			return archiver.Run(ctx)
		})
	}
	if hub != nil {
		g.Go(func() error {
			return hub.Run(ctx)
		})
		srv := a.newHTTPServer(deps, p, hub)
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	return g.Wait()
}

// OnceMode runs a single cycle and exits. Alerts are delivered as in scan
// mode; the tickers are archived synchronously when S3 is enabled.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting once mode")

	p, err := a.buildPipeline(ctx, deps, a.baseObservers(deps))
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}
	a.recordStartup(ctx, deps, p)

	report, err := p.scanner.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}
	if report == nil {
		a.logger.InfoContext(ctx, "cycle skipped, lock held by another replica")
		return nil
	}

	if deps.BlobWriter != nil {
		archiver := s3blob.NewArchiver(deps.BlobWriter, a.cfg.S3.Prefix, a.logger)
		if err := archiver.Archive(ctx, *report); err != nil {
			return fmt.Errorf("once mode: %w", err)
		}
	}

	for _, opp := range report.Opportunities {
		a.logger.InfoContext(ctx, "opportunity",
			slog.String("symbol", string(opp.Symbol)),
			slog.Float64("spread_pct", opp.SpreadPct),
			slog.Float64("volatility_pct", opp.VolatilityPct),
			slog.String("buy", string(opp.BuyExchange)),
			slog.Float64("buy_price", opp.BuyPrice),
			slog.String("sell", string(opp.SellExchange)),
			slog.Float64("sell_price", opp.SellPrice),
		)
	}
	a.logger.InfoContext(ctx, "once mode complete",
		slog.String("cycle_id", report.ID),
		slog.Int("opportunities", len(report.Opportunities)),
		slog.Int("notified", report.Notified),
		slog.Int("notify_failed", report.NotifyFailed),
	)
	return nil
}

// ImportMappingMode loads the CSV at mapping.path and replaces the
// symbol_mappings table with it.
func (a *App) ImportMappingMode(ctx context.Context, deps *Dependencies) error {
	if deps.MappingStore == nil {
		return fmt.Errorf("import-mapping: postgres is not enabled")
	}
	m, err := mapping.LoadCSV(a.cfg.Mapping.Path)
	if err != nil {
		return fmt.Errorf("import-mapping: %w", err)
	}
	if err := deps.MappingStore.Replace(ctx, m); err != nil {
		return fmt.Errorf("import-mapping: %w", err)
	}
	a.logger.InfoContext(ctx, "mapping imported",
		slog.String("path", a.cfg.Mapping.Path),
		slog.Int("assets", m.Len()),
		slog.Any("exchanges", m.Exchanges()),
	)
	return nil
}

// baseObservers returns the cycle observers backed by Redis and Postgres.
func (a *App) baseObservers(deps *Dependencies) []scanner.CycleObserver {
	var obs []scanner.CycleObserver
	if deps.PriceCache != nil || deps.SignalBus != nil {
		var cache service.TickerWriter
		if deps.PriceCache != nil {
			cache = deps.PriceCache
		}
		obs = append(obs, service.NewPriceService(cache, deps.SignalBus, a.logger))
	}
	if deps.AuditStore != nil {
		obs = append(obs, service.NewAuditService(deps.AuditStore, a.logger))
	}
	return obs
}

// buildPipeline loads the mapping, opens every venue and assembles the
// scanner. A mapping or market-loading failure aborts startup.
func (a *App) buildPipeline(ctx context.Context, deps *Dependencies, observers []scanner.CycleObserver) (*pipeline, error) {
	m, err := a.loadMapping(ctx, deps)
	if err != nil {
		return nil, err
	}
	if m.Len() == 0 {
		a.logger.WarnContext(ctx, "mapping contains no assets; cycles will be empty")
	}

	venues, err := a.openVenues(ctx, deps, a.enabledExchanges(ctx, m))
	if err != nil {
		return nil, err
	}

	markets := make(map[domain.ExchangeID]int, len(venues))
	sources := make([]arbitrage.TickerSource, len(venues))
	for i, v := range venues {
		markets[v.ID()] = v.MarketCount()
		sources[i] = v
	}

	sc := a.cfg.Scanner
	history := arbitrage.NewHistoryStore(sc.HistoryLength)
	vol := arbitrage.NewVolatilityEstimator(history, a.logger)
	agg := arbitrage.NewAggregator(sources, history, arbitrage.AggregatorConfig{
		Concurrency:    sc.Concurrency,
		RequestTimeout: sc.RequestTimeout.Duration,
	}, a.logger)
	det := arbitrage.NewDetector(arbitrage.DetectorConfig{
		MinSpreadPct: sc.MinSpreadPct,
		MinVolume:    sc.MinVolume,
	}, vol, a.logger)

	var dispatcher scanner.Dispatcher
	if deps.Notifier != nil {
		dispatcher = deps.Notifier
		a.logger.InfoContext(ctx, "alert channels configured", slog.Any("senders", deps.Notifier.Senders()))
	} else {
		a.logger.WarnContext(ctx, "no alert channel configured; opportunities are only logged")
	}

	opts := []scanner.Option{scanner.WithObservers(observers...)}
	var lockTTL time.Duration
	if sc.CycleLock && deps.LockManager != nil {
		opts = append(opts, scanner.WithLocks(deps.LockManager))
		lockTTL = sc.CycleLockTTL.Duration
	}

	s := scanner.New(scanner.Config{
		RefreshInterval: sc.RefreshInterval.Duration,
		MinSleep:        sc.MinSleep.Duration,
		ErrorBackoff:    sc.ErrorBackoff.Duration,
		NotifyTimeout:   sc.NotifyTimeout.Duration,
		LockTTL:         lockTTL,
	}, m, agg, det, dispatcher, a.logger, opts...)

	return &pipeline{
		mapping: m,
		venues:  venues,
		markets: markets,
		history: history,
		vol:     vol,
		scanner: s,
	}, nil
}

func (a *App) loadMapping(ctx context.Context, deps *Dependencies) (*domain.SymbolMapping, error) {
	var (
		m   *domain.SymbolMapping
		err error
	)
	switch strings.ToLower(a.cfg.Mapping.Source) {
	case "postgres":
		if deps.MappingStore == nil {
			return nil, fmt.Errorf("load mapping: postgres is not enabled")
		}
		m, err = deps.MappingStore.Load(ctx)
	default:
		m, err = mapping.LoadCSV(a.cfg.Mapping.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("load mapping: %w", err)
	}

	a.logger.InfoContext(ctx, "mapping loaded",
		slog.String("source", a.cfg.Mapping.Source),
		slog.Int("assets", m.Len()),
		slog.Any("symbols", m.Assets()),
	)
	return m, nil
}

// enabledExchanges returns the venues to poll, in polling order. Venues with
// no mapping column are dropped since every pair would be unmapped.
func (a *App) enabledExchanges(ctx context.Context, m *domain.SymbolMapping) []domain.ExchangeID {
	columns := m.Exchanges()
	if len(a.cfg.Exchanges.Enabled) == 0 {
		return columns
	}

	inMapping := make(map[domain.ExchangeID]bool, len(columns))
	for _, c := range columns {
		inMapping[c] = true
	}
	enabled := make(map[domain.ExchangeID]bool, len(a.cfg.Exchanges.Enabled))
	var ids []domain.ExchangeID
	for _, name := range a.cfg.Exchanges.Enabled {
		id := domain.ExchangeID(strings.ToLower(strings.TrimSpace(name)))
		enabled[id] = true
		if !inMapping[id] {
			a.logger.WarnContext(ctx, "enabled exchange has no mapping column, skipping",
				slog.String("exchange", string(id)))
			continue
		}
		ids = append(ids, id)
	}
	for _, c := range columns {
		if !enabled[c] {
			a.logger.InfoContext(ctx, "mapping column not enabled, ignoring",
				slog.String("exchange", string(c)))
		}
	}
	return ids
}

// openVenues loads every venue's market list concurrently. Any failure is
// fatal. The returned slice keeps the order of ids.
func (a *App) openVenues(ctx context.Context, deps *Dependencies, ids []domain.ExchangeID) ([]*exchange.Venue, error) {
	venues := make([]*exchange.Venue, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		factory, err := a.registry.Get(id)
		if err != nil {
			return nil, fmt.Errorf("open venues: %w", err)
		}
		vc := a.cfg.Exchanges.Venues[string(id)]
		conn := factory(vc.BaseURL, a.cfg.Scanner.RequestTimeout.Duration)
		opts := exchange.VenueOptions{
			Limiter:       deps.RateLimiter,
			RatePerSecond: vc.RateLimitPerSec,
		}
		g.Go(func() error {
			v, err := exchange.Open(gctx, conn, opts, a.logger)
			if err != nil {
				return err
			}
			venues[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("open venues: %w", err)
	}

	for _, v := range venues {
		a.logger.InfoContext(ctx, "markets loaded",
			slog.String("exchange", strings.ToUpper(string(v.ID()))),
			slog.Int("markets", v.MarketCount()),
		)
	}
	return venues, nil
}

func (a *App) recordStartup(ctx context.Context, deps *Dependencies, p *pipeline) {
	if deps.AuditStore == nil {
		return
	}
	service.NewAuditService(deps.AuditStore, a.logger).RecordStartup(ctx, a.cfg.Mode, p.mapping, p.markets)
}

// newHTTPServer registers the read-only API over the pipeline's state.
func (a *App) newHTTPServer(deps *Dependencies, p *pipeline, hub *ws.Hub) *server.Server {
	opportunities := handler.NewOpportunityHandler(p.scanner, a.logger)
	if deps.AuditStore != nil {
		opportunities = opportunities.WithAudit(deps.AuditStore)
	}
	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Status:        handler.NewStatusHandler(a.cfg.Mode, p.scanner, p.markets),
		Prices:        handler.NewPriceHandler(p.scanner),
		History:       handler.NewHistoryHandler(p.mapping, p.history, p.vol),
		Opportunities: opportunities,
	}
	return server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimitPerMin,
		RateWindow:  time.Minute,
	}, handlers, hub, deps.RateLimiter, a.logger)
}
