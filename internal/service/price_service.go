// Package service holds the cycle observers that fan scanner results out to
// shared infrastructure.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// DefaultPublishTimeout bounds the Redis work done per cycle.
const DefaultPublishTimeout = 2 * time.Second

// TickerWriter stores a batch of latest tickers.
type TickerWriter interface {
	SetTickers(ctx context.Context, tickers []domain.TickerSnapshot) error
}

// PriceService mirrors every completed cycle into the shared ticker cache and
// publishes the cycle summary and its opportunities on the signal bus.
// Either dependency may be nil.
type PriceService struct {
	cache   TickerWriter
	bus     domain.SignalBus
	timeout time.Duration
	logger  *slog.Logger
}

// NewPriceService creates a PriceService.
func NewPriceService(cache TickerWriter, bus domain.SignalBus, logger *slog.Logger) *PriceService {
	return &PriceService{
		cache:   cache,
		bus:     bus,
		timeout: DefaultPublishTimeout,
		logger:  logger.With(slog.String("component", "price_service")),
	}
}

// ObserveCycle caches the cycle's tickers and publishes its events. Failures
// are logged; they never affect the polling loop.
func (s *PriceService) ObserveCycle(ctx context.Context, report domain.CycleReport) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.cache != nil {
		if tickers := report.Tickers(); len(tickers) > 0 {
			if err := s.cache.SetTickers(ctx, tickers); err != nil {
				s.logger.WarnContext(ctx, "cache tickers failed",
					slog.String("cycle_id", report.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if s.bus == nil {
		return
	}
	s.publish(ctx, domain.ChannelCycles, domain.MessageCycle, report.Summary())
	for _, opp := range report.Opportunities {
		s.publish(ctx, domain.ChannelOpportunities, domain.MessageOpportunity, opp)
	}
}

func (s *PriceService) publish(ctx context.Context, channel, typ string, payload any) {
	data, err := domain.EncodeStreamMessage(channel, typ, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "encode event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, channel, data); err != nil {
		s.logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
