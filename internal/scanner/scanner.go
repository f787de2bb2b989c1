// Package scanner runs the polling loop: aggregate prices, detect
// opportunities, dispatch alerts, then sleep until the next cycle.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Default loop timings.
const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultMinSleep        = 5 * time.Second
	DefaultErrorBackoff    = 60 * time.Second
	DefaultNotifyTimeout   = 10 * time.Second
	DefaultLockKey         = "arbwatch:cycle"
)

// PriceSource builds the per-cycle cross-exchange price map.
type PriceSource interface {
	Aggregate(ctx context.Context, mapping *domain.SymbolMapping) (domain.PriceMap, []domain.ExchangeStats)
}

// OpportunityDetector evaluates a price map.
type OpportunityDetector interface {
	Detect(pm domain.PriceMap) []domain.Opportunity
}

// Dispatcher delivers one opportunity alert.
type Dispatcher interface {
	Dispatch(ctx context.Context, opp domain.Opportunity) error
}

// CycleObserver is told about every completed cycle. Observers must not
// block for long; they run on the polling goroutine.
type CycleObserver interface {
	ObserveCycle(ctx context.Context, report domain.CycleReport)
}

// State is the loop's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Config holds loop timings.
type Config struct {
	RefreshInterval time.Duration
	MinSleep        time.Duration
	ErrorBackoff    time.Duration
	NotifyTimeout   time.Duration
	// LockTTL enables the cross-process cycle lock when a LockManager is
	// configured. Zero disables it.
	LockTTL time.Duration
	LockKey string
}

func (c *Config) applyDefaults() {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.MinSleep <= 0 {
		c.MinSleep = DefaultMinSleep
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = DefaultErrorBackoff
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = DefaultNotifyTimeout
	}
	if c.LockKey == "" {
		c.LockKey = DefaultLockKey
	}
}

// Option customises a Scanner.
type Option func(*Scanner)

// WithLocks enables the distributed cycle lock.
func WithLocks(lm domain.LockManager) Option {
	return func(s *Scanner) { s.locks = lm }
}

// WithObservers registers cycle observers, called in order.
func WithObservers(obs ...CycleObserver) Option {
	return func(s *Scanner) { s.observers = append(s.observers, obs...) }
}

// Scanner is the polling loop.
type Scanner struct {
	cfg        Config
	mapping    *domain.SymbolMapping
	source     PriceSource
	detector   OpportunityDetector
	dispatcher Dispatcher
	locks      domain.LockManager
	observers  []CycleObserver
	logger     *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string

	state     atomic.Value // State
	cycles    atomic.Int64
	startedAt atomic.Pointer[time.Time]

	mu   sync.RWMutex
	last *domain.CycleReport
}

// New creates a Scanner. dispatcher may be nil, in which case opportunities
// are only logged.
func New(
	cfg Config,
	mapping *domain.SymbolMapping,
	source PriceSource,
	detector OpportunityDetector,
	dispatcher Dispatcher,
	logger *slog.Logger,
	opts ...Option,
) *Scanner {
	cfg.applyDefaults()
	s := &Scanner{
		cfg:        cfg,
		mapping:    mapping,
		source:     source,
		detector:   detector,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "scanner")),
		now:        time.Now,
		sleep:      sleepCtx,
		newID:      uuid.NewString,
	}
	s.state.Store(StateIdle)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run polls until ctx is cancelled. Individual cycle failures are logged and
// followed by ErrorBackoff; they never end the loop.
func (s *Scanner) Run(ctx context.Context) error {
	started := s.now()
	s.startedAt.Store(&started)
	s.state.Store(StateRunning)
	defer s.state.Store(StateStopped)

	s.logger.InfoContext(ctx, "scanner started",
		slog.Any("assets", s.mapping.Assets()),
		slog.Duration("refresh_interval", s.cfg.RefreshInterval),
	)
	defer s.logger.Info("scanner stopped")

	for {
		begin := s.now()
		_, err := s.RunCycle(ctx)
		if ctx.Err() != nil {
			return nil
		}

		wait := s.nextWait(s.now().Sub(begin), err)
		if err != nil {
			s.logger.ErrorContext(ctx, "cycle failed",
				slog.String("error", err.Error()),
				slog.Duration("backoff", wait),
			)
		}
		if err := s.sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

// nextWait returns how long to sleep after a cycle that took elapsed.
func (s *Scanner) nextWait(elapsed time.Duration, cycleErr error) time.Duration {
	if cycleErr != nil {
		return s.cfg.ErrorBackoff
	}
	return max(s.cfg.RefreshInterval-elapsed, s.cfg.MinSleep)
}

// RunCycle performs a single aggregate/detect/dispatch pass. It returns a nil
// report without error when another process holds the cycle lock.
func (s *Scanner) RunCycle(ctx context.Context) (report *domain.CycleReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = fmt.Errorf("scanner: cycle panicked: %v", r)
		}
	}()

	if s.locks != nil && s.cfg.LockTTL > 0 {
		unlock, lerr := s.locks.Acquire(ctx, s.cfg.LockKey, s.cfg.LockTTL)
		switch {
		case errors.Is(lerr, domain.ErrLockHeld):
			s.logger.InfoContext(ctx, "cycle lock held elsewhere, skipping cycle")
			return nil, nil
		case lerr != nil:
			s.logger.WarnContext(ctx, "cycle lock unavailable, running unlocked",
				slog.String("error", lerr.Error()))
		default:
			defer unlock()
		}
	}

	id := s.newID()
	started := s.now()

	pm, stats := s.source.Aggregate(ctx, s.mapping)
	pm.CycleID = id

	opps := s.detector.Detect(pm)

	rep := domain.CycleReport{
		ID:            id,
		StartedAt:     started.UTC(),
		Prices:        pm,
		Opportunities: opps,
		Exchanges:     stats,
	}
	for _, opp := range opps {
		if ctx.Err() != nil {
			break
		}
		if s.dispatch(ctx, opp) {
			rep.Notified++
		} else {
			rep.NotifyFailed++
		}
	}
	rep.Duration = s.now().Sub(started)

	s.mu.Lock()
	s.last = &rep
	s.mu.Unlock()
	s.cycles.Add(1)

	s.logger.InfoContext(ctx, "cycle complete",
		slog.String("cycle_id", id),
		slog.Int("symbols", len(pm.Symbols)),
		slog.Int("opportunities", len(opps)),
		slog.Duration("duration", rep.Duration),
	)

	for _, o := range s.observers {
		o.ObserveCycle(ctx, rep)
	}
	return &rep, nil
}

func (s *Scanner) dispatch(ctx context.Context, opp domain.Opportunity) bool {
	attrs := []any{
		slog.String("symbol", string(opp.Symbol)),
		slog.String("spread", fmt.Sprintf("%.2f%%", opp.SpreadPct)),
		slog.String("buy", string(opp.BuyExchange)),
		slog.String("sell", string(opp.SellExchange)),
	}
	if s.dispatcher == nil {
		s.logger.InfoContext(ctx, "opportunity detected", attrs...)
		return true
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
	defer cancel()
	if err := s.dispatcher.Dispatch(dctx, opp); err != nil {
		s.logger.ErrorContext(ctx, "alert delivery failed",
			append(attrs, slog.String("error", err.Error()))...)
		return false
	}
	s.logger.InfoContext(ctx, "alert sent", attrs...)
	return true
}

// State returns the loop's lifecycle state.
func (s *Scanner) State() State { return s.state.Load().(State) }

// Cycles returns the number of completed cycles.
func (s *Scanner) Cycles() int64 { return s.cycles.Load() }

// StartedAt returns when Run was entered, or the zero time.
func (s *Scanner) StartedAt() time.Time {
	if t := s.startedAt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// LastReport returns the most recent cycle report.
func (s *Scanner) LastReport() (domain.CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.CycleReport{}, false
	}
	return *s.last, true
}

// Mapping returns the monitored symbol mapping.
func (s *Scanner) Mapping() *domain.SymbolMapping { return s.mapping }

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
