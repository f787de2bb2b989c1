package service

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Audit event names.
const (
	EventStartup        = "startup"
	EventCycleCompleted = "cycle_completed"
)

// AuditService records process and cycle milestones in the audit log. Only
// counts are written; opportunities themselves are not persisted.
type AuditService struct {
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewAuditService creates an AuditService.
func NewAuditService(audit domain.AuditStore, logger *slog.Logger) *AuditService {
	return &AuditService{
		audit:  audit,
		logger: logger.With(slog.String("component", "audit_service")),
	}
}

// RecordStartup logs the monitored assets and loaded venues.
func (s *AuditService) RecordStartup(ctx context.Context, mode string, mapping *domain.SymbolMapping, markets map[domain.ExchangeID]int) {
	assets := make([]string, 0, mapping.Len())
	for _, a := range mapping.Assets() {
		assets = append(assets, string(a))
	}
	venues := make(map[string]any, len(markets))
	for ex, n := range markets {
		venues[string(ex)] = n
	}
	s.log(ctx, EventStartup, map[string]any{
		"mode":    mode,
		"assets":  assets,
		"markets": venues,
	})
}

// ObserveCycle logs a cycle summary.
func (s *AuditService) ObserveCycle(ctx context.Context, report domain.CycleReport) {
	sum := report.Summary()
	skipped := 0
	for _, ex := range sum.Exchanges {
		skipped += ex.Skipped
	}
	s.log(ctx, EventCycleCompleted, map[string]any{
		"cycle_id":      sum.ID,
		"duration_ms":   sum.DurationMS,
		"symbols":       sum.Symbols,
		"quotes":        sum.Quotes,
		"skipped":       skipped,
		"opportunities": sum.Opportunities,
		"notified":      sum.Notified,
		"notify_failed": sum.NotifyFailed,
	})
}

func (s *AuditService) log(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
