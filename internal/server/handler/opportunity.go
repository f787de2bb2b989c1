package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// AuditLister reads the audit log.
type AuditLister interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// OpportunityHandler serves the opportunities of the most recent cycle and,
// when an audit store is configured, the cycle audit trail.
type OpportunityHandler struct {
	scanner ScannerView
	audit   AuditLister // optional; when nil, ListAudit returns 501
	logger  *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(sc ScannerView, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{scanner: sc, logger: logHandler(logger, "opportunities")}
}

// WithAudit sets the audit source for ListAudit.
func (h *OpportunityHandler) WithAudit(a AuditLister) *OpportunityHandler {
	h.audit = a
	return h
}

type opportunitiesResponse struct {
	CycleID       string               `json:"cycle_id"`
	Opportunities []domain.Opportunity `json:"opportunities"`
}

// ListLatest returns the opportunities found by the last completed cycle.
// GET /api/opportunities
func (h *OpportunityHandler) ListLatest(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.scanner.LastReport()
	if !ok {
		writeNoCycle(w)
		return
	}
	opps := rep.Opportunities
	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, opportunitiesResponse{CycleID: rep.ID, Opportunities: opps})
}

type auditResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}

// ListAudit returns audit entries, newest first.
// GET /api/audit?event=cycle_completed&limit=50
func (h *OpportunityHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusNotImplemented, "audit log not configured")
		return
	}
	entries, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.ErrorContext(r.Context(), "list audit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, auditResponse{Entries: entries})
}
