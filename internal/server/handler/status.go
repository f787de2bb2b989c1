package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// StatusHandler reports the polling loop's lifecycle and the last cycle's
// per-exchange diagnostics.
type StatusHandler struct {
	Mode    string
	scanner ScannerView
	markets map[domain.ExchangeID]int
}

// NewStatusHandler creates a StatusHandler. markets holds the number of
// loaded markets per venue as of startup.
func NewStatusHandler(mode string, sc ScannerView, markets map[domain.ExchangeID]int) *StatusHandler {
	return &StatusHandler{Mode: mode, scanner: sc, markets: markets}
}

type lastCycle struct {
	ID            string                 `json:"id"`
	StartedAt     time.Time              `json:"started_at"`
	DurationMS    int64                  `json:"duration_ms"`
	Opportunities int                    `json:"opportunities"`
	Notified      int                    `json:"notified"`
	NotifyFailed  int                    `json:"notify_failed"`
	Exchanges     []domain.ExchangeStats `json:"exchanges"`
}

type statusResponse struct {
	Mode          string                    `json:"mode"`
	State         string                    `json:"state"`
	Cycles        int64                     `json:"cycles"`
	UptimeSeconds int64                     `json:"uptime_seconds"`
	Assets        []domain.AssetSymbol      `json:"assets"`
	Markets       map[domain.ExchangeID]int `json:"markets"`
	LastCycle     *lastCycle                `json:"last_cycle,omitempty"`
}

// GetStatus responds with the scanner state.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Mode:    h.Mode,
		State:   string(h.scanner.State()),
		Cycles:  h.scanner.Cycles(),
		Assets:  h.scanner.Mapping().Assets(),
		Markets: h.markets,
	}
	if started := h.scanner.StartedAt(); !started.IsZero() {
		resp.UptimeSeconds = max(int64(time.Since(started).Seconds()), 0)
	}
	if rep, ok := h.scanner.LastReport(); ok {
		resp.LastCycle = &lastCycle{
			ID:            rep.ID,
			StartedAt:     rep.StartedAt,
			DurationMS:    rep.Duration.Milliseconds(),
			Opportunities: len(rep.Opportunities),
			Notified:      rep.Notified,
			NotifyFailed:  rep.NotifyFailed,
			Exchanges:     rep.Exchanges,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
