package handler

import (
	"net/http"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// HistoryReader exposes the rolling per-symbol price history.
type HistoryReader interface {
	History(symbol domain.AssetSymbol) []float64
	Capacity() int
}

// VolatilityReader computes a symbol's annualised volatility.
type VolatilityReader interface {
	Volatility(symbol domain.AssetSymbol) float64
}

// HistoryHandler serves the price history and volatility of one asset.
type HistoryHandler struct {
	mapping *domain.SymbolMapping
	history HistoryReader
	vol     VolatilityReader
}

// NewHistoryHandler creates a HistoryHandler. Only assets present in mapping
// are served.
func NewHistoryHandler(mapping *domain.SymbolMapping, history HistoryReader, vol VolatilityReader) *HistoryHandler {
	return &HistoryHandler{mapping: mapping, history: history, vol: vol}
}

type historyResponse struct {
	Symbol        domain.AssetSymbol `json:"symbol"`
	Capacity      int                `json:"capacity"`
	Prices        []float64          `json:"prices"`
	VolatilityPct float64            `json:"volatility_pct"`
}

// GetHistory returns the recorded prices, oldest first.
// GET /api/history/{symbol}
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sym := pathSymbol(r)
	if sym == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if !h.monitored(sym) {
		writeError(w, http.StatusNotFound, "symbol not monitored")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Symbol:        sym,
		Capacity:      h.history.Capacity(),
		Prices:        h.history.History(sym),
		VolatilityPct: h.vol.Volatility(sym),
	})
}

func (h *HistoryHandler) monitored(sym domain.AssetSymbol) bool {
	for _, a := range h.mapping.Assets() {
		if a == sym {
			return true
		}
	}
	return false
}
