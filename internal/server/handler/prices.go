package handler

import (
	"net/http"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// PriceHandler serves the last cycle's cross-exchange price map.
type PriceHandler struct {
	scanner ScannerView
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(sc ScannerView) *PriceHandler {
	return &PriceHandler{scanner: sc}
}

// ListPrices returns the price map of the most recent cycle. An optional
// ?symbol= narrows the result to one asset.
// GET /api/prices
func (h *PriceHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.scanner.LastReport()
	if !ok {
		writeNoCycle(w)
		return
	}
	pm := rep.Prices
	if sym := r.URL.Query().Get("symbol"); sym != "" {
		want := normalizeSymbol(sym)
		filtered := make([]domain.SymbolQuotes, 0, 1)
		for _, sq := range pm.Symbols {
			if sq.Symbol == want {
				filtered = append(filtered, sq)
			}
		}
		pm.Symbols = filtered
	}
	writeJSON(w, http.StatusOK, pm)
}
