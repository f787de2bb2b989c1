// Package arbitrage implements the opportunity-detection pipeline: rolling
// price history, volatility estimation, cross-exchange aggregation and the
// spread/liquidity decision logic.
package arbitrage

import (
	"sync"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// DefaultHistoryLength is the number of prices kept per symbol when no
// capacity is configured.
const DefaultHistoryLength = 100

// ring is a fixed-capacity FIFO of prices. Appending to a full ring
// overwrites the oldest entry.
type ring struct {
	buf   []float64
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float64, capacity)}
}

func (r *ring) push(p float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = p
		r.n++
		return
	}
	r.buf[r.start] = p
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) snapshot() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// HistoryStore maintains a bounded, chronologically ordered price history for
// each symbol. It is safe for concurrent use.
type HistoryStore struct {
	capacity int
	series   map[domain.AssetSymbol]*ring
	mu       sync.RWMutex
}

// NewHistoryStore creates a store that keeps at most capacity prices per
// symbol. A non-positive capacity falls back to DefaultHistoryLength.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistoryLength
	}
	return &HistoryStore{
		capacity: capacity,
		series:   make(map[domain.AssetSymbol]*ring),
	}
}

// Record appends price to the symbol's history, evicting the oldest entry
// once the history is at capacity.
func (h *HistoryStore) Record(symbol domain.AssetSymbol, price float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.series[symbol]
	if !ok {
		r = newRing(h.capacity)
		h.series[symbol] = r
	}
	r.push(price)
}

// History returns a copy of the symbol's prices, oldest first. Unknown symbols
// have an empty history.
func (h *HistoryStore) History(symbol domain.AssetSymbol) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.series[symbol]
	if !ok {
		return []float64{}
	}
	return r.snapshot()
}

// Len returns the number of prices currently held for symbol.
func (h *HistoryStore) Len(symbol domain.AssetSymbol) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if r, ok := h.series[symbol]; ok {
		return r.n
	}
	return 0
}

// Capacity returns the per-symbol maximum length.
func (h *HistoryStore) Capacity() int { return h.capacity }
