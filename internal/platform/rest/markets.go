package rest

import (
	"strings"
	"sync"
)

// Markets maps unified "BASE/QUOTE" pair names to a venue's native market
// identifiers. It is replaced wholesale on every market load.
type Markets struct {
	mu     sync.RWMutex
	native map[string]string
}

// Replace swaps in a freshly loaded unified->native table.
func (m *Markets) Replace(native map[string]string) {
	cp := make(map[string]string, len(native))
	for k, v := range native {
		cp[k] = v
	}
	m.mu.Lock()
	m.native = cp
	m.mu.Unlock()
}

// Native returns the venue identifier for a unified pair.
func (m *Markets) Native(pair string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.native[pair]
	return id, ok
}

// Pairs returns the set of unified pairs currently loaded.
func (m *Markets) Pairs() map[string]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]struct{}, len(m.native))
	for k := range m.native {
		out[k] = struct{}{}
	}
	return out
}

// Unified builds the canonical "BASE/QUOTE" name used in the mapping file.
func Unified(base, quote string) string {
	return strings.ToUpper(strings.TrimSpace(base)) + "/" + strings.ToUpper(strings.TrimSpace(quote))
}
