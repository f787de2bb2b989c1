package arbitrage

import (
	"sync"
	"testing"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func TestHistoryStoreUnknownSymbol(t *testing.T) {
	h := NewHistoryStore(3)
	got := h.History("BTC")
	if got == nil || len(got) != 0 {
		t.Fatalf("History(unknown) = %v, want empty non-nil slice", got)
	}
	if n := h.Len("BTC"); n != 0 {
		t.Fatalf("Len(unknown) = %d, want 0", n)
	}
}

func TestHistoryStoreEvictsOldest(t *testing.T) {
	h := NewHistoryStore(3)
	for _, p := range []float64{1, 2, 3, 4, 5} {
		h.Record("BTC", p)
	}

	got := h.History("BTC")
	want := []float64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("History len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("History[%d] = %v, want %v (full %v)", i, got[i], want[i], got)
		}
	}
}

func TestHistoryStoreReturnsCopy(t *testing.T) {
	h := NewHistoryStore(2)
	h.Record("ETH", 10)
	got := h.History("ETH")
	got[0] = 99
	if h.History("ETH")[0] != 10 {
		t.Fatal("mutating the returned slice changed the store")
	}
}

func TestHistoryStoreDefaultCapacity(t *testing.T) {
	h := NewHistoryStore(0)
	if h.Capacity() != DefaultHistoryLength {
		t.Fatalf("Capacity = %d, want %d", h.Capacity(), DefaultHistoryLength)
	}
	for i := 0; i < DefaultHistoryLength+25; i++ {
		h.Record("SOL", float64(i))
	}
	got := h.History("SOL")
	if len(got) != DefaultHistoryLength {
		t.Fatalf("History len = %d, want %d", len(got), DefaultHistoryLength)
	}
	if got[0] != 25 || got[len(got)-1] != float64(DefaultHistoryLength+24) {
		t.Fatalf("unexpected window [%v .. %v]", got[0], got[len(got)-1])
	}
}

func TestHistoryStoreSymbolsAreIndependent(t *testing.T) {
	h := NewHistoryStore(5)
	h.Record("BTC", 1)
	h.Record("ETH", 2)
	h.Record("BTC", 3)

	if n := h.Len("BTC"); n != 2 {
		t.Fatalf("Len(BTC) = %d, want 2", n)
	}
	if n := h.Len("ETH"); n != 1 {
		t.Fatalf("Len(ETH) = %d, want 1", n)
	}
}

func TestHistoryStoreConcurrentRecord(t *testing.T) {
	h := NewHistoryStore(50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(sym domain.AssetSymbol) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Record(sym, float64(j))
				_ = h.History(sym)
			}
		}(domain.AssetSymbol([]string{"BTC", "ETH"}[i%2]))
	}
	wg.Wait()

	if n := h.Len("BTC"); n != 50 {
		t.Fatalf("Len(BTC) = %d, want 50", n)
	}
}
