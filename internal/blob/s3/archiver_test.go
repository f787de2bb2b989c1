package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

type memWriter struct {
	objects     map[string][]byte
	contentType map[string]string
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (m *memWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	m.contentType[path] = contentType
	return nil
}

func (m *memWriter) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	return m.Put(ctx, path, data, "")
}

func testReport() domain.CycleReport {
	at := time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC)
	return domain.CycleReport{
		ID:        "abc",
		StartedAt: at,
		Prices: domain.PriceMap{
			CycleID:    "abc",
			ObservedAt: at,
			Symbols: []domain.SymbolQuotes{
				{Symbol: "BTC", Quotes: []domain.Quote{
					{Exchange: "binance", Price: 50000, Volume: 1e6},
					{Exchange: "kraken", Price: 50100, Volume: 2e5},
				}},
				{Symbol: "ETH", Quotes: []domain.Quote{}},
			},
		},
	}
}

func TestArchiverKey(t *testing.T) {
	a := NewArchiver(newMemWriter(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if got := a.Key(testReport()); got != "tickers/2024/05/01/093015-abc.jsonl" {
		t.Fatalf("Key = %q", got)
	}
}

func TestArchiveWritesJSONLines(t *testing.T) {
	w := newMemWriter()
	a := NewArchiver(w, "snapshots", slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := a.Archive(context.Background(), testReport()); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	key := "snapshots/2024/05/01/093015-abc.jsonl"
	data, ok := w.objects[key]
	if !ok {
		t.Fatalf("object %s not written; have %v", key, w.objects)
	}
	if w.contentType[key] != "application/x-ndjson" {
		t.Fatalf("content type = %q", w.contentType[key])
	}

	var lines []domain.TickerSnapshot
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var ts domain.TickerSnapshot
		if err := json.Unmarshal(sc.Bytes(), &ts); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		lines = append(lines, ts)
	}
	if len(lines) != 2 || lines[1].Exchange != "kraken" || lines[1].Symbol != "BTC" {
		t.Fatalf("lines = %+v", lines)
	}
}

func TestArchiveSkipsEmptyCycle(t *testing.T) {
	w := newMemWriter()
	a := NewArchiver(w, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := a.Archive(context.Background(), domain.CycleReport{ID: "x"}); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if len(w.objects) != 0 {
		t.Fatalf("unexpected objects %v", w.objects)
	}
}

func TestRunDrainsQueue(t *testing.T) {
	w := newMemWriter()
	a := NewArchiver(w, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	a.ObserveCycle(ctx, testReport())
	deadline := time.After(2 * time.Second)
	for len(a.queue) > 0 {
		select {
		case <-deadline:
			t.Fatal("queue not drained")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
	if len(w.objects) != 1 {
		t.Fatalf("objects = %d, want 1", len(w.objects))
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	if got := normaliseEndpoint("minio:9000", false); got != "http://minio:9000" {
		t.Fatalf("got %q", got)
	}
	if got := normaliseEndpoint("e2.example.com", true); got != "https://e2.example.com" {
		t.Fatalf("got %q", got)
	}
	if got := normaliseEndpoint("https://r2.example.com", false); got != "https://r2.example.com" {
		t.Fatalf("got %q", got)
	}
}
