package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// DefaultArchivePrefix is the key prefix for archived ticker batches.
const DefaultArchivePrefix = "tickers"

// archiveQueue bounds the number of cycles waiting for upload.
const archiveQueue = 16

// Archiver uploads each cycle's tickers as one JSON Lines object. Uploads
// happen on a background goroutine; when the queue is full the cycle is
// dropped with a warning rather than stalling polling.
type Archiver struct {
	writer domain.BlobWriter
	prefix string
	queue  chan domain.CycleReport
	logger *slog.Logger
}

// NewArchiver creates an Archiver. Call Run to start uploading.
func NewArchiver(writer domain.BlobWriter, prefix string, logger *slog.Logger) *Archiver {
	if prefix == "" {
		prefix = DefaultArchivePrefix
	}
	return &Archiver{
		writer: writer,
		prefix: prefix,
		queue:  make(chan domain.CycleReport, archiveQueue),
		logger: logger.With(slog.String("component", "s3_archiver")),
	}
}

// ObserveCycle enqueues the report for upload.
func (a *Archiver) ObserveCycle(ctx context.Context, report domain.CycleReport) {
	select {
	case a.queue <- report:
	default:
		a.logger.WarnContext(ctx, "archive queue full, dropping cycle",
			slog.String("cycle_id", report.ID))
	}
}

// Run drains the queue until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.Info("archiver started", slog.String("prefix", a.prefix))
	for {
		select {
		case <-ctx.Done():
			return nil
		case report := <-a.queue:
			if err := a.Archive(ctx, report); err != nil {
				a.logger.ErrorContext(ctx, "archive upload failed",
					slog.String("cycle_id", report.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Archive uploads report synchronously. Cycles without tickers are skipped.
func (a *Archiver) Archive(ctx context.Context, report domain.CycleReport) error {
	tickers := report.Tickers()
	if len(tickers) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, t := range tickers {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("s3blob: encode ticker: %w", err)
		}
	}

	key := a.Key(report)
	var err error
	if int64(buf.Len()) > minPartSize {
		err = a.writer.PutMultipart(ctx, key, &buf, minPartSize)
	} else {
		err = a.writer.Put(ctx, key, &buf, "application/x-ndjson")
	}
	if err != nil {
		return err
	}

	a.logger.DebugContext(ctx, "cycle archived",
		slog.String("key", key),
		slog.Int("tickers", len(tickers)),
	)
	return nil
}

// Key returns the object key for report:
// {prefix}/YYYY/MM/DD/HHMMSS-{cycleID}.jsonl
func (a *Archiver) Key(report domain.CycleReport) string {
	ts := report.StartedAt.UTC()
	return path.Join(
		a.prefix,
		ts.Format("2006"), ts.Format("01"), ts.Format("02"),
		fmt.Sprintf("%s-%s.jsonl", ts.Format("150405"), report.ID),
	)
}
