package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"akunting/internal/core"
	"akunting/internal/feed"
	"akunting/internal/ports"
)

// ReportWorker keeps the exported summary of the current week up to date.
// Every change event, and every tick of the interval, recomputes the week
// from a fresh read of the store.
type ReportWorker struct {
	reader   ports.SnapshotReader
	writer   ports.SummaryWriter
	loc      *time.Location
	interval time.Duration
	now      func() time.Time
}

func NewReportWorker(reader ports.SnapshotReader, writer ports.SummaryWriter, loc *time.Location, interval time.Duration) *ReportWorker {
	if loc == nil {
		loc = time.Local
	}
	return &ReportWorker{
		reader:   reader,
		writer:   writer,
		loc:      loc,
		interval: interval,
		now:      time.Now,
	}
}

// ExportCurrentWeek computes the week containing now and writes it out.
func (w *ReportWorker) ExportCurrentWeek(ctx context.Context) (core.WeeklySummary, error) {
	snap, err := ports.ReadSnapshot(ctx, w.reader)
	if err != nil {
		return core.WeeklySummary{}, fmt.Errorf("read snapshot: %w", err)
	}

	sum := core.Compute(snap, core.ResolveWeek(w.now().In(w.loc)))
	if err := w.writer.WriteSummary(ctx, sum); err != nil {
		return sum, fmt.Errorf("export week %s: %w", sum.Period.Key, err)
	}

	slog.InfoContext(ctx, "Weekly summary exported",
		"component", "worker",
		"week_key", sum.Period.Key,
		"expected", int64(sum.Expected),
		"payments", int64(sum.Payments),
		"expenses", int64(sum.Expenses),
		"net", int64(sum.Net))
	return sum, nil
}

// HandleEvent exports after a change. Any collection can move the totals,
// so the kind only matters for logging.
func (w *ReportWorker) HandleEvent(ctx context.Context, e feed.Event) error {
	slog.DebugContext(ctx, "Processing change event",
		"component", "worker",
		"kind", e.Kind,
		"op", e.Op,
		"record_id", e.ID)
	_, err := w.ExportCurrentWeek(ctx)
	return err
}

// Run exports once at startup, then on every event from sub and on every
// interval tick, until ctx is done. A nil sub leaves only the ticker.
// Events that queue up while an export runs are coalesced into one export.
func (w *ReportWorker) Run(ctx context.Context, sub feed.Subscriber) error {
	if _, err := w.ExportCurrentWeek(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup export failed", "component", "worker", "error", err)
	}

	var events <-chan feed.Event
	if sub != nil {
		ch, err := sub.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("subscribe to changes: %w", err)
		}
		events = ch
	}

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				// The subscription ended; keep the periodic export going.
				slog.WarnContext(ctx, "Change feed closed", "component", "worker")
				events = nil
				continue
			}
			skipped := drain(events)
			if skipped > 0 {
				slog.DebugContext(ctx, "Coalesced change events", "component", "worker", "count", skipped)
			}
			if err := w.HandleEvent(ctx, e); err != nil {
				slog.ErrorContext(ctx, "Export after change failed", "component", "worker", "error", err)
			}
		case <-tick:
			if _, err := w.ExportCurrentWeek(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "component", "worker", "error", err)
			}
		}
	}
}

// drain discards events already buffered on ch and returns how many.
func drain(ch <-chan feed.Event) int {
	n := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}
