// Package view keeps the local copy of the ledger that every read is served
// from, and the weekly summaries computed over it.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"akunting/internal/cache"
	"akunting/internal/core"
	"akunting/internal/feed"
	"akunting/internal/ports"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var ErrNotLoaded = errors.New("view not loaded")

type Options struct {
	Location  *time.Location
	CacheSize int
	CacheTTL  time.Duration
	Now       func() time.Time
}

// View holds the last known good snapshot. Collections are replaced
// wholesale and never modified in place, so a Snapshot value stays valid
// after later refreshes.
type View struct {
	reader ports.SnapshotReader
	loc    *time.Location
	now    func() time.Time

	mu     sync.RWMutex
	snap   core.Snapshot
	loaded bool

	summaries *cache.LRUCache[core.WeeklySummary]
	group     singleflight.Group
}

func New(reader ports.SnapshotReader, opts Options) *View {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 16
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &View{
		reader:    reader,
		loc:       opts.Location,
		now:       opts.Now,
		summaries: cache.NewLRUCache[core.WeeklySummary](opts.CacheSize, opts.CacheTTL),
	}
}

// Cache exposes the summary cache so its expired entries can be cleaned.
func (v *View) Cache() cache.Cleaner { return v.summaries }

// Load fetches all four collections concurrently and installs them
// together. On error the previous snapshot is kept.
func (v *View) Load(ctx context.Context) error {
	var snap core.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Classes, err = v.reader.ListClasses(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Students, err = v.reader.ListStudents(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Payments, err = v.reader.ListPayments(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Expenses, err = v.reader.ListExpenses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	v.mu.Lock()
	v.snap = snap
	v.loaded = true
	v.summaries.Purge()
	v.mu.Unlock()

	slog.InfoContext(ctx, "Ledger snapshot loaded",
		"component", "view",
		"classes", len(snap.Classes),
		"students", len(snap.Students),
		"payments", len(snap.Payments),
		"expenses", len(snap.Expenses))
	return nil
}

// Refresh refetches one collection and replaces it. The result always
// reflects writes that completed before the call.
func (v *View) Refresh(ctx context.Context, kind feed.Kind) error {
	_, err, shared := v.group.Do(string(kind), func() (any, error) {
		return nil, v.refresh(ctx, kind)
	})
	if shared {
		// The joined fetch may have started before the caller's write.
		_, err, _ = v.group.Do(string(kind), func() (any, error) {
			return nil, v.refresh(ctx, kind)
		})
	}
	return err
}

func (v *View) refresh(ctx context.Context, kind feed.Kind) error {
	var apply func(*core.Snapshot)
	switch kind {
	case feed.KindClasses:
		rows, err := v.reader.ListClasses(ctx)
		if err != nil {
			return fmt.Errorf("refresh classes: %w", err)
		}
		apply = func(s *core.Snapshot) { s.Classes = rows }
	case feed.KindStudents:
		rows, err := v.reader.ListStudents(ctx)
		if err != nil {
			return fmt.Errorf("refresh students: %w", err)
		}
		apply = func(s *core.Snapshot) { s.Students = rows }
	case feed.KindPayments:
		rows, err := v.reader.ListPayments(ctx)
		if err != nil {
			return fmt.Errorf("refresh payments: %w", err)
		}
		apply = func(s *core.Snapshot) { s.Payments = rows }
	case feed.KindExpenses:
		rows, err := v.reader.ListExpenses(ctx)
		if err != nil {
			return fmt.Errorf("refresh expenses: %w", err)
		}
		apply = func(s *core.Snapshot) { s.Expenses = rows }
	default:
		return fmt.Errorf("refresh: unknown kind %q", kind)
	}

	v.mu.Lock()
	apply(&v.snap)
	v.summaries.Purge()
	v.mu.Unlock()

	slog.DebugContext(ctx, "Collection refreshed", "component", "view", "kind", kind)
	return nil
}

// Apply refreshes every collection the event affects. Failures are logged
// and leave the previous data in place.
func (v *View) Apply(ctx context.Context, e feed.Event) error {
	var errs []error
	for _, kind := range e.Affects() {
		if err := v.Refresh(ctx, kind); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh collection",
				"component", "view", "kind", kind, "op", e.Op, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run applies events from sub until ctx is done or the subscription ends.
func (v *View) Run(ctx context.Context, sub feed.Subscriber) error {
	events, err := sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to changes: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			_ = v.Apply(ctx, e)
		}
	}
}

// Ready reports whether the first Load succeeded.
func (v *View) Ready() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// Snapshot returns the current collections.
func (v *View) Snapshot() core.Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snap
}

// Location is the time zone weeks are resolved in.
func (v *View) Location() *time.Location { return v.loc }

// Week resolves the week for a reference date string. Anything that is not
// a valid date means today.
func (v *View) Week(ref string) core.WeekPeriod {
	return core.ResolveWeek(core.ParseReferenceDate(ref, v.now().In(v.loc)))
}

// Today returns the current calendar date in the view's location.
func (v *View) Today() core.Date {
	return core.DateOf(v.now().In(v.loc))
}

// Summary returns the summary for a week, computing it on a cache miss.
func (v *View) Summary(p core.WeekPeriod) core.WeeklySummary {
	if s, ok := v.summaries.Get(p.Key); ok {
		return s
	}

	// Compute and store under the read lock so a concurrent refresh cannot
	// purge between the two and leave a stale entry behind.
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := core.Compute(v.snap, p)
	v.summaries.Set(p.Key, s)
	return s
}
