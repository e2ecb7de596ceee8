package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"akunting/internal/core"
	"akunting/internal/feed"
	"akunting/internal/memory"

	"github.com/google/uuid"
)

var wib = time.FixedZone("WIB", 7*3600)

type recordingWriter struct {
	mu      sync.Mutex
	written []core.WeeklySummary
	err     error
	notify  chan struct{}
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{notify: make(chan struct{}, 16)}
}

func (w *recordingWriter) WriteSummary(_ context.Context, s core.WeeklySummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, s)
	select {
	case w.notify <- struct{}{}:
	default:
	}
	return nil
}

func (w *recordingWriter) last() core.WeeklySummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written[len(w.written)-1]
}

func (w *recordingWriter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-w.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for export")
	}
}

func seedStore(t *testing.T) (*memory.Store, core.Student) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	st := core.Student{ID: uuid.New(), Name: "Ahmad", FeePerWeek: 200000, MukafaahPerWeek: 50000, Active: true}
	if err := store.InsertStudent(ctx, st); err != nil {
		t.Fatal(err)
	}
	pay := core.Payment{ID: uuid.New(), StudentID: st.ID, Date: core.NewDate(2024, 1, 9), Amount: 100000}
	if err := store.InsertPayment(ctx, pay); err != nil {
		t.Fatal(err)
	}
	return store, st
}

func newTestWorker(store *memory.Store, w *recordingWriter, interval time.Duration) *ReportWorker {
	rw := NewReportWorker(store, w, wib, interval)
	rw.now = func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, wib) }
	return rw
}

func TestExportCurrentWeek(t *testing.T) {
	store, _ := seedStore(t)
	w := newRecordingWriter()

	sum, err := newTestWorker(store, w, 0).ExportCurrentWeek(context.Background())
	if err != nil {
		t.Fatalf("ExportCurrentWeek() error = %v", err)
	}
	if sum.Period.Key != "2024-01-08_2024-01-14" {
		t.Errorf("key = %s", sum.Period.Key)
	}
	if sum.Expected != 150000 || sum.Payments != 100000 || sum.Net != 100000 {
		t.Errorf("totals = %+v", sum)
	}
	if got := w.last(); got.Period.Key != sum.Period.Key {
		t.Errorf("written key = %s", got.Period.Key)
	}
}

func TestExportCurrentWeek_WriterError(t *testing.T) {
	store, _ := seedStore(t)
	w := newRecordingWriter()
	w.err = errors.New("quota exceeded")

	_, err := newTestWorker(store, w, 0).ExportCurrentWeek(context.Background())
	if err == nil || !errors.Is(err, w.err) {
		t.Fatalf("ExportCurrentWeek() error = %v, want wrapped writer error", err)
	}
}

func TestRun_ExportsOnStartupAndEvents(t *testing.T) {
	store, st := seedStore(t)
	w := newRecordingWriter()
	hub := feed.NewHub(feed.DefaultBuffer)
	rw := newTestWorker(store, w, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rw.Run(ctx, hub) }()

	w.wait(t)
	if got := w.last().Payments; got != 100000 {
		t.Fatalf("startup payments = %d, want 100000", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	pay := core.Payment{ID: uuid.New(), StudentID: st.ID, Date: core.NewDate(2024, 1, 12), Amount: 50000}
	if err := store.InsertPayment(ctx, pay); err != nil {
		t.Fatal(err)
	}
	if err := hub.Publish(ctx, feed.Event{Kind: feed.KindPayments, Op: feed.OpInsert, ID: pay.ID}); err != nil {
		t.Fatal(err)
	}

	w.wait(t)
	if got := w.last().Payments; got != 150000 {
		t.Errorf("payments after event = %d, want 150000", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_PeriodicWithoutFeed(t *testing.T) {
	store, _ := seedStore(t)
	w := newRecordingWriter()
	rw := newTestWorker(store, w, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rw.Run(ctx, nil)

	// startup plus at least two ticks
	for i := 0; i < 3; i++ {
		w.wait(t)
	}
}

type failingSubscriber struct{}

func (failingSubscriber) Subscribe(context.Context) (<-chan feed.Event, error) {
	return nil, errors.New("broker unavailable")
}

func TestRun_SubscribeError(t *testing.T) {
	store, _ := seedStore(t)
	rw := newTestWorker(store, newRecordingWriter(), 0)

	if err := rw.Run(context.Background(), failingSubscriber{}); err == nil {
		t.Fatal("expected subscribe error")
	}
}

func TestDrain(t *testing.T) {
	ch := make(chan feed.Event, 4)
	ch <- feed.Event{}
	ch <- feed.Event{}
	if n := drain(ch); n != 2 {
		t.Errorf("drain() = %d, want 2", n)
	}
	if n := drain(ch); n != 0 {
		t.Errorf("drain() on empty = %d, want 0", n)
	}
	close(ch)
	if n := drain(ch); n != 0 {
		t.Errorf("drain() on closed = %d, want 0", n)
	}
}
