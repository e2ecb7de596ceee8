package feed

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultBuffer is the per-subscriber channel size used by NewHub.
const DefaultBuffer = 64

// Hub broadcasts events to in-process subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
	closed bool
}

var (
	_ Publisher  = (*Hub)(nil)
	_ Subscriber = (*Hub)(nil)
)

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[chan Event]struct{}), buffer: buffer}
}

func (h *Hub) Publish(ctx context.Context, e Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			slog.WarnContext(ctx, "Dropping change event for slow subscriber",
				"component", "feed", "kind", e.Kind, "op", e.Op)
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, nil
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(ch)
	}()
	return ch, nil
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	return nil
}

func (h *Hub) remove(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}
