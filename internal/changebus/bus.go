package changebus

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not call Publish themselves.
type Handler func(Event)

// Bus delivers events to every currently subscribed handler in subscription
// order. There is no persistence and no replay: a handler that subscribes
// after an event was published never sees it.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers []*Handle
	nextID   uint64

	// deliverMu serializes delivery so handlers never run in parallel,
	// even when several goroutines publish.
	deliverMu sync.Mutex
	seq       atomic.Uint64
	epoch     time.Time
}

// Handle is returned by Subscribe. The owner must call Close when its scope ends.
type Handle struct {
	bus     *Bus
	id      uint64
	handler Handler
	closed  atomic.Bool
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger, epoch: time.Now()}
}

// Subscribe registers h and returns its handle.
func (b *Bus) Subscribe(h Handler) *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	handle := &Handle{bus: b, id: b.nextID, handler: h}
	b.handlers = append(b.handlers, handle)
	return handle
}

// Close detaches the handler. Calling Close more than once is a no-op.
func (h *Handle) Close() {
	if h == nil || !h.closed.CompareAndSwap(false, true) {
		return
	}
	b := h.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, other := range b.handlers {
		if other == h {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return
		}
	}
}

// OpenHandles returns the number of handles that have not been closed.
func (b *Bus) OpenHandles() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Publish stamps ev and delivers it to all handlers subscribed at the time
// of the call. A handler that panics is logged and skipped; delivery to the
// remaining handlers continues. Events whose payload does not match their
// kind are logged and dropped.
func (b *Bus) Publish(ev Event) {
	if err := ev.Validate(); err != nil {
		b.logger.Error("changebus: dropping malformed event", "kind", ev.Kind, "err", err)
		return
	}

	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	// Monotonic reading relative to bus creation, anchored to wall time.
	ev.OccurredAt = b.epoch.Add(time.Since(b.epoch))
	ev.Seq = b.seq.Add(1)

	b.mu.RLock()
	snapshot := make([]*Handle, len(b.handlers))
	copy(snapshot, b.handlers)
	b.mu.RUnlock()

	for _, h := range snapshot {
		if h.closed.Load() {
			continue
		}
		b.deliver(h, ev)
	}
}

func (b *Bus) deliver(h *Handle, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("changebus: handler panicked",
				"handler", h.id,
				"kind", ev.Kind,
				"seq", ev.Seq,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	h.handler(ev)
}
