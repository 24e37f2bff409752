// Package echo recognizes change-feed notifications caused by this client's
// own writes.
//
// Before issuing a write that will come back through the change feed, the
// writer calls MarkPending for the record. The feed asks ShouldSuppress for
// every incoming event; the first matching non-delete event consumes the
// marker and is dropped. Markers expire after a grace window so a lost or
// reshaped echo cannot mask later external changes forever.
package echo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/alfredjeanlab/taskboard/internal/model"
)

// DefaultGrace is how long a pending marker waits for its echo.
const DefaultGrace = 5 * time.Second

// EventType is the raw change type reported by the feed transport.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Suppressor tracks pending local writes keyed by (table, id).
type Suppressor struct {
	pending *ttlcache.Cache[string, struct{}]
	grace   time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a suppressor whose markers expire after grace.
// A non-positive grace selects DefaultGrace.
func New(grace time.Duration, logger *slog.Logger) *Suppressor {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](grace),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	s := &Suppressor{pending: cache, grace: grace, logger: logger}
	cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, struct{}]) {
		if reason == ttlcache.EvictionReasonExpired {
			s.logger.Debug("echo: pending write expired without echo", "key", item.Key())
		}
	})
	return s
}

func key(table model.Table, id string) string {
	return string(table) + "/" + id
}

// Grace returns the configured expiry window.
func (s *Suppressor) Grace() time.Duration {
	return s.grace
}

// MarkPending records that a write to (table, id) is about to be issued.
// Marking an already pending record refreshes its deadline; it still
// suppresses only one echo.
func (s *Suppressor) MarkPending(table model.Table, id string) {
	if id == "" {
		return
	}
	s.pending.Set(key(table, id), struct{}{}, ttlcache.DefaultTTL)
}

// Forget drops the marker for (table, id). Writers call it when the write
// the marker guarded failed, so no echo is coming.
func (s *Suppressor) Forget(table model.Table, id string) {
	if id == "" {
		return
	}
	s.pending.Delete(key(table, id))
}

// ShouldSuppress reports whether an incoming event is the echo of a pending
// local write. A match consumes the marker, so at most one event is
// suppressed per marked write. Deletes are never suppressed: nothing else
// announces them to other views.
func (s *Suppressor) ShouldSuppress(table model.Table, id string, typ EventType) bool {
	if typ == EventDelete || id == "" {
		return false
	}
	item, ok := s.pending.GetAndDelete(key(table, id))
	if !ok || item == nil {
		return false
	}
	if item.IsExpired() {
		return false
	}
	s.logger.Debug("echo: suppressed", "table", table, "id", id, "type", typ)
	return true
}

// Pending returns the number of unexpired markers.
func (s *Suppressor) Pending() int {
	s.pending.DeleteExpired()
	return s.pending.Len()
}

// Start launches the periodic sweep that evicts expired markers. Lookups
// ignore expired markers whether or not the sweep runs.
func (s *Suppressor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.pending.Start()
}

// Stop halts the sweep started by Start.
func (s *Suppressor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.pending.Stop()
}
