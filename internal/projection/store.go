// Package projection keeps small, persisted, per-user materialized views of
// backend collections (such as "projects I belong to") and refreshes them
// when the change bus reports something relevant.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/model"
)

// Loader fetches the collection for a session from the backend.
type Loader[T any] func(ctx context.Context, session model.Session) ([]T, error)

// Relevance reports whether an event should trigger a refresh.
type Relevance func(ev changebus.Event) bool

// Store is a cached collection scoped to the current session.
//
// Refreshes may overlap. Results commit one at a time and the last to
// finish wins; a refresh that finishes after the session changed is
// discarded.
type Store[T any] struct {
	name     string
	cache    Cache
	load     Loader[T]
	relevant Relevance
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	commitMu sync.Mutex

	mu      sync.RWMutex
	session model.Session
	gen     uint64
	items   []T
}

// New creates a Store. name prefixes every cache key.
func New[T any](name string, cache Cache, load Loader[T], relevant Relevance, logger *slog.Logger) *Store[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store[T]{
		name:     name,
		cache:    cache,
		load:     load,
		relevant: relevant,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Key returns the cache key for session.
func (s *Store[T]) Key(session model.Session) string {
	if session.IsGuest() {
		return s.name + "_guest"
	}
	return s.name + "_" + session.UserID
}

// Get returns a copy of the current collection.
func (s *Store[T]) Get() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Session returns the session the store is scoped to.
func (s *Store[T]) Session() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// SetSession switches the store to session: the cached value for the new
// key is shown immediately, then replaced by a fresh load.
func (s *Store[T]) SetSession(ctx context.Context, session model.Session) error {
	s.mu.Lock()
	s.session = session
	s.gen++
	gen := s.gen
	s.items = nil
	s.mu.Unlock()

	if !session.IsGuest() {
		s.loadCached(ctx, gen, session)
	}
	return s.Refresh(ctx)
}

func (s *Store[T]) loadCached(ctx context.Context, gen uint64, session model.Session) {
	key := s.Key(session)
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("projection: cache read failed", "key", key, "err", err)
		return
	}
	if !ok {
		return
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("projection: discarding unreadable cache entry", "key", key, "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.items = items
	}
}

// Refresh reloads the collection for the current session and replaces
// both the in-memory and the cached value. A guest session always holds an
// empty collection.
func (s *Store[T]) Refresh(ctx context.Context) error {
	s.mu.RLock()
	session, gen := s.session, s.gen
	s.mu.RUnlock()

	items := []T{}
	if !session.IsGuest() {
		loaded, err := s.load(ctx, session)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", s.Key(session), err)
		}
		if loaded != nil {
			items = loaded
		}
	}
	return s.commit(ctx, gen, session, items)
}

func (s *Store[T]) commit(ctx context.Context, gen uint64, session model.Session, items []T) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("projection: discarding refresh for previous session", "key", s.Key(session))
		return nil
	}
	s.items = items
	s.mu.Unlock()

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.Key(session), err)
	}
	if err := s.cache.Set(ctx, s.Key(session), data); err != nil {
		return fmt.Errorf("persist %s: %w", s.Key(session), err)
	}
	return nil
}

// Attach subscribes the store to bus. Relevant events trigger a refresh in
// the background; the caller closes the returned handle.
func (s *Store[T]) Attach(bus *changebus.Bus) *changebus.Handle {
	return bus.Subscribe(func(ev changebus.Event) {
		if s.relevant != nil && s.relevant(ev) {
			s.refreshAsync()
		}
	})
}

func (s *Store[T]) refreshAsync() {
	if s.ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Refresh(s.ctx); err != nil && s.ctx.Err() == nil {
			s.logger.Warn("projection: refresh failed", "err", err)
		}
	}()
}

// Wait blocks until background refreshes have finished.
func (s *Store[T]) Wait() {
	s.wg.Wait()
}

// Close cancels background refreshes and waits for them. It does not
// close the cache.
func (s *Store[T]) Close() {
	s.cancel()
	s.wg.Wait()
}
