// Package feed turns raw row-change notifications from the backend into
// normalized change bus events.
//
// A Subscriber holds one transport subscription per watched table for the
// lifetime of a user session. Each table is processed by its own goroutine,
// so events of one table are handled in delivery order while tables proceed
// independently. Echoes of this client's own writes are dropped, task
// inserts and updates are re-fetched in full before being announced, and
// everything else is folded into coarse batch invalidations.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/echo"
	"github.com/alfredjeanlab/taskboard/internal/model"
)

// TaskFetcher loads the denormalized form of a task.
type TaskFetcher interface {
	GetTaskDetail(ctx context.Context, id string) (*model.TaskDetail, error)
}

// Publisher is the subset of *changebus.Bus the subscriber needs.
type Publisher interface {
	Publish(ev changebus.Event)
}

// EchoFilter is the subset of *echo.Suppressor the subscriber needs.
type EchoFilter interface {
	ShouldSuppress(table model.Table, id string, typ echo.EventType) bool
}

// Subscriber republishes backend row changes onto the change bus.
type Subscriber struct {
	transport Transport
	fetcher   TaskFetcher
	bus       Publisher
	echo      EchoFilter
	logger    *slog.Logger

	mu      sync.Mutex
	session model.Session
	cancel  context.CancelFunc
	subs    map[model.Table]func()
	wg      sync.WaitGroup

	// pubMu guards gen. A fetch that finishes after Stop sees a newer
	// generation and its result is discarded instead of published.
	pubMu sync.RWMutex
	gen   uint64
}

// NewSubscriber creates an idle subscriber. Call Start once a session exists.
func NewSubscriber(t Transport, fetcher TaskFetcher, bus Publisher, filter EchoFilter, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		transport: t,
		fetcher:   fetcher,
		bus:       bus,
		echo:      filter,
		logger:    logger,
		subs:      make(map[model.Table]func()),
	}
}

// Start opens one subscription per watched table for session, replacing any
// subscriptions held for a previous session. A guest session opens nothing.
// Tables whose subscription fails to open are logged and skipped; the
// returned error joins every *TransportError for callers that want to show
// connection state, and is nil when all tables subscribed.
func (s *Subscriber) Start(ctx context.Context, session model.Session) error {
	s.Stop()

	if session.IsGuest() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.session = session

	s.pubMu.RLock()
	gen := s.gen
	s.pubMu.RUnlock()

	var errs []error
	for _, table := range model.WatchedTables() {
		ch, unsubscribe, err := s.transport.Subscribe(table)
		if err != nil {
			terr := &TransportError{Table: table, Err: err}
			s.logger.Error("feed: subscribe failed", "table", table, "err", terr)
			errs = append(errs, terr)
			continue
		}
		s.subs[table] = unsubscribe
		s.wg.Add(1)
		go s.run(ctx, gen, session, table, ch)
	}

	s.logger.Info("feed: subscribed",
		"session", session.ID,
		"user", session.UserID,
		"tables", len(s.subs))
	return errors.Join(errs...)
}

// Stop tears down every subscription and waits for the per-table goroutines
// to exit. In-flight fetches are cancelled and their results discarded.
// Stop is safe to call when nothing is running. Bus handlers run on those
// goroutines, so a handler must not call Stop or Start synchronously.
func (s *Subscriber) Stop() {
	s.pubMu.Lock()
	s.gen++
	s.pubMu.Unlock()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	subs := s.subs
	s.subs = make(map[model.Table]func())
	hadSession := !s.session.IsGuest()
	s.session = model.Session{}
	s.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
	s.wg.Wait()

	if hadSession {
		s.logger.Info("feed: unsubscribed", "tables", len(subs))
	}
}

// ActiveSubscriptions returns the number of open table subscriptions.
func (s *Subscriber) ActiveSubscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Subscriber) run(ctx context.Context, gen uint64, session model.Session, table model.Table, ch <-chan []byte) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			s.handle(ctx, gen, session, table, raw)
		}
	}
}

// handle processes one raw payload for table.
func (s *Subscriber) handle(ctx context.Context, gen uint64, session model.Session, table model.Table, raw []byte) {
	change, err := DecodeRawChange(raw, table)
	if err != nil {
		s.logger.Warn("feed: rejecting malformed change", "table", table, "err", err)
		return
	}
	if change.Table != table {
		s.logger.Warn("feed: change delivered on wrong table", "table", table, "payload_table", change.Table)
		return
	}

	if s.echo != nil && s.echo.ShouldSuppress(change.Table, change.RecordID, change.Type) {
		return
	}

	switch change.Table {
	case model.TableTasks:
		s.handleTask(ctx, gen, change)
	case model.TableProfiles:
		s.handleProfile(gen, session, change)
	default:
		s.publish(gen, changebus.BatchInvalidate(change.Table))
	}
}

func (s *Subscriber) handleTask(ctx context.Context, gen uint64, change Change) {
	if change.Type == echo.EventDelete {
		s.publish(gen, changebus.Delete(change.RecordID))
		return
	}

	detail, err := s.fetcher.GetTaskDetail(ctx, change.RecordID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		ferr := &FetchError{Table: change.Table, ID: change.RecordID, Err: err}
		s.logger.Warn("feed: task refresh failed, dropping event", "err", ferr)
		return
	}

	if change.Type == echo.EventInsert {
		s.publish(gen, changebus.Add(detail))
	} else {
		s.publish(gen, changebus.Update(detail))
	}
}

func (s *Subscriber) handleProfile(gen uint64, session model.Session, change Change) {
	if change.Type == echo.EventDelete || change.RecordID != session.UserID {
		s.publish(gen, changebus.BatchInvalidate(model.TableProfiles))
		return
	}
	profile, err := decodeProfile(change.Record)
	if err != nil {
		s.logger.Warn("feed: rejecting malformed profile row", "id", change.RecordID, "err", err)
		return
	}
	s.publish(gen, changebus.ProfileChange(profile))
}

// publish forwards ev unless the subscription generation it was produced
// under has since been torn down. The lock is released before delivery;
// Stop still returns only after every in-flight publish, since publishes
// happen on the goroutines it waits for.
func (s *Subscriber) publish(gen uint64, ev changebus.Event) {
	s.pubMu.RLock()
	current := gen == s.gen
	s.pubMu.RUnlock()
	if !current {
		s.logger.Debug("feed: discarding result from closed subscription", "kind", ev.Kind)
		return
	}
	s.bus.Publish(ev)
}
