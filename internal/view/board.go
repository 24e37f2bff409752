// Package view holds the in-memory UI state that consumes change bus
// events: the task board and the session user's own profile.
package view

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/model"
)

// TaskLister lists tasks for a full reload.
type TaskLister interface {
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.TaskDetail, error)
}

// boardTables are the tables whose batch invalidation reloads the board.
var boardTables = []model.Table{
	model.TableTasks,
	model.TableTaskAttachments,
	model.TableTaskComments,
	model.TableProjects,
	model.TableProfiles,
}

// TaskBoard is the locally held list of tasks. Records only ever come from
// a backend fetch: add and update events carry the refetched record, which
// replaces the held copy wholesale.
type TaskBoard struct {
	lister TaskLister
	filter model.TaskFilter
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	tasks map[string]*model.TaskDetail
	gen   uint64 // bumped by Load and Reset; a listing commits only if unchanged
}

// NewTaskBoard returns an empty board that reloads through lister.
func NewTaskBoard(lister TaskLister, filter model.TaskFilter, logger *slog.Logger) *TaskBoard {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskBoard{
		lister: lister,
		filter: filter,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[string]*model.TaskDetail),
	}
}

// Load replaces the board with a fresh listing. A listing that finishes
// after a later Load or Reset is dropped.
func (b *TaskBoard) Load(ctx context.Context) error {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.mu.Unlock()

	list, err := b.lister.ListTasks(ctx, b.filter)
	if err != nil {
		return fmt.Errorf("load task board: %w", err)
	}
	tasks := make(map[string]*model.TaskDetail, len(list))
	for _, t := range list {
		tasks[t.ID] = t
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen {
		b.logger.Debug("view: discarding stale task board listing")
		return nil
	}
	b.tasks = tasks
	return nil
}

// Reset empties the board.
func (b *TaskBoard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.tasks = make(map[string]*model.TaskDetail)
}

// Apply folds one event into the board.
func (b *TaskBoard) Apply(ev changebus.Event) {
	switch ev.Kind {
	case changebus.KindAdd, changebus.KindUpdate:
		b.mu.Lock()
		b.tasks[ev.Task.ID] = ev.Task
		b.mu.Unlock()
	case changebus.KindDelete:
		b.mu.Lock()
		delete(b.tasks, ev.DeletedID)
		b.mu.Unlock()
	case changebus.KindProfileChange:
		b.patchProfile(ev.Profile)
	case changebus.KindBatchInvalidate:
		for _, t := range boardTables {
			if ev.Table == t {
				b.reloadAsync()
				return
			}
		}
	}
}

// patchProfile swaps in p wherever the board shows that user.
func (b *TaskBoard) patchProfile(p *model.Profile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, t := range b.tasks {
		touched := false
		cp := *t
		if cp.Assignee != nil && cp.Assignee.ID == p.ID {
			cp.Assignee = p
			touched = true
		}
		if cp.Creator != nil && cp.Creator.ID == p.ID {
			cp.Creator = p
			touched = true
		}
		if touched {
			b.tasks[id] = &cp
		}
	}
}

func (b *TaskBoard) reloadAsync() {
	if b.ctx.Err() != nil {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.Load(b.ctx); err != nil && b.ctx.Err() == nil {
			b.logger.Warn("view: task board reload failed", "err", err)
		}
	}()
}

// Attach subscribes the board to bus.
func (b *TaskBoard) Attach(bus *changebus.Bus) *changebus.Handle {
	return bus.Subscribe(b.Apply)
}

// Get returns the held record for id.
func (b *TaskBoard) Get(id string) (*model.TaskDetail, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[id]
	return t, ok
}

// Tasks returns the board ordered by priority, then most recently updated.
func (b *TaskBoard) Tasks() []*model.TaskDetail {
	b.mu.RLock()
	out := make([]*model.TaskDetail, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of tasks held.
func (b *TaskBoard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tasks)
}

// Wait blocks until background reloads have finished.
func (b *TaskBoard) Wait() {
	b.wg.Wait()
}

// Close cancels background reloads and waits for them.
func (b *TaskBoard) Close() {
	b.cancel()
	b.wg.Wait()
}
