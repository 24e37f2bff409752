// Package app assembles the sync core for one signed-in user: the change
// bus, echo suppression, the change feed, the write coordinators, the
// cached project list and the task board.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/coordinator"
	"github.com/alfredjeanlab/taskboard/internal/echo"
	"github.com/alfredjeanlab/taskboard/internal/feed"
	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/notify"
	"github.com/alfredjeanlab/taskboard/internal/projection"
	"github.com/alfredjeanlab/taskboard/internal/store"
	"github.com/alfredjeanlab/taskboard/internal/view"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Deps are the external pieces an App runs on.
type Deps struct {
	Store     store.Store
	Transport feed.Transport
	Cache     projection.Cache

	// Toaster receives user-facing messages in addition to the log.
	Toaster notify.Toaster
	// Toasts, if set, also receives every toast and is exposed by Toasts().
	Toasts *notify.WSHub

	EchoGrace time.Duration
	Filter    model.TaskFilter
	Logger    *slog.Logger
}

// App is one running client of the task backend.
type App struct {
	store     store.Store
	transport feed.Transport
	cache     projection.Cache
	toasts    *notify.WSHub
	toaster   notify.Toaster
	logger    *slog.Logger

	bus      *changebus.Bus
	echo     *echo.Suppressor
	feed     *feed.Subscriber
	saver    *coordinator.ProjectSaver
	writer   *coordinator.TaskWriter
	projects *projection.Store[*model.Project]
	board    *view.TaskBoard
	profile  *view.ProfileView
	handles  []*changebus.Handle

	mu      sync.RWMutex
	session model.Session

	closeOnce sync.Once
}

// New wires an App. Nothing is loaded until StartSession.
func New(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if d.Cache == nil {
		d.Cache = projection.NewMemoryCache()
	}

	toasters := notify.Multi{notify.LogToaster{Logger: logger}}
	if d.Toaster != nil {
		toasters = append(toasters, d.Toaster)
	}
	if d.Toasts != nil {
		toasters = append(toasters, d.Toasts)
	}

	bus := changebus.New(logger)
	suppressor := echo.New(d.EchoGrace, logger)
	suppressor.Start()

	a := &App{
		store:     d.Store,
		transport: d.Transport,
		cache:     d.Cache,
		toasts:    d.Toasts,
		toaster:   toasters,
		logger:    logger,
		bus:       bus,
		echo:      suppressor,
		feed:      feed.NewSubscriber(d.Transport, d.Store, bus, suppressor, logger),
		saver:     coordinator.NewProjectSaver(d.Store, suppressor, bus, toasters, logger),
		writer:    coordinator.NewTaskWriter(d.Store, suppressor, bus, toasters, logger),
		projects:  projection.NewProjects(d.Cache, d.Store, logger),
		board:     view.NewTaskBoard(d.Store, d.Filter, logger),
		profile:   view.NewProfileView(),
	}
	a.handles = []*changebus.Handle{
		a.projects.Attach(bus),
		a.board.Attach(bus),
		a.profile.Attach(bus),
	}
	return a
}

// Bus returns the change bus every component publishes on.
func (a *App) Bus() *changebus.Bus { return a.bus }

// Toasts returns the websocket toast endpoint, or nil if none was configured.
func (a *App) Toasts() http.Handler {
	if a.toasts == nil {
		return nil
	}
	return a.toasts
}

// Session returns the current session. It is the zero value while signed out.
func (a *App) Session() model.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Profile returns the signed-in user's profile.
func (a *App) Profile() *model.Profile { return a.profile.Profile() }

// Projects returns the projects the signed-in user belongs to.
func (a *App) Projects() []*model.Project { return a.projects.Get() }

// Tasks returns the board in display order.
func (a *App) Tasks() []*model.TaskDetail { return a.board.Tasks() }

// Feed exposes the change feed subscriber for status reporting.
func (a *App) Feed() *feed.Subscriber { return a.feed }

// StartSession signs userID in, replacing any current session. The feed,
// the project list and the board start in parallel. Tables whose feed
// subscription failed are reported with a warning toast and do not fail
// the session.
func (a *App) StartSession(ctx context.Context, userID string) (model.Session, error) {
	if userID == "" {
		return model.Session{}, errors.New("start session: user id is required")
	}
	a.EndSession(ctx)

	profile, err := a.store.GetProfile(ctx, userID)
	if err != nil {
		return model.Session{}, fmt.Errorf("start session: load profile %s: %w", userID, err)
	}
	session := model.Session{ID: uuid.NewString(), UserID: userID, Role: profile.Role}
	a.profile.Set(profile)

	a.mu.Lock()
	a.session = session
	a.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.feed.Start(context.WithoutCancel(gctx), session); err != nil {
			a.logger.Warn("app: change feed partially unavailable", "err", err)
			a.toaster.Toast("Live updates are unavailable for some data", notify.SeverityWarning)
		}
		return nil
	})
	g.Go(func() error {
		return a.projects.SetSession(gctx, session)
	})
	g.Go(func() error {
		return a.board.Load(gctx)
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("app: session start incomplete", "session", session.ID, "err", err)
		return session, fmt.Errorf("start session: %w", err)
	}

	a.logger.Info("app: session started",
		"session", session.ID, "user", userID, "role", session.Role,
		"projects", len(a.projects.Get()), "tasks", a.board.Len())
	return session, nil
}

// EndSession signs out: the feed is torn down and the projections fall
// back to the guest (empty) state. Calling it while signed out is a no-op.
func (a *App) EndSession(ctx context.Context) {
	a.mu.Lock()
	prev := a.session
	a.session = model.Session{}
	a.mu.Unlock()
	if prev.IsGuest() {
		return
	}

	a.feed.Stop()
	if err := a.projects.SetSession(ctx, model.Session{}); err != nil {
		a.logger.Warn("app: reset projects", "err", err)
	}
	a.board.Reset()
	a.profile.Set(nil)
	a.logger.Info("app: session ended", "session", prev.ID)
}

// ProjectMembers returns the user ids currently on a project's roster,
// sorted. The project editor uses it as the original member list.
func (a *App) ProjectMembers(ctx context.Context, projectID string) ([]string, error) {
	members, err := a.store.ListProjectMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", projectID, err)
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	sort.Strings(ids)
	return ids, nil
}

// FindProject returns the project with id from the user's project list.
func (a *App) FindProject(id string) (*model.Project, bool) {
	for _, p := range a.projects.Get() {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// SaveProject runs the project editor's save on behalf of the current session.
func (a *App) SaveProject(ctx context.Context, req coordinator.ProjectSaveRequest) (*coordinator.SaveResult, error) {
	return a.saver.Save(ctx, req, a.Session())
}

// SetTaskStatus moves a task and reflects it on the board.
func (a *App) SetTaskStatus(ctx context.Context, id string, status model.TaskStatus) (*model.TaskDetail, error) {
	return a.writer.SetStatus(ctx, id, status)
}

// UpdateTask writes the editable fields of a task.
func (a *App) UpdateTask(ctx context.Context, task *model.Task) (*model.TaskDetail, error) {
	return a.writer.UpdateTask(ctx, task)
}

// DeleteTask deletes a task. The board drops it when the feed delivers
// the delete.
func (a *App) DeleteTask(ctx context.Context, id string) error {
	return a.writer.DeleteTask(ctx, id)
}

// Wait blocks until background projection refreshes and board reloads
// have finished.
func (a *App) Wait() {
	a.projects.Wait()
	a.board.Wait()
}

// Close ends the session and releases every resource.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		a.EndSession(context.Background())
		for _, h := range a.handles {
			h.Close()
		}
		a.projects.Close()
		a.board.Close()
		a.echo.Stop()
		if a.toasts != nil {
			a.toasts.Close()
		}
		if a.transport != nil {
			if err := a.transport.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close transport: %w", err))
			}
		}
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
		if a.store != nil {
			if err := a.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}
