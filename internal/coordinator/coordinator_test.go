package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/echo"
	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memberCall struct {
	op        string
	projectID string
	userIDs   []string
}

// fakeBackend records every call and fails the ones named in errs.
type fakeBackend struct {
	mu sync.Mutex

	admins   []*model.Profile
	tasks    map[string]*model.TaskDetail
	errs     map[string]error
	calls    []string
	members  []memberCall
	notified []*model.Notification
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tasks: make(map[string]*model.TaskDetail),
		errs:  make(map[string]error),
	}
}

func (f *fakeBackend) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeBackend) CreateProject(_ context.Context, p *model.Project) (*model.Project, error) {
	if err := f.record("CreateProject"); err != nil {
		return nil, err
	}
	out := *p
	out.CreatedAt = time.Now()
	out.UpdatedAt = out.CreatedAt
	return &out, nil
}

func (f *fakeBackend) UpdateProject(_ context.Context, p *model.Project) (*model.Project, error) {
	if err := f.record("UpdateProject"); err != nil {
		return nil, err
	}
	out := *p
	out.UpdatedAt = time.Now()
	return &out, nil
}

func (f *fakeBackend) AddProjectMembers(_ context.Context, projectID string, userIDs []string) error {
	f.mu.Lock()
	f.members = append(f.members, memberCall{"add", projectID, userIDs})
	f.mu.Unlock()
	return f.record("AddProjectMembers")
}

func (f *fakeBackend) RemoveProjectMembers(_ context.Context, projectID string, userIDs []string) error {
	f.mu.Lock()
	f.members = append(f.members, memberCall{"remove", projectID, userIDs})
	f.mu.Unlock()
	return f.record("RemoveProjectMembers")
}

func (f *fakeBackend) ListAdmins(context.Context) ([]*model.Profile, error) {
	if err := f.record("ListAdmins"); err != nil {
		return nil, err
	}
	return f.admins, nil
}

func (f *fakeBackend) InsertNotifications(_ context.Context, n []*model.Notification) error {
	if err := f.record("InsertNotifications"); err != nil {
		return err
	}
	f.mu.Lock()
	f.notified = append(f.notified, n...)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) GetTaskDetail(_ context.Context, id string) (*model.TaskDetail, error) {
	if err := f.record("GetTaskDetail"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.tasks[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *d
	return &cp, nil
}

func (f *fakeBackend) UpdateTask(_ context.Context, t *model.Task) error {
	if err := f.record("UpdateTask"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = &model.TaskDetail{Task: *t}
	return nil
}

func (f *fakeBackend) SetTaskStatus(_ context.Context, id string, status model.TaskStatus) error {
	if err := f.record("SetTaskStatus"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.tasks[id]; ok {
		d.Status = status
	}
	return nil
}

func (f *fakeBackend) DeleteTask(_ context.Context, id string) error {
	if err := f.record("DeleteTask"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

type harness struct {
	backend *fakeBackend
	echo    *echo.Suppressor
	bus     *changebus.Bus
	toasts  *notify.Recorder
	saver   *ProjectSaver
	writer  *TaskWriter

	mu     sync.Mutex
	events []changebus.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		backend: newFakeBackend(),
		echo:    echo.New(time.Minute, testLogger()),
		bus:     changebus.New(testLogger()),
		toasts:  &notify.Recorder{},
	}
	sub := h.bus.Subscribe(func(ev changebus.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, ev)
	})
	t.Cleanup(sub.Close)

	h.saver = NewProjectSaver(h.backend, h.echo, h.bus, h.toasts, testLogger())
	h.saver.newID = func() (string, error) { return "pr-alpha", nil }
	h.writer = NewTaskWriter(h.backend, h.echo, h.bus, h.toasts, testLogger())
	return h
}

func (h *harness) published() []changebus.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]changebus.Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *harness) projectInvalidations() int {
	n := 0
	for _, ev := range h.published() {
		if ev.Invalidates(model.TableProjects) {
			n++
		}
	}
	return n
}

var (
	admin   = model.Session{ID: "s-a", UserID: "A", Role: model.RoleAdmin}
	manager = model.Session{ID: "s-m", UserID: "M", Role: model.RoleProjectManager}
	member  = model.Session{ID: "s-b", UserID: "B", Role: model.RoleMember}
)

func TestMembershipDiff(t *testing.T) {
	for _, tc := range []struct {
		name       string
		updated    []string
		original   []string
		wantAdd    []string
		wantRemove []string
	}{
		{"swap", []string{"B", "C"}, []string{"A", "B"}, []string{"C"}, []string{"A"}},
		{"same", []string{"A", "B"}, []string{"B", "A"}, nil, nil},
		{"all new", []string{"C", "A"}, nil, []string{"A", "C"}, nil},
		{"all gone", nil, []string{"B", "A"}, nil, []string{"A", "B"}},
		{"duplicates", []string{"A", "A", "C"}, []string{"C", "C"}, []string{"A"}, nil},
		{"empty ids ignored", []string{"", "A"}, []string{""}, []string{"A"}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			add, remove := MembershipDiff(tc.updated, tc.original)
			if !reflect.DeepEqual(add, tc.wantAdd) {
				t.Errorf("toAdd = %v, want %v", add, tc.wantAdd)
			}
			if !reflect.DeepEqual(remove, tc.wantRemove) {
				t.Errorf("toRemove = %v, want %v", remove, tc.wantRemove)
			}
			for _, a := range add {
				for _, r := range remove {
					if a == r {
						t.Errorf("%q in both sets", a)
					}
				}
			}
		})
	}
}

func TestSave_CreateProject(t *testing.T) {
	h := newHarness(t)
	h.backend.admins = []*model.Profile{
		{ID: "A", Role: model.RoleAdmin},
		{ID: "X", Role: model.RoleAdmin},
		{ID: "Y", Role: model.RoleAdmin},
	}
	closed := 0

	res, err := h.saver.Save(context.Background(), ProjectSaveRequest{
		Name:           "Alpha",
		Color:          "#ff0000",
		UpdatedMembers: []string{"A", "B"},
		OnClose:        func() { closed++ },
	}, admin)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !res.Created || res.Project.ID != "pr-alpha" || res.Project.CreatedBy != "A" {
		t.Errorf("result = %+v", res.Project)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v", res.Warnings)
	}

	if got := h.backend.count("CreateProject"); got != 1 {
		t.Errorf("CreateProject calls = %d, want 1", got)
	}
	want := []memberCall{{"add", "pr-alpha", []string{"A"}}}
	if !reflect.DeepEqual(h.backend.members, want) {
		t.Errorf("member calls = %+v, want %+v", h.backend.members, want)
	}

	if len(h.backend.notified) != 2 {
		t.Fatalf("notifications = %d, want 2 (other admins)", len(h.backend.notified))
	}
	for _, n := range h.backend.notified {
		if n.UserID == "A" {
			t.Error("actor should not be notified")
		}
		if n.Kind != model.NotifyProjectCreated || n.ProjectID != "pr-alpha" || !strings.HasPrefix(n.ID, "nt-") {
			t.Errorf("notification = %+v", n)
		}
	}

	if got := h.projectInvalidations(); got != 1 {
		t.Errorf("project invalidations = %d, want 1", got)
	}
	if len(h.published()) != 1 {
		t.Errorf("published %d events, want 1", len(h.published()))
	}
	if h.toasts.Count(notify.SeveritySuccess) != 1 || len(h.toasts.Toasts()) != 1 {
		t.Errorf("toasts = %+v", h.toasts.Toasts())
	}
	if closed != 1 {
		t.Errorf("OnClose called %d times, want 1", closed)
	}

	// Both writes were marked so their echoes are swallowed once.
	if !h.echo.ShouldSuppress(model.TableProjects, "pr-alpha", echo.EventInsert) {
		t.Error("project insert echo not marked")
	}
	if !h.echo.ShouldSuppress(model.TableProjectMembers, model.MemberKey("pr-alpha", "A"), echo.EventInsert) {
		t.Error("creator membership echo not marked")
	}
}

func TestSave_UpdateMembershipDiff(t *testing.T) {
	h := newHarness(t)
	beta := &model.Project{ID: "pr-beta", Name: "Beta", Color: "#00ff00"}

	res, err := h.saver.Save(context.Background(), ProjectSaveRequest{
		Name:            "Beta",
		Color:           "#00ff00",
		UpdatedMembers:  []string{"B", "C"},
		OriginalMembers: []string{"A", "B"},
		Target:          beta,
	}, manager)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Created {
		t.Error("Created should be false for an existing project")
	}

	want := []memberCall{
		{"remove", "pr-beta", []string{"A"}},
		{"add", "pr-beta", []string{"C"}},
	}
	if !reflect.DeepEqual(h.backend.members, want) {
		t.Errorf("member calls = %+v, want %+v", h.backend.members, want)
	}
	if h.backend.count("ListAdmins") != 0 || h.backend.count("InsertNotifications") != 0 {
		t.Error("updates must not notify admins")
	}
	if got := h.projectInvalidations(); got != 1 {
		t.Errorf("project invalidations = %d, want 1", got)
	}
	if h.echo.Pending() != 2 {
		t.Errorf("pending markers = %d, want 2 (project + added member)", h.echo.Pending())
	}
}

func TestSave_RemovedMemberReAddIsNotSuppressed(t *testing.T) {
	h := newHarness(t)

	_, err := h.saver.Save(context.Background(), ProjectSaveRequest{
		Name:            "Beta",
		Color:           "#00ff00",
		UpdatedMembers:  []string{"B"},
		OriginalMembers: []string{"A", "B"},
		Target:          &model.Project{ID: "pr-beta"},
	}, admin)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	key := model.MemberKey("pr-beta", "A")
	if h.echo.ShouldSuppress(model.TableProjectMembers, key, echo.EventDelete) {
		t.Fatal("removal echo should propagate")
	}
	if h.echo.Pending() != 1 {
		t.Errorf("pending markers = %d, want 1 (project only)", h.echo.Pending())
	}
	// Someone else adds A back within the grace window.
	if h.echo.ShouldSuppress(model.TableProjectMembers, key, echo.EventInsert) {
		t.Error("external re-add of a removed member was suppressed")
	}
}

func TestSave_UnchangedMembershipIssuesNoCalls(t *testing.T) {
	h := newHarness(t)

	_, err := h.saver.Save(context.Background(), ProjectSaveRequest{
		Name:            "Beta",
		Color:           "#00ff00",
		UpdatedMembers:  []string{"B", "A"},
		OriginalMembers: []string{"A", "B"},
		Target:          &model.Project{ID: "pr-beta"},
	}, admin)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(h.backend.members) != 0 {
		t.Errorf("member calls = %+v, want none", h.backend.members)
	}
	if got := h.projectInvalidations(); got != 1 {
		t.Errorf("project invalidations = %d, want 1", got)
	}
}

func TestSave_RemoveFailureIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.backend.errs["RemoveProjectMembers"] = errors.New("network error")
	closed := false

	res, err := h.saver.Save(context.Background(), ProjectSaveRequest{
		Name:            "Beta",
		Color:           "#00ff00",
		UpdatedMembers:  []string{"B", "C"},
		OriginalMembers: []string{"A", "B"},
		Target:          &model.Project{ID: "pr-beta"},
		OnClose:         func() { closed = true },
	}, admin)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if len(res.Warnings) != 1 || res.Warnings[0].Step != StepRemoveMembers {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if h.backend.count("AddProjectMembers") != 1 {
		t.Error("add call should still be issued after a failed removal")
	}
	if h.toasts.Count(notify.SeveritySuccess) != 1 {
		t.Errorf("success toasts = %d, want 1", h.toasts.Count(notify.SeveritySuccess))
	}
	if h.toasts.Count(notify.SeverityError) != 1 {
		t.Errorf("error toasts = %d, want 1", h.toasts.Count(notify.SeverityError))
	}
	var errToast string
	for _, ts := range h.toasts.Toasts() {
		if ts.Severity == notify.SeverityError {
			errToast = ts.Message
		}
	}
	if !strings.Contains(errToast, "remove members") || !strings.Contains(errToast, "network error") {
		t.Errorf("error toast = %q", errToast)
	}
	if got := h.projectInvalidations(); got != 1 {
		t.Errorf("project invalidations = %d, want 1", got)
	}
	if !closed {
		t.Error("OnClose should run after a partial save")
	}
}

func TestSave_BothMemberCallsFail(t *testing.T) {
	h := newHarness(t)
	h.backend.errs["RemoveProjectMembers"] = errors.New("boom")
	h.backend.errs["AddProjectMembers"] = errors.New("bang")

	res, err := h.saver.Save(context.Background(), ProjectSaveRequest{
		Name:            "Beta",
		Color:           "#00ff00",
		UpdatedMembers:  []string{"C"},
		OriginalMembers: []string{"A"},
		Target:          &model.Project{ID: "pr-beta"},
	}, admin)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", res.Warnings)
	}
	if h.echo.ShouldSuppress(model.TableProjectMembers, model.MemberKey("pr-beta", "C"), echo.EventInsert) {
		t.Error("failed add must not leave a marker for C")
	}
	if h.toasts.Count(notify.SeverityError) != 2 || h.toasts.Count(notify.SeveritySuccess) != 1 {
		t.Errorf("toasts = %+v", h.toasts.Toasts())
	}
	if got := h.projectInvalidations(); got != 1 {
		t.Errorf("project invalidations = %d, want 1", got)
	}
}

func TestSave_CreatorAndAdminFailures(t *testing.T) {
	h := newHarness(t)
	h.backend.errs["AddProjectMembers"] = errors.New("rls violation")
	h.backend.errs["ListAdmins"] = errors.New("timeout")

	res, err := h.saver.Save(context.Background(), ProjectSaveRequest{Name: "Alpha", Color: "#123456"}, admin)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Step != StepAddCreator {
		t.Errorf("warnings = %v", res.Warnings)
	}
	if h.echo.ShouldSuppress(model.TableProjectMembers, model.MemberKey("pr-alpha", "A"), echo.EventInsert) {
		t.Error("failed creator add must not leave a marker")
	}
	// Admin lookup failure is logged only.
	if h.toasts.Count(notify.SeverityError) != 1 {
		t.Errorf("error toasts = %d, want 1", h.toasts.Count(notify.SeverityError))
	}
	if h.backend.count("InsertNotifications") != 0 {
		t.Error("no notifications expected after admin lookup failure")
	}
	if got := h.projectInvalidations(); got != 1 {
		t.Errorf("project invalidations = %d, want 1", got)
	}
}

func TestSave_NotificationFailureIsSilent(t *testing.T) {
	h := newHarness(t)
	h.backend.admins = []*model.Profile{{ID: "X", Role: model.RoleAdmin}}
	h.backend.errs["InsertNotifications"] = errors.New("denied")

	res, err := h.saver.Save(context.Background(), ProjectSaveRequest{Name: "Alpha", Color: "#123456"}, admin)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v", res.Warnings)
	}
	if h.toasts.Count(notify.SeverityError) != 0 {
		t.Errorf("error toasts = %d, want 0", h.toasts.Count(notify.SeverityError))
	}
}

func TestSave_ProjectWriteFailureAborts(t *testing.T) {
	for _, tc := range []struct {
		name   string
		op     string
		target *model.Project
	}{
		{"create", "CreateProject", nil},
		{"update", "UpdateProject", &model.Project{ID: "pr-beta"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.backend.errs[tc.op] = errors.New("duplicate name")
			closed := false

			res, err := h.saver.Save(context.Background(), ProjectSaveRequest{
				Name:            "Beta",
				Color:           "#00ff00",
				UpdatedMembers:  []string{"C"},
				OriginalMembers: []string{"A"},
				Target:          tc.target,
				OnClose:         func() { closed = true },
			}, admin)

			var we *WriteError
			if !errors.As(err, &we) || we.Step != StepSaveProject {
				t.Fatalf("expected *WriteError for step 1, got %v", err)
			}
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
			if len(h.backend.members) != 0 || h.backend.count("ListAdmins") != 0 {
				t.Error("no downstream step should run after step 1 fails")
			}
			if len(h.published()) != 0 {
				t.Errorf("published %d events, want 0", len(h.published()))
			}
			if h.toasts.Count(notify.SeverityError) != 1 || h.toasts.Count(notify.SeveritySuccess) != 0 {
				t.Errorf("toasts = %+v", h.toasts.Toasts())
			}
			if closed {
				t.Error("OnClose should not run on abort")
			}
			if n := h.echo.Pending(); n != 0 {
				t.Errorf("pending markers after failed write = %d, want 0", n)
			}
		})
	}
}

func TestSave_InvalidInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.saver.Save(context.Background(), ProjectSaveRequest{Name: "", Color: "red"}, admin)
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	var ve *model.ValidationError
	if !errors.As(err, &ve) || len(ve.Errors) != 2 {
		t.Errorf("expected wrapped validation error with 2 fields, got %v", err)
	}
	if h.backend.count("CreateProject") != 0 {
		t.Error("invalid input must not reach the backend")
	}
	if h.echo.Pending() != 0 {
		t.Error("invalid input must not leave pending markers")
	}
}

func TestSave_PermissionDenied(t *testing.T) {
	h := newHarness(t)

	_, err := h.saver.Save(context.Background(), ProjectSaveRequest{
		Name:            "Beta",
		Color:           "#00ff00",
		UpdatedMembers:  []string{"B", "C"},
		OriginalMembers: []string{"B"},
		Target:          &model.Project{ID: "pr-beta"},
	}, member)

	var pe *PermissionError
	if !errors.As(err, &pe) || pe.Role != model.RoleMember {
		t.Fatalf("expected *PermissionError, got %v", err)
	}
	if len(h.backend.calls) != 0 {
		t.Errorf("backend calls = %v, want none", h.backend.calls)
	}
	if len(h.published()) != 0 {
		t.Error("no event expected on permission failure")
	}
	if h.toasts.Count(notify.SeverityError) != 1 {
		t.Errorf("toasts = %+v", h.toasts.Toasts())
	}
}

func TestTaskWriter_SetStatus(t *testing.T) {
	h := newHarness(t)
	h.backend.tasks["7"] = &model.TaskDetail{Task: model.Task{ID: "7", Title: "Ship", Status: model.TaskInProgress}}

	d, err := h.writer.SetStatus(context.Background(), "7", model.TaskDone)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if d == nil || d.Status != model.TaskDone {
		t.Fatalf("detail = %+v", d)
	}

	events := h.published()
	if len(events) != 1 || events[0].Kind != changebus.KindUpdate || events[0].Task.Status != model.TaskDone {
		t.Fatalf("events = %+v", events)
	}

	// The echo of this write is swallowed exactly once.
	if !h.echo.ShouldSuppress(model.TableTasks, "7", echo.EventUpdate) {
		t.Error("first echo should be suppressed")
	}
	if h.echo.ShouldSuppress(model.TableTasks, "7", echo.EventUpdate) {
		t.Error("second event should not be suppressed")
	}
}

func TestTaskWriter_SetStatusFailure(t *testing.T) {
	h := newHarness(t)
	h.backend.errs["SetTaskStatus"] = errors.New("offline")

	_, err := h.writer.SetStatus(context.Background(), "7", model.TaskDone)
	var we *WriteError
	if !errors.As(err, &we) || we.Step != StepUpdateTask {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if h.toasts.Count(notify.SeverityError) != 1 {
		t.Errorf("toasts = %+v", h.toasts.Toasts())
	}
	if len(h.published()) != 0 {
		t.Error("failed write must not publish")
	}
	if h.echo.ShouldSuppress(model.TableTasks, "7", echo.EventUpdate) {
		t.Error("failed write must not leave a marker behind")
	}
}

func TestTaskWriter_InvalidStatus(t *testing.T) {
	h := newHarness(t)

	if _, err := h.writer.SetStatus(context.Background(), "7", "archived"); err == nil {
		t.Fatal("expected error for invalid status")
	}
	if h.backend.count("SetTaskStatus") != 0 || h.echo.Pending() != 0 {
		t.Error("invalid status must not reach the backend or mark pending")
	}
}

func TestTaskWriter_RefetchFailure(t *testing.T) {
	h := newHarness(t)
	h.backend.errs["GetTaskDetail"] = errors.New("timeout")

	d, err := h.writer.SetStatus(context.Background(), "7", model.TaskReview)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if d != nil {
		t.Errorf("detail = %+v, want nil", d)
	}
	if len(h.published()) != 0 {
		t.Error("nothing to publish without a refetched record")
	}
	if h.toasts.Count(notify.SeverityError) != 0 {
		t.Error("refetch failure is logged, not toasted")
	}
}

func TestTaskWriter_UpdateTask(t *testing.T) {
	h := newHarness(t)
	task := &model.Task{ID: "9", Title: "Write docs", Status: model.TaskTodo, Priority: 1}

	d, err := h.writer.UpdateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if d == nil || d.Title != "Write docs" {
		t.Fatalf("detail = %+v", d)
	}
	if len(h.published()) != 1 {
		t.Errorf("published %d events, want 1", len(h.published()))
	}

	if _, err := h.writer.UpdateTask(context.Background(), &model.Task{ID: "9", Status: model.TaskTodo}); err == nil {
		t.Error("expected validation error for empty title")
	}
}

func TestTaskWriter_DeleteTask(t *testing.T) {
	h := newHarness(t)
	h.backend.tasks["3"] = &model.TaskDetail{Task: model.Task{ID: "3"}}

	if err := h.writer.DeleteTask(context.Background(), "3"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if h.echo.Pending() != 0 {
		t.Error("deletes must not be marked pending")
	}
	if len(h.published()) != 0 {
		t.Error("delete is announced by the feed, not the writer")
	}

	h.backend.errs["DeleteTask"] = errors.New("forbidden")
	var we *WriteError
	if err := h.writer.DeleteTask(context.Background(), "3"); !errors.As(err, &we) || we.Step != StepDeleteTask {
		t.Fatalf("expected *WriteError, got %v", err)
	}
}
