// Package coordinator orchestrates local writes that span several tables.
//
// The backend offers no multi-table transaction to the client, so a save
// is a strictly sequential series of independent calls. A failure in the
// first step aborts; later failures are reported as warnings and the save
// carries on. Every insert or update is announced to the echo suppressor
// beforehand, and the coordinator publishes its own change event on
// completion so the UI does not wait for the (suppressed) echo.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/idgen"
	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/notify"
)

// ProjectBackend is the subset of the store a project save touches.
type ProjectBackend interface {
	CreateProject(ctx context.Context, project *model.Project) (*model.Project, error)
	UpdateProject(ctx context.Context, project *model.Project) (*model.Project, error)
	AddProjectMembers(ctx context.Context, projectID string, userIDs []string) error
	RemoveProjectMembers(ctx context.Context, projectID string, userIDs []string) error
	ListAdmins(ctx context.Context) ([]*model.Profile, error)
	InsertNotifications(ctx context.Context, notifications []*model.Notification) error
}

// Marker records a pending local write so its echo can be recognized.
// Only writes whose echo is an insert or update are marked. Delete echoes
// never consume a marker.
type Marker interface {
	MarkPending(table model.Table, id string)
	Forget(table model.Table, id string)
}

// Publisher announces changes to the rest of the application.
type Publisher interface {
	Publish(ev changebus.Event)
}

// ProjectSaveRequest describes one submission of the project editor.
// A nil Target creates a new project.
type ProjectSaveRequest struct {
	Name            string
	Color           string
	UpdatedMembers  []string
	OriginalMembers []string
	Target          *model.Project

	// OnClose, if set, is called after a save completes (with or without
	// warnings). It is not called when the save aborts.
	OnClose func()
}

// SaveResult is the outcome of a save that reached the end.
type SaveResult struct {
	Project  *model.Project
	Created  bool
	Warnings []*WriteError
}

// ProjectSaver runs project saves.
type ProjectSaver struct {
	backend ProjectBackend
	echo    Marker
	bus     Publisher
	toaster notify.Toaster
	logger  *slog.Logger

	newID func() (string, error)
}

// NewProjectSaver creates a ProjectSaver.
func NewProjectSaver(backend ProjectBackend, echo Marker, bus Publisher, toaster notify.Toaster, logger *slog.Logger) *ProjectSaver {
	return &ProjectSaver{
		backend: backend,
		echo:    echo,
		bus:     bus,
		toaster: toaster,
		logger:  logger,
		newID:   idgen.Project,
	}
}

// Save creates or updates the project described by req on behalf of actor.
//
// It returns a *WriteError if the project row could not be written and a
// *PermissionError if actor may not edit projects; in both cases nothing
// else is attempted. Otherwise it returns a SaveResult whose Warnings list
// the member steps that failed.
func (s *ProjectSaver) Save(ctx context.Context, req ProjectSaveRequest, actor model.Session) (*SaveResult, error) {
	created := req.Target == nil

	project, err := s.saveProject(ctx, req, actor)
	if err != nil {
		s.toaster.Toast(fmt.Sprintf("Could not save project: %v", err.Err), notify.SeverityError)
		return nil, err
	}
	if project == nil {
		s.toaster.Toast("You do not have permission to save this project", notify.SeverityError)
		return nil, &PermissionError{Role: actor.Role}
	}

	res := &SaveResult{Project: project, Created: created}
	if created {
		s.addCreator(ctx, res, actor)
		if ignored, _ := MembershipDiff(req.UpdatedMembers, []string{actor.UserID}); len(ignored) > 0 {
			s.logger.Info("coordinator: new project starts with its creator only",
				"project", project.ID, "ignored_members", ignored)
		}
		s.notifyAdmins(ctx, project, actor)
	} else {
		s.syncMembers(ctx, res, req)
	}

	if created {
		s.toaster.Toast(fmt.Sprintf("Project %q created", project.Name), notify.SeveritySuccess)
	} else {
		s.toaster.Toast(fmt.Sprintf("Project %q saved", project.Name), notify.SeveritySuccess)
	}
	s.bus.Publish(changebus.BatchInvalidate(model.TableProjects))

	s.logger.Info("coordinator: project saved",
		"project", project.ID, "created", created, "warnings", len(res.Warnings))

	if req.OnClose != nil {
		req.OnClose()
	}
	return res, nil
}

// saveProject writes the project row. It returns (nil, nil) when actor may
// not edit project metadata.
func (s *ProjectSaver) saveProject(ctx context.Context, req ProjectSaveRequest, actor model.Session) (*model.Project, *WriteError) {
	if !actor.Role.CanEditProjects() {
		return nil, nil
	}
	if err := model.ValidateProject(req.Name, req.Color); err != nil {
		return nil, &WriteError{Step: StepSaveProject, Err: err}
	}

	if req.Target == nil {
		id, err := s.newID()
		if err != nil {
			return nil, &WriteError{Step: StepSaveProject, Err: err}
		}
		s.echo.MarkPending(model.TableProjects, id)
		p, err := s.backend.CreateProject(ctx, &model.Project{
			ID:        id,
			Name:      req.Name,
			Color:     req.Color,
			CreatedBy: actor.UserID,
		})
		if err != nil {
			s.echo.Forget(model.TableProjects, id)
			return nil, &WriteError{Step: StepSaveProject, Err: err}
		}
		return p, nil
	}

	s.echo.MarkPending(model.TableProjects, req.Target.ID)
	p, err := s.backend.UpdateProject(ctx, &model.Project{
		ID:    req.Target.ID,
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		s.echo.Forget(model.TableProjects, req.Target.ID)
		return nil, &WriteError{Step: StepSaveProject, Err: err}
	}
	return p, nil
}

// syncMembers applies the membership difference of an existing project.
// There is no retry of a failed call.
func (s *ProjectSaver) syncMembers(ctx context.Context, res *SaveResult, req ProjectSaveRequest) {
	projectID := res.Project.ID
	toAdd, toRemove := MembershipDiff(req.UpdatedMembers, req.OriginalMembers)

	if len(toRemove) > 0 {
		if err := s.backend.RemoveProjectMembers(ctx, projectID, toRemove); err != nil {
			s.warn(res, StepRemoveMembers, err)
		}
	}
	if len(toAdd) > 0 {
		s.markMembers(projectID, toAdd)
		if err := s.backend.AddProjectMembers(ctx, projectID, toAdd); err != nil {
			s.forgetMembers(projectID, toAdd)
			s.warn(res, StepAddMembers, err)
		}
	}
}

func (s *ProjectSaver) addCreator(ctx context.Context, res *SaveResult, actor model.Session) {
	s.markMembers(res.Project.ID, []string{actor.UserID})
	if err := s.backend.AddProjectMembers(ctx, res.Project.ID, []string{actor.UserID}); err != nil {
		s.forgetMembers(res.Project.ID, []string{actor.UserID})
		s.warn(res, StepAddCreator, err)
	}
}

func (s *ProjectSaver) markMembers(projectID string, userIDs []string) {
	for _, uid := range userIDs {
		s.echo.MarkPending(model.TableProjectMembers, model.MemberKey(projectID, uid))
	}
}

func (s *ProjectSaver) forgetMembers(projectID string, userIDs []string) {
	for _, uid := range userIDs {
		s.echo.Forget(model.TableProjectMembers, model.MemberKey(projectID, uid))
	}
}

func (s *ProjectSaver) warn(res *SaveResult, step Step, err error) {
	we := &WriteError{Step: step, Err: err}
	res.Warnings = append(res.Warnings, we)
	s.logger.Warn("coordinator: save step failed", "project", res.Project.ID, "step", string(step), "err", err)
	s.toaster.Toast(fmt.Sprintf("Could not %s: %v", step, err), notify.SeverityError)
}

// notifyAdmins tells every other admin about a new project. Failures are
// logged only.
func (s *ProjectSaver) notifyAdmins(ctx context.Context, project *model.Project, actor model.Session) {
	admins, err := s.backend.ListAdmins(ctx)
	if err != nil {
		s.logger.Warn("coordinator: list admins failed", "project", project.ID, "err", err)
		return
	}

	var notes []*model.Notification
	for _, a := range admins {
		if a.ID == actor.UserID {
			continue
		}
		id, err := idgen.Notification()
		if err != nil {
			s.logger.Warn("coordinator: notification id", "err", err)
			return
		}
		notes = append(notes, &model.Notification{
			ID:        id,
			UserID:    a.ID,
			Kind:      model.NotifyProjectCreated,
			Title:     "New project",
			Message:   fmt.Sprintf("Project %q was created", project.Name),
			ProjectID: project.ID,
		})
	}
	if len(notes) == 0 {
		return
	}
	if err := s.backend.InsertNotifications(ctx, notes); err != nil {
		s.logger.Warn("coordinator: insert notifications failed", "project", project.ID, "count", len(notes), "err", err)
	}
}
