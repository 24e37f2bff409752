// Package store defines the backend the sync core reads from and writes to.
package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/taskboard/internal/model"
)

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// Store is the row-level CRUD surface of the task backend. There is no
// multi-table transaction: callers that touch several tables issue
// independent calls and handle partial failure themselves.
type Store interface {
	// Tasks
	GetTaskDetail(ctx context.Context, id string) (*model.TaskDetail, error)
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.TaskDetail, error)
	CreateTask(ctx context.Context, task *model.Task) error
	UpdateTask(ctx context.Context, task *model.Task) error
	SetTaskStatus(ctx context.Context, id string, status model.TaskStatus) error
	DeleteTask(ctx context.Context, id string) error

	// Projects
	CreateProject(ctx context.Context, project *model.Project) (*model.Project, error)
	UpdateProject(ctx context.Context, project *model.Project) (*model.Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]*model.Project, error)

	// Membership
	AddProjectMembers(ctx context.Context, projectID string, userIDs []string) error
	RemoveProjectMembers(ctx context.Context, projectID string, userIDs []string) error
	ListProjectMembers(ctx context.Context, projectID string) ([]*model.ProjectMember, error)

	// Profiles
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	ListAdmins(ctx context.Context) ([]*model.Profile, error)

	// Notifications
	InsertNotifications(ctx context.Context, notifications []*model.Notification) error

	// Lifecycle
	Close() error
}
