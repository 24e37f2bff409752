package projection

import (
	"context"
	"log/slog"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/model"
)

// DefaultName is the key prefix of the user's project list.
const DefaultName = "user_projects"

// ProjectLister lists the projects a user belongs to.
type ProjectLister interface {
	ListProjectsForUser(ctx context.Context, userID string) ([]*model.Project, error)
}

// ProjectsRelevant matches events that can change a user's project list.
func ProjectsRelevant(ev changebus.Event) bool {
	return ev.Invalidates(model.TableProjects) || ev.Invalidates(model.TableProjectMembers)
}

// NewProjects returns the "projects I belong to" projection.
func NewProjects(cache Cache, lister ProjectLister, logger *slog.Logger) *Store[*model.Project] {
	load := func(ctx context.Context, session model.Session) ([]*model.Project, error) {
		return lister.ListProjectsForUser(ctx, session.UserID)
	}
	return New[*model.Project](DefaultName, cache, load, ProjectsRelevant, logger)
}
