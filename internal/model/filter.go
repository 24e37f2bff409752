package model

// TaskFilter narrows a task listing.
type TaskFilter struct {
	ProjectIDs []string
	AssigneeID string
	Status     []TaskStatus
	Search     string
	Limit      int
}
