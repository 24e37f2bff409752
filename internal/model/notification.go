package model

import "time"

// NotificationKind classifies in-app notifications.
type NotificationKind string

const (
	NotifyProjectCreated NotificationKind = "project_created"
	NotifyTaskAssigned   NotificationKind = "task_assigned"
)

// Notification is an in-app message addressed to a single user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	ProjectID string           `json:"project_id,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
