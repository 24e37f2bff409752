package model

import "time"

// Project groups tasks and has a membership roster.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectMember is one row of a project's membership roster.
type ProjectMember struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	AddedAt   time.Time `json:"added_at"`
}

// Key returns the record key the change feed uses for this row.
func (m ProjectMember) Key() string {
	return MemberKey(m.ProjectID, m.UserID)
}
