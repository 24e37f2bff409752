package model

import "time"

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskReview, TaskDone:
		return true
	}
	return false
}

// Task is a task row as stored by the backend.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    int        `json:"priority"`
	ProjectID   string     `json:"project_id,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	CreatorID   string     `json:"creator_id,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskDetail is the denormalized read model of a task: the row joined with
// its assignee, creator, project, attachments, time logs and comments.
// It is always fetched fresh from the backend; change-feed payloads are
// never merged into it.
type TaskDetail struct {
	Task
	Assignee    *Profile     `json:"assignee,omitempty"`
	Creator     *Profile     `json:"creator,omitempty"`
	Project     *Project     `json:"project,omitempty"`
	Attachments []Attachment `json:"attachments"`
	TimeLogs    []TimeLog    `json:"time_logs"`
	Comments    []Comment    `json:"comments"`
}

// Attachment is a file attached to a task.
type Attachment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TimeLog is a unit of time recorded against a task.
type TimeLog struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Minutes   int        `json:"minutes"`
}

// TotalMinutes sums the minutes across all time log entries.
func (d *TaskDetail) TotalMinutes() int {
	total := 0
	for _, l := range d.TimeLogs {
		total += l.Minutes
	}
	return total
}
