package coordinator

import (
	"fmt"

	"github.com/alfredjeanlab/taskboard/internal/model"
)

// Step names one write in a multi-step save.
type Step string

const (
	StepSaveProject   Step = "save project"
	StepRemoveMembers Step = "remove members"
	StepAddMembers    Step = "add members"
	StepAddCreator    Step = "add creator as member"
	StepUpdateTask    Step = "update task"
	StepDeleteTask    Step = "delete task"
)

// WriteError reports a failed write step. Err carries the backend's message.
type WriteError struct {
	Step Step
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// PermissionError reports a save that produced no usable project record
// because the actor may not edit project metadata.
type PermissionError struct {
	Role model.Role
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("role %q cannot save projects", e.Role)
}
