package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/notify"
)

// TaskBackend is the subset of the store a task write touches.
type TaskBackend interface {
	GetTaskDetail(ctx context.Context, id string) (*model.TaskDetail, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	SetTaskStatus(ctx context.Context, id string, status model.TaskStatus) error
	DeleteTask(ctx context.Context, id string) error
}

// TaskWriter applies single-task writes. Updates are reflected locally by
// publishing the refetched record directly; the echo from the feed is
// suppressed.
type TaskWriter struct {
	backend TaskBackend
	echo    Marker
	bus     Publisher
	toaster notify.Toaster
	logger  *slog.Logger
}

// NewTaskWriter creates a TaskWriter.
func NewTaskWriter(backend TaskBackend, echo Marker, bus Publisher, toaster notify.Toaster, logger *slog.Logger) *TaskWriter {
	return &TaskWriter{
		backend: backend,
		echo:    echo,
		bus:     bus,
		toaster: toaster,
		logger:  logger,
	}
}

// SetStatus moves a task to status. The returned detail is nil if the
// write succeeded but the refetch did not.
func (w *TaskWriter) SetStatus(ctx context.Context, id string, status model.TaskStatus) (*model.TaskDetail, error) {
	if !status.IsValid() {
		return nil, w.fail(StepUpdateTask, fmt.Errorf("invalid status %q", status))
	}
	w.echo.MarkPending(model.TableTasks, id)
	if err := w.backend.SetTaskStatus(ctx, id, status); err != nil {
		w.echo.Forget(model.TableTasks, id)
		return nil, w.fail(StepUpdateTask, err)
	}
	return w.reflect(ctx, id), nil
}

// UpdateTask writes the editable fields of task.
func (w *TaskWriter) UpdateTask(ctx context.Context, task *model.Task) (*model.TaskDetail, error) {
	if err := model.ValidateTask(task); err != nil {
		return nil, w.fail(StepUpdateTask, err)
	}
	w.echo.MarkPending(model.TableTasks, task.ID)
	if err := w.backend.UpdateTask(ctx, task); err != nil {
		w.echo.Forget(model.TableTasks, task.ID)
		return nil, w.fail(StepUpdateTask, err)
	}
	return w.reflect(ctx, task.ID), nil
}

// DeleteTask deletes a task. Deletes are never marked pending: the feed's
// delete event is what removes the task from every view, this one included.
func (w *TaskWriter) DeleteTask(ctx context.Context, id string) error {
	if err := w.backend.DeleteTask(ctx, id); err != nil {
		return w.fail(StepDeleteTask, err)
	}
	return nil
}

// reflect refetches the task and publishes it as an update.
func (w *TaskWriter) reflect(ctx context.Context, id string) *model.TaskDetail {
	detail, err := w.backend.GetTaskDetail(ctx, id)
	if err != nil {
		w.logger.Warn("coordinator: refetch after write failed", "task", id, "err", err)
		return nil
	}
	w.bus.Publish(changebus.Update(detail))
	return detail
}

func (w *TaskWriter) fail(step Step, err error) *WriteError {
	w.toaster.Toast(fmt.Sprintf("Could not %s: %v", step, err), notify.SeverityError)
	return &WriteError{Step: step, Err: err}
}
