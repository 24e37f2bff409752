// Package changebus is the in-process fan-out point for "something changed"
// notifications. The change feed, the save coordinator and the task writer
// publish onto it; projections and UI state subscribe.
package changebus

import (
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/taskboard/internal/model"
)

// Kind discriminates the payload carried by an Event.
type Kind string

const (
	KindAdd             Kind = "add"
	KindUpdate          Kind = "update"
	KindDelete          Kind = "delete"
	KindBatchInvalidate Kind = "batch_invalidate"
	KindProfileChange   Kind = "profile_change"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Event is a normalized change notification.
//
// Exactly one payload field is set, chosen by Kind:
//
//	add, update       Task (the freshly fetched denormalized record)
//	delete            DeletedID
//	batch_invalidate  Table
//	profile_change    Profile
type Event struct {
	Kind      Kind              `json:"kind"`
	Task      *model.TaskDetail `json:"task,omitempty"`
	DeletedID string            `json:"deleted_id,omitempty"`
	Table     model.Table       `json:"table,omitempty"`
	Profile   *model.Profile    `json:"profile,omitempty"`

	// OccurredAt and Seq are stamped by Bus.Publish. They exist for
	// diagnostics only and never participate in conflict resolution.
	OccurredAt time.Time `json:"occurred_at"`
	Seq        uint64    `json:"seq"`
}

// Add returns an add event for a freshly fetched task.
func Add(t *model.TaskDetail) Event {
	return Event{Kind: KindAdd, Task: t}
}

// Update returns an update event for a freshly fetched task.
func Update(t *model.TaskDetail) Event {
	return Event{Kind: KindUpdate, Task: t}
}

// Delete returns a delete event carrying only the record id.
func Delete(id string) Event {
	return Event{Kind: KindDelete, DeletedID: id}
}

// BatchInvalidate returns a coarse "re-derive your view of table" event.
func BatchInvalidate(table model.Table) Event {
	return Event{Kind: KindBatchInvalidate, Table: table}
}

// ProfileChange returns an event carrying the session user's new profile.
func ProfileChange(p *model.Profile) Event {
	return Event{Kind: KindProfileChange, Profile: p}
}

// ErrInvalidEvent is wrapped by every error returned from Validate.
var ErrInvalidEvent = errors.New("invalid change event")

// Validate checks that the payload matches the shape implied by Kind.
func (e Event) Validate() error {
	switch e.Kind {
	case KindAdd, KindUpdate:
		if e.Task == nil || e.Task.ID == "" {
			return fmt.Errorf("%w: %s requires a task with an id", ErrInvalidEvent, e.Kind)
		}
		if e.DeletedID != "" || e.Table != "" || e.Profile != nil {
			return fmt.Errorf("%w: %s carries extra payload", ErrInvalidEvent, e.Kind)
		}
	case KindDelete:
		if e.DeletedID == "" {
			return fmt.Errorf("%w: delete requires an id", ErrInvalidEvent)
		}
		if e.Task != nil || e.Table != "" || e.Profile != nil {
			return fmt.Errorf("%w: delete carries extra payload", ErrInvalidEvent)
		}
	case KindBatchInvalidate:
		if !e.Table.IsValid() {
			return fmt.Errorf("%w: batch_invalidate requires a watched table, got %q", ErrInvalidEvent, e.Table)
		}
		if e.Task != nil || e.DeletedID != "" || e.Profile != nil {
			return fmt.Errorf("%w: batch_invalidate carries extra payload", ErrInvalidEvent)
		}
	case KindProfileChange:
		if e.Profile == nil || e.Profile.ID == "" {
			return fmt.Errorf("%w: profile_change requires a profile with an id", ErrInvalidEvent)
		}
		if e.Task != nil || e.DeletedID != "" || e.Table != "" {
			return fmt.Errorf("%w: profile_change carries extra payload", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}

// Invalidates reports whether e asks consumers of table to re-derive their view.
func (e Event) Invalidates(table model.Table) bool {
	return e.Kind == KindBatchInvalidate && e.Table == table
}
