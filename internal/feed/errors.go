package feed

import (
	"fmt"

	"github.com/alfredjeanlab/taskboard/internal/model"
)

// TransportError reports that a table subscription could not be opened or
// maintained. Reconnection is the transport's job; the subscriber only logs.
type TransportError struct {
	Table model.Table
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("feed transport %s: %v", e.Table, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FetchError reports that hydrating a task after a push event failed. The
// event is dropped; the next change or manual refresh repairs the view.
type FetchError struct {
	Table model.Table
	ID    string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("feed fetch %s %s: %v", e.Table, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
