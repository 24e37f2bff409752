// Package notify is the boundary to the user-facing toast surface.
// Toasts are fire-and-forget: a Toaster never reports failure back to the
// caller.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Severity classifies a toast.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Toaster shows a message to the user.
type Toaster interface {
	Toast(message string, severity Severity)
}

// Toast is one delivered message, as recorded or sent over the wire.
type Toast struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

// LogToaster writes toasts to a structured logger. Used by headless
// commands where there is no UI to show them.
type LogToaster struct {
	Logger *slog.Logger
}

func (l LogToaster) Toast(message string, severity Severity) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "toast: "+message, "severity", string(severity))
}

// Recorder keeps every toast in memory.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Toast(message string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Message: message, Severity: severity, At: time.Now()})
}

// Toasts returns a copy of the recorded toasts in arrival order.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Count returns how many recorded toasts have the given severity.
func (r *Recorder) Count(severity Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.toasts {
		if t.Severity == severity {
			n++
		}
	}
	return n
}

// Multi fans a toast out to every Toaster in order. Nil entries are skipped.
type Multi []Toaster

func (m Multi) Toast(message string, severity Severity) {
	for _, t := range m {
		if t != nil {
			t.Toast(message, severity)
		}
	}
}
