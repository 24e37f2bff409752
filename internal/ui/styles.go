package ui

import (
	"fmt"

	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/notify"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorMuted   = 245 // medium gray
	colorSuccess = 114 // green
	colorWarning = 179 // yellow
	colorError   = 203 // red
	colorReview  = 176 // purple
)

var noColor bool

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

func paint(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderStatus colors a task status by workflow stage.
func RenderStatus(s model.TaskStatus) string {
	switch s {
	case model.TaskInProgress:
		return paint(colorAccent, s.String())
	case model.TaskReview:
		return paint(colorReview, s.String())
	case model.TaskDone:
		return paint(colorSuccess, s.String())
	default:
		return paint(colorMuted, s.String())
	}
}

// RenderToast formats a toast line with a severity marker.
func RenderToast(msg string, sev notify.Severity) string {
	switch sev {
	case notify.SeveritySuccess:
		return paint(colorSuccess, "✓ ") + msg
	case notify.SeverityWarning:
		return paint(colorWarning, "! ") + msg
	case notify.SeverityError:
		return paint(colorError, "✗ ") + msg
	default:
		return paint(colorAccent, "· ") + msg
	}
}
