package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/notify"
	"github.com/alfredjeanlab/taskboard/internal/ui"
)

// stderrToaster prints toasts for the terminal user.
type stderrToaster struct{}

func (stderrToaster) Toast(message string, severity notify.Severity) {
	fmt.Fprintln(os.Stderr, ui.RenderToast(message, severity))
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printProjects(w io.Writer, projects []*model.Project) error {
	if len(projects) == 0 {
		fmt.Fprintln(w, "no projects")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOLOR")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Color)
	}
	return tw.Flush()
}

func printTasks(w io.Writer, tasks []*model.TaskDetail, width int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRI\tTITLE\tASSIGNEE\tPROJECT")
	titleWidth := max(width-60, 20)
	for _, t := range tasks {
		project := ""
		if t.Project != nil {
			project = t.Project.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			t.ID,
			ui.RenderStatus(t.Status),
			t.Priority,
			ui.Truncate(t.Title, titleWidth),
			t.Assignee.DisplayName(),
			project,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d tasks\n", len(tasks))
	return nil
}

func printTaskDetail(w io.Writer, t *model.TaskDetail) {
	fmt.Fprintf(w, "ID:        %s\n", t.ID)
	fmt.Fprintf(w, "Title:     %s\n", t.Title)
	fmt.Fprintf(w, "Status:    %s\n", ui.RenderStatus(t.Status))
	fmt.Fprintf(w, "Priority:  %d\n", t.Priority)
	if t.Assignee != nil {
		fmt.Fprintf(w, "Assignee:  %s\n", t.Assignee.DisplayName())
	}
	if t.Project != nil {
		fmt.Fprintf(w, "Project:   %s\n", t.Project.Name)
	}
	if mins := t.TotalMinutes(); mins > 0 {
		fmt.Fprintf(w, "Logged:    %dh%02dm\n", mins/60, mins%60)
	}
	if n := len(t.Comments); n > 0 {
		fmt.Fprintf(w, "Comments:  %d\n", n)
	}
	if !t.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:   %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

// formatEvent renders one change event as a single line.
func formatEvent(ev changebus.Event) string {
	ts := ui.RenderMuted(ev.OccurredAt.Format("15:04:05"))
	switch ev.Kind {
	case changebus.KindAdd, changebus.KindUpdate:
		return fmt.Sprintf("%s %-16s %s %s %q", ts, ev.Kind, ev.Task.ID, ui.RenderStatus(ev.Task.Status), ev.Task.Title)
	case changebus.KindDelete:
		return fmt.Sprintf("%s %-16s %s", ts, ev.Kind, ev.DeletedID)
	case changebus.KindBatchInvalidate:
		return fmt.Sprintf("%s %-16s %s", ts, ev.Kind, ev.Table)
	case changebus.KindProfileChange:
		return fmt.Sprintf("%s %-16s %s", ts, ev.Kind, ev.Profile.DisplayName())
	default:
		return fmt.Sprintf("%s %s", ts, ev.Kind)
	}
}

// splitList splits comma-separated flag values and drops empties.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
