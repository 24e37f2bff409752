package main

import (
	"fmt"
	"os"

	"github.com/alfredjeanlab/taskboard/internal/app"
	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/ui"
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Short:   "Show the task board",
	GroupID: "board",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := taskFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		a, err := openSession(cmd.Context(), app.Options{Filter: filter})
		if err != nil {
			return err
		}
		defer a.Close()

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), a.Tasks())
		}
		return printTasks(cmd.OutOrStdout(), a.Tasks(), ui.Width(os.Stdout))
	},
}

func taskFilterFromFlags(cmd *cobra.Command) (model.TaskFilter, error) {
	projects, _ := cmd.Flags().GetStringSlice("project")
	statuses, _ := cmd.Flags().GetStringSlice("status")
	assignee, _ := cmd.Flags().GetString("assignee")
	search, _ := cmd.Flags().GetString("search")
	limit, _ := cmd.Flags().GetInt("limit")

	f := model.TaskFilter{
		ProjectIDs: splitList(projects),
		AssigneeID: assignee,
		Search:     search,
		Limit:      limit,
	}
	for _, s := range splitList(statuses) {
		st := model.TaskStatus(s)
		if !st.IsValid() {
			return f, fmt.Errorf("invalid status %q", s)
		}
		f.Status = append(f.Status, st)
	}
	return f, nil
}

var taskCmd = &cobra.Command{
	Use:     "task",
	Short:   "Change a single task",
	GroupID: "board",
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Move a task to todo, in_progress, review or done",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, status := args[0], model.TaskStatus(args[1])
		if !status.IsValid() {
			return fmt.Errorf("invalid status %q", args[1])
		}

		a, err := openSession(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		detail, err := a.SetTaskStatus(cmd.Context(), id, status)
		if err != nil {
			return err
		}
		if detail == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "task %s moved to %s\n", id, status)
			return nil
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), detail)
		}
		printTaskDetail(cmd.OutOrStdout(), detail)
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSession(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteTask(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "task %s deleted\n", args[0])
		return nil
	},
}

func init() {
	tasksCmd.Flags().StringSlice("project", nil, "only these project ids")
	tasksCmd.Flags().StringSlice("status", nil, "only these statuses")
	tasksCmd.Flags().String("assignee", "", "only tasks assigned to this user id")
	tasksCmd.Flags().String("search", "", "case-insensitive title search")
	tasksCmd.Flags().Int("limit", 0, "maximum number of tasks (0 = no limit)")

	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}
