package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/taskboard/internal/app"
	"github.com/alfredjeanlab/taskboard/internal/coordinator"
	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Short:   "List the projects you belong to",
	GroupID: "board",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openSession(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), a.Projects())
		}
		return printProjects(cmd.OutOrStdout(), a.Projects())
	},
}

var projectCmd = &cobra.Command{
	Use:     "project",
	Short:   "Create and edit projects",
	GroupID: "board",
}

var projectSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create a project, or update one with --project",
	Long: `Create a project, or update one with --project.

When updating, --member lists the complete new roster; members not listed
are removed and new ones are added. Without --member the roster is left
unchanged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		projectID, _ := cmd.Flags().GetString("project")
		name, _ := cmd.Flags().GetString("name")
		color, _ := cmd.Flags().GetString("color")
		memberFlags, _ := cmd.Flags().GetStringSlice("member")

		a, err := openSession(ctx, app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		req, err := buildSaveRequest(ctx, a, projectID, name, color, splitList(memberFlags), cmd.Flags().Changed("member"))
		if err != nil {
			return err
		}

		res, err := a.SaveProject(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		verb := "saved"
		if res.Created {
			verb = "created"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "project %s %s\n", res.Project.ID, verb)
		for _, w := range res.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
		}
		return nil
	},
}

// projectEditor is the part of the app the save form reads from.
type projectEditor interface {
	FindProject(id string) (*model.Project, bool)
	ProjectMembers(ctx context.Context, projectID string) ([]string, error)
}

// buildSaveRequest fills a save request the way the project editor does:
// an existing project is looked up, its current roster becomes the
// original member list, and unset fields keep their current values.
func buildSaveRequest(ctx context.Context, ed projectEditor, projectID, name, color string, members []string, membersSet bool) (coordinator.ProjectSaveRequest, error) {
	req := coordinator.ProjectSaveRequest{Name: name, Color: color, UpdatedMembers: members}
	if projectID == "" {
		return req, nil
	}

	target, ok := ed.FindProject(projectID)
	if !ok {
		return req, fmt.Errorf("project %s not found among your projects", projectID)
	}
	original, err := ed.ProjectMembers(ctx, projectID)
	if err != nil {
		return req, err
	}
	req.Target = target
	req.OriginalMembers = original
	if req.Name == "" {
		req.Name = target.Name
	}
	if req.Color == "" {
		req.Color = target.Color
	}
	if !membersSet {
		req.UpdatedMembers = original
	}
	return req, nil
}

func init() {
	projectSaveCmd.Flags().String("project", "", "id of the project to update (omit to create)")
	projectSaveCmd.Flags().String("name", "", "project name")
	projectSaveCmd.Flags().String("color", "", "hex color, e.g. #3b82f6")
	projectSaveCmd.Flags().StringSlice("member", nil, "member user ids (repeatable or comma-separated)")

	projectCmd.AddCommand(projectSaveCmd)
}
