package main

import (
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/taskboard/internal/app"
	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream live changes until interrupted",
	GroupID: "board",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openSession(ctx, app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		enc := json.NewEncoder(out)
		events := make(chan changebus.Event, 64)
		h := a.Bus().Subscribe(func(ev changebus.Event) {
			select {
			case events <- ev:
			default:
				logger.Warn("watch: output too slow, dropping event", "kind", ev.Kind)
			}
		})
		defer h.Close()

		session := a.Session()
		logger.Info("watching", "user", session.UserID, "role", session.Role,
			"projects", len(a.Projects()), "tasks", len(a.Tasks()))

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-events:
				if jsonOutput {
					if err := enc.Encode(ev); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintln(out, formatEvent(ev))
			}
		}
	},
}
