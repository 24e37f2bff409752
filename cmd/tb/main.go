package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alfredjeanlab/taskboard/internal/app"
	"github.com/alfredjeanlab/taskboard/internal/config"
	"github.com/alfredjeanlab/taskboard/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	profileName string
	userID      string
	jsonOutput  bool
	verbose     bool

	cfg    *config.Config
	logger *slog.Logger
)

func defaultUser() string {
	return os.Getenv("TB_USER")
}

var rootCmd = &cobra.Command{
	Use:           "tb <command>",
	Short:         "Realtime task board client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupOutput()
		var err error
		cfg, err = config.Load(configPath, profileName)
		return err
	},
}

// setupOutput configures logging and color. Commands that skip config
// loading still call it.
func setupOutput() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
}

// openSession opens the backend and signs in as --user.
func openSession(ctx context.Context, opts app.Options) (*app.App, error) {
	if userID == "" {
		return nil, fmt.Errorf("no user: pass --user or set TB_USER")
	}
	opts.Logger = logger
	if opts.Toaster == nil {
		opts.Toaster = stderrToaster{}
	}
	a, err := app.Open(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	if _, err := a.StartSession(ctx, userID); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.local/state/taskboard/config.toml)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "config profile to use (default: the active one)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", defaultUser(), "user id to sign in as (env TB_USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "board", Title: "Board:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
