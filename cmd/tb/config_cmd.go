package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/alfredjeanlab/taskboard/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage config profiles",
	GroupID: "system",
	// Profile management must work before a valid profile exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupOutput()
		return nil
	},
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

func editConfig(fn func(f *config.File) error) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	f, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err := fn(&f); err != nil {
		return err
	}
	return config.SaveFile(path, f)
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		f, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), f)
		}
		if len(f.Profiles) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no profiles configured")
			return nil
		}
		names := make([]string, 0, len(f.Profiles))
		for name := range f.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tFEED\tCACHE")
		for _, name := range names {
			p := f.Profiles[name]
			marker := "  "
			if name == f.Active {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\n", marker, name, orDefault(p.Feed, config.FeedPostgres), orDefault(p.Cache, config.CacheSQLite))
		}
		return w.Flush()
	},
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var configAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or replace a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		p := config.Profile{}
		p.DatabaseURL, _ = cmd.Flags().GetString("database-url")
		p.Feed, _ = cmd.Flags().GetString("feed")
		p.NATSURL, _ = cmd.Flags().GetString("nats-url")
		p.Cache, _ = cmd.Flags().GetString("cache")
		p.CachePath, _ = cmd.Flags().GetString("cache-path")
		p.CacheS3Bucket, _ = cmd.Flags().GetString("cache-s3-bucket")
		p.CacheS3Endpoint, _ = cmd.Flags().GetString("cache-s3-endpoint")
		p.HTTPAddr, _ = cmd.Flags().GetString("http-addr")

		err := editConfig(func(f *config.File) error {
			f.Profiles[name] = p
			if f.Active == "" {
				f.Active = name
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profile %q saved\n", name)
		return nil
	},
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		err := editConfig(func(f *config.File) error {
			if _, ok := f.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			delete(f.Profiles, name)
			if f.Active == name {
				f.Active = ""
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profile %q removed\n", name)
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		err := editConfig(func(f *config.File) error {
			if _, ok := f.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			f.Active = name
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active profile set to %q\n", name)
		return nil
	},
}

func init() {
	configAddCmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	configAddCmd.Flags().String("feed", "", "change feed: postgres or nats")
	configAddCmd.Flags().String("nats-url", "", "NATS server URL")
	configAddCmd.Flags().String("cache", "", "projection cache: sqlite, memory or s3")
	configAddCmd.Flags().String("cache-path", "", "SQLite cache file")
	configAddCmd.Flags().String("cache-s3-bucket", "", "S3 bucket for the projection cache")
	configAddCmd.Flags().String("cache-s3-endpoint", "", "custom S3 endpoint (MinIO)")
	configAddCmd.Flags().String("http-addr", "", "serve listen address")

	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configRemoveCmd)
	configCmd.AddCommand(configUseCmd)
}
