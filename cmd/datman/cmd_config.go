package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ryanm101/datman/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the active configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if a.out.JSON {
				a.out.PrintResult(a.cfg)
				return nil
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, _ = fmt.Fprintln(a.out.stdout, "# Active Configuration")
			_, _ = fmt.Fprint(a.out.stdout, string(data))
			if a.cfg.Path != "" {
				_, _ = fmt.Fprintln(a.out.stdout, "# Config file:", a.cfg.Path)
			}
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists at %s", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check config path: %w", err)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			if a.out.JSON {
				a.out.PrintResult(map[string]string{"path": path, "status": "created"})
			} else {
				a.out.PrintInfo("Created config file: %s\n", path)
			}
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, initCmd)
	return cmd
}
