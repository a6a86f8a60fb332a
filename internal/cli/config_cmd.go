// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/trialdesk/internal/config"
)

const redacted = "<redacted>"

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigPathCmd(a),
		newConfigInitCmd(a),
	)
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if jsonOut {
				// Secrets carry json:"-".
				return outputJSON(a.stdout, "config show", func() (any, error) {
					return a.loadConfig()
				})
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return toml.NewEncoder(a.stdout).Encode(redact(cfg))
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}

// redact returns a copy of cfg with secrets masked.
func redact(cfg *config.Config) *config.Config {
	out := *cfg
	if out.Storage.SealKey != "" {
		out.Storage.SealKey = redacted
	}
	if out.Storage.RedisPassword != "" {
		out.Storage.RedisPassword = redacted
	}
	return &out
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			path, err := a.configFile()
			if err != nil {
				return &ConfigError{Err: err}
			}
			fmt.Fprintln(a.stdout, path)
			return nil
		},
	}
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			path, err := a.configFile()
			if err != nil {
				return &ConfigError{Err: err}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &UsageError{Msg: fmt.Sprintf("%s already exists (use --force to overwrite)", path)}
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return &ConfigError{Path: path, Err: err}
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return &ConfigError{Path: path, Err: err}
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return &ConfigError{Path: path, Err: err}
			}
			fmt.Fprintln(a.stdout, RenderConditional(SuccessStyle, "Wrote "+path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
