// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/trialdesk/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app holds global flag values and the command's I/O streams.
type app struct {
	configPath string
	logLevel   string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand returns the trialdesk command tree bound to the process
// streams.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdin, os.Stdout, os.Stderr)
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{stdin: in, stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:   "trialdesk",
		Short: "Operator client for the trial recruitment platform",
		Long: "trialdesk signs operators in to the recruitment platform and keeps their\n" +
			"session alive while they work. Without a subcommand it starts the terminal UI.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		Version:       Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTUI(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the config file (default ~/.trialdesk/config.toml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newAuthCmd(a),
		newWhoamiCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)

	cmd.SetVersionTemplate(fmt.Sprintf("trialdesk {{.Version}} (commit %s, built %s)\n", GitCommit, BuildDate))
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, RenderConditional(ErrorStyle, "Error: ")+describeError(err))
		return exitCode(err)
	}
	return ExitSuccess
}

// configFile returns the --config path or the default location.
func (a *app) configFile() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPathTOML()
}

// loadConfig loads the config file and applies --log-level.
func (a *app) loadConfig() (*config.Config, error) {
	path, err := a.configFile()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
	}
	return cfg, nil
}
