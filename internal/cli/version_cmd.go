// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// VersionOutput is the JSON data for version.
type VersionOutput struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func versionInfo() VersionOutput {
	return VersionOutput{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func newVersionCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			info := versionInfo()
			if jsonOut {
				return NewJSONResponse("version", info).Write(a.stdout)
			}
			fmt.Fprintf(a.stdout, "trialdesk %s\n", info.Version)
			fmt.Fprintln(a.stdout, RenderField("Commit", info.GitCommit))
			fmt.Fprintln(a.stdout, RenderField("Built", info.BuildDate))
			fmt.Fprintln(a.stdout, RenderField("Go", info.GoVersion))
			fmt.Fprintln(a.stdout, RenderField("Platform", info.Platform))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}
