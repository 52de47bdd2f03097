// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/graft/internal/commands/shared"
)

// SetVersion records build metadata injected into main.
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for graft
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graft",
		Short: "graft - capture and constrain vertex programs",
		Long: `graft runs bulk synchronous vertex programs over a graph and captures
selected compute invocations for debugging.

Pick what to capture with --vertices, --supersteps and --debug-neighbors,
or a YAML file passed with --debug-config. Message and vertex value
constraints are checked on every send and every value update.

Run 'graft scope <graph>' to preview which vertices would be captured.
Run 'graft run <graph>' to execute a job and write scenario files.
Run 'graft scenarios <dir>' to list the events a run captured.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	verbose, quiet, json := shared.RegisterFlagPointers()

	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")

	return cmd
}

// HandleExitError reports err for cmd and exits with the matching code.
func HandleExitError(cmd *cobra.Command, err error) {
	name := "graft"
	if cmd != nil {
		name = cmd.Name()
	}
	shared.HandleExitError(name, err)
}
