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
package version

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tombee/graft/internal/commands/shared"
	"github.com/tombee/graft/pkg/graph"
)

// Result is the --json payload of graft version.
type Result struct {
	shared.JSONResponse
	shared.BuildInfo
	IDTypes []graph.IDType `json:"id_types"`
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the graft build and the vertex id types it can debug.

Commit and build date come from -ldflags when set, otherwise from the
VCS stamp the Go toolchain embeds in the binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := Result{
				JSONResponse: shared.NewJSONResponse("version"),
				BuildInfo:    shared.Build(),
				IDTypes:      graph.IDTypes(),
			}
			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "graft version %s\n", result.BuildInfo.Version)
			w := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
			fmt.Fprintf(w, "  commit:\t%s\n", result.Commit)
			fmt.Fprintf(w, "  build date:\t%s\n", result.BuildDate)
			fmt.Fprintf(w, "  go:\t%s %s\n", result.GoVersion, result.Platform)
			fmt.Fprintf(w, "  id types:\t%v\n", result.IDTypes)
			return w.Flush()
		},
	}
}
