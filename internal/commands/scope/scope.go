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

// Package scope implements the scope command, which previews the capture
// decisions of a debugger configuration against a graph without running it.
package scope

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tombee/graft/internal/commands/completion"
	"github.com/tombee/graft/internal/commands/shared"
	"github.com/tombee/graft/internal/debug"
	"github.com/tombee/graft/pkg/graph"
)

// Result is the JSON output of the scope command.
type Result struct {
	shared.JSONResponse
	Config     string   `json:"config"`
	Supersteps []int64  `json:"supersteps,omitempty"`
	Vertices   []Vertex `json:"vertices"`
	Captured   int      `json:"captured"`
}

// Vertex is the capture decision for one vertex.
type Vertex struct {
	ID       string `json:"id"`
	Captured bool   `json:"captured"`
}

// NewCommand creates the scope command
func NewCommand() *cobra.Command {
	var (
		flags   shared.DebugFlags
		horizon int64
		save    string
	)

	cmd := &cobra.Command{
		Use:   "scope <graph>",
		Short: "Show which vertices and supersteps would be captured",
		Long: `Scope loads a graph and a debugger configuration and prints the capture
decision for every vertex. Supersteps are listed up to --horizon.

The configuration is validated exactly as 'graft run' would, so scope is
also a cheap way to check flags before a long job. With --save the resolved
flags are written as a file for --debug-config.`,
		Example: `  graft scope graph.txt --vertices 1:2 --debug-neighbors
  graft scope graph.txt --debug-config debug.yaml --json
  graft scope graph.txt --vertices 7 --supersteps 0:1 --save debug.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.Options(cmd.Flags())
			if err != nil {
				return shared.NewInvalidConfigError("invalid debugger configuration", err)
			}
			idType, err := flags.ParsedIDType()
			if err != nil {
				return shared.NewInvalidConfigError("invalid id type", err)
			}

			switch idType {
			case graph.IDTypeInt32:
				return show(cmd, args[0], graph.ParseInt32ID, opts, horizon, save)
			case graph.IDTypeString:
				return show(cmd, args[0], graph.ParseStringID, opts, horizon, save)
			default:
				return show(cmd, args[0], graph.ParseInt64ID, opts, horizon, save)
			}
		},
	}

	cmd.Flags().Int64Var(&horizon, "horizon", 10, "Number of supersteps to evaluate")
	cmd.Flags().StringVar(&save, "save", "", "Write the resolved configuration to this YAML file")
	flags.Register(cmd.Flags())
	completion.RegisterDebugFlags(cmd)

	return cmd
}

func show[I comparable](cmd *cobra.Command, path string, parseID graph.IDParser[I], opts debug.Options, horizon int64, save string) error {
	g, err := shared.LoadGraph(path, parseID)
	if err != nil {
		return err
	}
	cfg, err := debug.Load[I, float64, float64, float64](opts, parseID, debug.Constraints[I, float64, float64]{})
	if err != nil {
		return shared.NewInvalidConfigError("invalid debugger configuration", err)
	}
	if save != "" {
		if err := debug.SaveFile(save, opts); err != nil {
			return shared.NewExecutionError("failed to save debugger configuration", err)
		}
	}

	result := Result{
		JSONResponse: shared.NewJSONResponse("scope"),
		Config:       cfg.String(),
		Vertices:     make([]Vertex, 0, g.Len()),
	}
	for s := range horizon {
		if cfg.ShouldDebugSuperstep(s) {
			result.Supersteps = append(result.Supersteps, s)
		}
	}
	for _, v := range g.Vertices() {
		captured := cfg.ShouldDebugVertex(v)
		if captured {
			result.Captured++
		}
		result.Vertices = append(result.Vertices, Vertex{ID: fmt.Sprint(v.ID()), Captured: captured})
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Config)
	fmt.Fprintf(out, "Supersteps below %d: %v\n", horizon, result.Supersteps)
	fmt.Fprintf(out, "Captured vertices: %d of %d\n\n", result.Captured, len(result.Vertices))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERTEX\tCAPTURED")
	for _, v := range result.Vertices {
		fmt.Fprintf(w, "%s\t%t\n", v.ID, v.Captured)
	}
	return w.Flush()
}
