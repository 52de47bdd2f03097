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
// Package scenarios lists the capture events that graft run wrote with --out.
package scenarios

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tombee/graft/internal/commands/shared"
	"github.com/tombee/graft/internal/debug"
	"github.com/tombee/graft/internal/scenario"
)

var eventTypes = []debug.EventType{
	debug.EventComputeBegin,
	debug.EventComputeEnd,
	debug.EventComputeException,
	debug.EventConstraintViolation,
}

// Result is the JSON output of the scenarios command.
type Result struct {
	shared.JSONResponse
	Dir    string                  `json:"dir"`
	Counts map[debug.EventType]int `json:"counts"`
	Events []debug.Event           `json:"events"`
}

// NewCommand creates the scenarios command.
func NewCommand() *cobra.Command {
	var (
		typeFilter string
		superstep  int64
	)

	cmd := &cobra.Command{
		Use:   "scenarios <dir>",
		Short: "List captured events from a scenario directory",
		Long: `Scenarios reads every scenario file below a directory written by
'graft run --out' and lists the events ordered by superstep.

Filter with --type (compute_begin, compute_end, compute_exception,
constraint_violation) and --superstep.`,
		Example: `  graft scenarios scenarios/
  graft scenarios scenarios/ --type compute_exception
  graft scenarios scenarios/ --superstep 3 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if typeFilter != "" && !slices.Contains(eventTypes, debug.EventType(typeFilter)) {
				return shared.NewInvalidConfigError(fmt.Sprintf("unknown event type %q", typeFilter), nil)
			}

			events, err := scenario.LoadDir(args[0])
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return shared.NewInvalidConfigError("scenario directory not found", err)
				}
				return shared.NewExecutionError("failed to read scenarios", err)
			}
			filtered := events[:0]
			for _, e := range events {
				if typeFilter != "" && string(e.Type) != typeFilter {
					continue
				}
				if cmd.Flags().Changed("superstep") && e.Superstep != superstep {
					continue
				}
				filtered = append(filtered, e)
			}
			slices.SortStableFunc(filtered, func(a, b debug.Event) int {
				return cmp.Compare(a.Superstep, b.Superstep)
			})

			result := Result{
				JSONResponse: shared.NewJSONResponse("scenarios"),
				Dir:          args[0],
				Counts:       map[debug.EventType]int{},
				Events:       filtered,
			}
			for _, e := range filtered {
				result.Counts[e.Type]++
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), result)
			}
			return printEvents(cmd, result)
		},
	}

	cmd.Flags().StringVar(&typeFilter, "type", "", "Only list events of this type")
	cmd.Flags().Int64Var(&superstep, "superstep", 0, "Only list events of this superstep")
	_ = cmd.RegisterFlagCompletionFunc("type", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(eventTypes))
		for i, t := range eventTypes {
			names[i] = string(t)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func printEvents(cmd *cobra.Command, r Result) error {
	out := cmd.OutOrStdout()
	if len(r.Events) == 0 {
		fmt.Fprintf(out, "No events in %s\n", r.Dir)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUPERSTEP\tKIND\tVERTEX\tEVENT\tDETAIL")
	for _, e := range r.Events {
		vertex := "-"
		if e.VertexID != nil {
			vertex = fmt.Sprint(e.VertexID)
		}
		detail := ""
		switch {
		case e.Failure != nil:
			detail = e.Failure.String()
		case e.Violation != nil:
			detail = e.Violation.String()
		case !e.Captured:
			detail = "outside debug scope"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Superstep, e.Kind, vertex, e.Type, detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d event(s)", len(r.Events))
	for _, t := range eventTypes {
		if n := r.Counts[t]; n > 0 {
			fmt.Fprintf(out, ", %s=%d", t, n)
		}
	}
	fmt.Fprintln(out)
	return nil
}
