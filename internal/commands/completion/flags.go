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

package completion

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/graft/pkg/graph"
)

const maxVertexCompletions = 100

// SafeCompletionWrapper recovers from panics in fn and normalizes a nil
// result to an empty list.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}

// CompleteIDTypes provides completion for --id-type flag values.
func CompleteIDTypes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		return []string{
			string(graph.IDTypeInt64) + "\tSigned 64-bit integer ids",
			string(graph.IDTypeInt32) + "\tSigned 32-bit integer ids",
			string(graph.IDTypeString) + "\tOpaque string ids",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteVertexIDs completes the last ':'-separated element of --vertices
// from the ids of the graph given as the first argument.
func CompleteVertexIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		f, err := os.Open(args[0])
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		defer f.Close()

		g, err := graph.ReadAdjacencyList(f, graph.ParseStringID, struct{}{})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		prefix, partial := "", toComplete
		if i := strings.LastIndex(toComplete, ":"); i >= 0 {
			prefix, partial = toComplete[:i+1], toComplete[i+1:]
		}

		var out []string
		for _, id := range g.IDs() {
			if strings.HasPrefix(id, partial) {
				out = append(out, prefix+id)
				if len(out) == maxVertexCompletions {
					break
				}
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	})
}

// RegisterDebugFlags attaches completions to the debugger flags of cmd.
func RegisterDebugFlags(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("id-type", CompleteIDTypes)
	_ = cmd.RegisterFlagCompletionFunc("vertices", CompleteVertexIDs)
	_ = cmd.MarkFlagFilename("debug-config", "yaml", "yml")
}
