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

package shared

import (
	"maps"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/tombee/graft/internal/debug"
	"github.com/tombee/graft/pkg/graph"
)

// DebugFlags binds the debugger configuration to command line flags.
//
// Precedence, lowest first: the --debug-config YAML file, raw --set
// graft.debugger.* pairs, then the dedicated flags.
type DebugFlags struct {
	ConfigPath        string
	Vertices          string
	Supersteps        string
	DebugNeighbors    bool
	DebugAll          bool
	CatchExceptions   bool
	MessageConstraint string
	ValueConstraint   string
	Set               map[string]string
	IDType            string
}

// flag name -> debugger key
var debugFlagKeys = map[string]string{
	"vertices":           debug.FlagVerticesToDebug,
	"supersteps":         debug.FlagSuperstepsToDebug,
	"debug-neighbors":    debug.FlagDebugNeighbors,
	"debug-all":          debug.FlagDebugAllVertices,
	"catch-exceptions":   debug.FlagCatchExceptions,
	"message-constraint": debug.FlagMessageConstraint,
	"value-constraint":   debug.FlagVertexValueConstraint,
}

// FlagGroupAnnotation marks a flag with the help group it belongs to.
const FlagGroupAnnotation = "graft_group"

// DebugFlagGroup is the help group of every flag added by DebugFlags.
const DebugFlagGroup = "debug"

// Register adds the flags to fs.
func (f *DebugFlags) Register(fs *pflag.FlagSet) {
	defer annotateGroup(fs, DebugFlagGroup, "debug-config", "vertices", "supersteps", "debug-neighbors",
		"debug-all", "catch-exceptions", "message-constraint", "value-constraint", "set", "id-type")

	fs.StringVar(&f.ConfigPath, "debug-config", "", "YAML debugger configuration file")
	fs.StringVar(&f.Vertices, "vertices", "", "Vertex ids to capture, separated by ':'")
	fs.StringVar(&f.Supersteps, "supersteps", "", "Supersteps to capture, separated by ':' (default: all)")
	fs.BoolVar(&f.DebugNeighbors, "debug-neighbors", false, "Also capture vertices with an edge to a listed vertex")
	fs.BoolVar(&f.DebugAll, "debug-all", false, "Capture every vertex")
	fs.BoolVar(&f.CatchExceptions, "catch-exceptions", true, "Report failures of vertices outside the capture scope")
	fs.StringVar(&f.MessageConstraint, "message-constraint", "", "Expression over src, dst and message that every message must satisfy")
	fs.StringVar(&f.ValueConstraint, "value-constraint", "", "Expression over id and value that every vertex value must satisfy")
	fs.StringToStringVar(&f.Set, "set", nil, "Raw debugger flags, e.g. --set graft.debugger.superstepsToDebug=0:1")
	fs.StringVar(&f.IDType, "id-type", string(graph.IDTypeInt64), "Vertex id type (int64, int32, string)")
}

// Options resolves the flags that were set on fs into debugger options.
func (f *DebugFlags) Options(fs *pflag.FlagSet) (debug.Options, error) {
	raw := maps.Clone(f.Set)
	if raw == nil {
		raw = map[string]string{}
	}
	values := map[string]string{
		"vertices":           f.Vertices,
		"supersteps":         f.Supersteps,
		"debug-neighbors":    strconv.FormatBool(f.DebugNeighbors),
		"debug-all":          strconv.FormatBool(f.DebugAll),
		"catch-exceptions":   strconv.FormatBool(f.CatchExceptions),
		"message-constraint": f.MessageConstraint,
		"value-constraint":   f.ValueConstraint,
	}
	for name, key := range debugFlagKeys {
		if fs.Changed(name) {
			raw[key] = values[name]
		}
	}

	flagOpts, err := debug.ParseFlags(raw)
	if err != nil {
		return debug.Options{}, err
	}
	if f.ConfigPath == "" {
		return flagOpts, nil
	}

	opts, err := debug.LoadFile(f.ConfigPath)
	if err != nil {
		return debug.Options{}, err
	}
	overlay(&opts, flagOpts, raw)
	return opts, opts.Validate()
}

// ParsedIDType returns the --id-type value.
func (f *DebugFlags) ParsedIDType() (graph.IDType, error) {
	return graph.ParseIDType(f.IDType)
}

func overlay(dst *debug.Options, src debug.Options, set map[string]string) {
	for key := range set {
		switch key {
		case debug.FlagVerticesToDebug:
			dst.Vertices = src.Vertices
		case debug.FlagSuperstepsToDebug:
			dst.Supersteps = src.Supersteps
		case debug.FlagDebugNeighbors:
			dst.DebugNeighbors = src.DebugNeighbors
		case debug.FlagDebugAllVertices:
			dst.DebugAllVertices = src.DebugAllVertices
		case debug.FlagCatchExceptions:
			dst.CatchExceptions = src.CatchExceptions
		case debug.FlagMessageConstraint:
			dst.MessageConstraint = src.MessageConstraint
		case debug.FlagVertexValueConstraint:
			dst.VertexValueConstraint = src.VertexValueConstraint
		}
	}
}

func annotateGroup(fs *pflag.FlagSet, group string, names ...string) {
	for _, name := range names {
		_ = fs.SetAnnotation(name, FlagGroupAnnotation, []string{group})
	}
}
