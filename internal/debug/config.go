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

package debug

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/tombee/graft/pkg/graph"
)

// Scope is the configured set of (vertex, superstep) pairs eligible for
// capture.
type Scope[I comparable] struct {
	// Vertices lists the vertices to debug. Nil means no explicit set, in
	// which case only DebugAllVertices can select a vertex.
	Vertices []I

	// Supersteps lists the supersteps to debug. Nil means all supersteps.
	// A non-nil list must be non-empty and non-negative.
	Supersteps []int64

	// DebugAllVertices selects every vertex. Vertices is not consulted.
	DebugAllVertices bool

	// IncludeNeighbors also selects vertices with an outgoing edge to a
	// vertex in Vertices.
	IncludeNeighbors bool

	// IgnoreExceptions turns off capture of failures from vertices outside
	// the scope. Exceptions are caught by default.
	IgnoreExceptions bool
}

// Config answers, for every vertex and superstep of a job, whether it should
// be captured and whether a message or vertex value is legal.
//
// A Config is immutable once built and safe for concurrent use by any number
// of compute invocations.
type Config[I comparable, V, E, M any] struct {
	vertices         map[I]struct{}
	supersteps       map[int64]struct{}
	debugAll         bool
	includeNeighbors bool
	catchExceptions  bool
	constraints      Constraints[I, V, M]
}

// Default returns a configuration that captures no vertex and catches
// exceptions from every vertex.
func Default[I comparable, V, E, M any]() *Config[I, V, E, M] {
	return &Config[I, V, E, M]{catchExceptions: true}
}

// New builds a Config from an already-typed scope. Use Load to build one from
// textual options.
func New[I comparable, V, E, M any](scope Scope[I], constraints Constraints[I, V, M]) (*Config[I, V, E, M], error) {
	cfg := &Config[I, V, E, M]{
		debugAll:         scope.DebugAllVertices,
		includeNeighbors: scope.IncludeNeighbors,
		catchExceptions:  !scope.IgnoreExceptions,
		constraints:      constraints,
	}

	if scope.Vertices != nil {
		cfg.vertices = make(map[I]struct{}, len(scope.Vertices))
		for _, id := range scope.Vertices {
			cfg.vertices[id] = struct{}{}
		}
	}

	if scope.Supersteps != nil {
		if len(scope.Supersteps) == 0 {
			return nil, superstepError("", "", "superstep list is empty", nil)
		}
		cfg.supersteps = make(map[int64]struct{}, len(scope.Supersteps))
		for _, s := range scope.Supersteps {
			if s < 0 {
				return nil, superstepError(joinList(scope.Supersteps), fmt.Sprint(s), "supersteps must be non-negative", nil)
			}
			cfg.supersteps[s] = struct{}{}
		}
	}

	return cfg, nil
}

// ShouldDebugSuperstep reports whether vertices should be captured in the
// given superstep.
func (c *Config[I, V, E, M]) ShouldDebugSuperstep(superstep int64) bool {
	if c.supersteps == nil {
		return true
	}
	_, ok := c.supersteps[superstep]
	return ok
}

// ShouldDebugVertex reports whether the vertex should be captured.
//
// Neighbor inclusion looks at outgoing edges only, since that is all a vertex
// can see locally: a vertex is included when it points at a selected vertex.
func (c *Config[I, V, E, M]) ShouldDebugVertex(v graph.Vertex[I, V, E]) bool {
	if c.debugAll {
		return true
	}
	if c.vertices == nil {
		return false
	}
	if _, ok := c.vertices[v.ID()]; ok {
		return true
	}
	return c.includeNeighbors && c.pointsAtSelected(v)
}

func (c *Config[I, V, E, M]) pointsAtSelected(v graph.Vertex[I, V, E]) bool {
	for _, e := range v.Edges() {
		if _, ok := c.vertices[e.Target]; ok {
			return true
		}
	}
	return false
}

// ShouldCatchExceptions reports whether failures of vertices outside the
// scope are captured. It governs outer layers; captured invocations always
// report their failures.
func (c *Config[I, V, E, M]) ShouldCatchExceptions() bool {
	return c.catchExceptions
}

// ShouldCheckMessageIntegrity reports whether IsMessageCorrect should be
// consulted for every sent message.
func (c *Config[I, V, E, M]) ShouldCheckMessageIntegrity() bool {
	return c.constraints.MessageCorrect != nil
}

// IsMessageCorrect reports whether the message satisfies the configured
// constraint. Without a constraint every message is correct.
func (c *Config[I, V, E, M]) IsMessageCorrect(src, dst I, message M) bool {
	if c.constraints.MessageCorrect == nil {
		return true
	}
	return c.constraints.MessageCorrect(src, dst, message)
}

// ShouldCheckVertexValueIntegrity reports whether IsVertexValueCorrect
// should be consulted on every vertex value update.
func (c *Config[I, V, E, M]) ShouldCheckVertexValueIntegrity() bool {
	return c.constraints.VertexValueCorrect != nil
}

// IsVertexValueCorrect reports whether the value satisfies the configured
// constraint. Without a constraint every value is correct.
func (c *Config[I, V, E, M]) IsVertexValueCorrect(id I, value V) bool {
	if c.constraints.VertexValueCorrect == nil {
		return true
	}
	return c.constraints.VertexValueCorrect(id, value)
}

// String renders the configuration for logs.
func (c *Config[I, V, E, M]) String() string {
	var b strings.Builder

	b.WriteString("superstepsToDebug: ")
	if c.supersteps == nil {
		b.WriteString("all supersteps")
	} else {
		fmt.Fprint(&b, slices.Sorted(maps.Keys(c.supersteps)))
	}

	b.WriteString(" verticesToDebug: ")
	switch {
	case c.debugAll:
		b.WriteString("all vertices")
	case c.vertices == nil:
		b.WriteString("none")
	default:
		ids := slices.Collect(maps.Keys(c.vertices))
		slices.SortFunc(ids, func(a, b I) int {
			return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
		})
		fmt.Fprint(&b, ids)
	}

	fmt.Fprintf(&b, " debugNeighbors: %t", c.includeNeighbors)
	fmt.Fprintf(&b, " shouldCatchExceptions: %t", c.catchExceptions)
	fmt.Fprintf(&b, " shouldCheckMessageIntegrity: %t", c.ShouldCheckMessageIntegrity())
	fmt.Fprintf(&b, " shouldCheckVertexValueIntegrity: %t", c.ShouldCheckVertexValueIntegrity())
	return b.String()
}
