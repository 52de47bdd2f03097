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

// Package graph defines the vertex, edge and message handles shared between a
// bulk-synchronous host engine and the debugger core.
//
// The debugger core only ever reads these handles. Mutation happens through
// the concrete types (MemVertex, Graph) owned by the host engine.
package graph

import (
	"fmt"
	"slices"
)

// Edge is a directed edge to Target carrying a value.
type Edge[I comparable, E any] struct {
	Target I
	Value  E
}

// Vertex is a read-only handle to a vertex for the duration of one compute
// invocation.
type Vertex[I comparable, V, E any] interface {
	// ID returns the vertex identifier. It never changes.
	ID() I

	// Value returns the current vertex value.
	Value() V

	// Edges returns the outgoing edges. Callers must not modify the slice.
	Edges() []Edge[I, E]
}

// Message is a message sent from Src to Dst during a superstep.
type Message[I comparable, M any] struct {
	Src     I
	Dst     I
	Payload M
}

// String implements fmt.Stringer.
func (m Message[I, M]) String() string {
	return fmt.Sprintf("%v->%v: %v", m.Src, m.Dst, m.Payload)
}

// MemVertex is an in-memory vertex owned by a Graph.
type MemVertex[I comparable, V, E any] struct {
	id     I
	value  V
	edges  []Edge[I, E]
	halted bool
}

// NewVertex creates a vertex with the given id, value and outgoing edges.
func NewVertex[I comparable, V, E any](id I, value V, edges ...Edge[I, E]) *MemVertex[I, V, E] {
	return &MemVertex[I, V, E]{id: id, value: value, edges: edges}
}

// ID returns the vertex identifier.
func (v *MemVertex[I, V, E]) ID() I { return v.id }

// Value returns the current vertex value.
func (v *MemVertex[I, V, E]) Value() V { return v.value }

// Edges returns the outgoing edges.
func (v *MemVertex[I, V, E]) Edges() []Edge[I, E] { return v.edges }

// SetValue replaces the vertex value.
func (v *MemVertex[I, V, E]) SetValue(value V) { v.value = value }

// AddEdge appends an outgoing edge.
func (v *MemVertex[I, V, E]) AddEdge(target I, value E) {
	v.edges = append(v.edges, Edge[I, E]{Target: target, Value: value})
}

// VoteToHalt marks the vertex inactive. An incoming message wakes it again.
func (v *MemVertex[I, V, E]) VoteToHalt() { v.halted = true }

// Wake marks the vertex active.
func (v *MemVertex[I, V, E]) Wake() { v.halted = false }

// Halted reports whether the vertex voted to halt.
func (v *MemVertex[I, V, E]) Halted() bool { return v.halted }

// Graph is an in-memory graph keyed by vertex id.
type Graph[I comparable, V, E any] struct {
	vertices map[I]*MemVertex[I, V, E]
	order    []I
}

// New creates an empty graph.
func New[I comparable, V, E any]() *Graph[I, V, E] {
	return &Graph[I, V, E]{vertices: make(map[I]*MemVertex[I, V, E])}
}

// Add inserts a vertex. Adding an id twice replaces the earlier vertex but
// keeps its original position.
func (g *Graph[I, V, E]) Add(v *MemVertex[I, V, E]) {
	if _, ok := g.vertices[v.id]; !ok {
		g.order = append(g.order, v.id)
	}
	g.vertices[v.id] = v
}

// Vertex returns the vertex with the given id.
func (g *Graph[I, V, E]) Vertex(id I) (*MemVertex[I, V, E], bool) {
	v, ok := g.vertices[id]
	return v, ok
}

// Vertices returns all vertices in insertion order.
func (g *Graph[I, V, E]) Vertices() []*MemVertex[I, V, E] {
	out := make([]*MemVertex[I, V, E], 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.vertices[id])
	}
	return out
}

// IDs returns all vertex ids in insertion order.
func (g *Graph[I, V, E]) IDs() []I {
	return slices.Clone(g.order)
}

// Len returns the number of vertices.
func (g *Graph[I, V, E]) Len() int {
	return len(g.order)
}
