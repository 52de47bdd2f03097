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

package bsp

import (
	"context"
	"fmt"
	"maps"

	"github.com/tombee/graft/pkg/graph"
)

// Computation is the per-vertex program run once per active vertex in every
// superstep.
type Computation[I comparable, V, E, M any] interface {
	Compute(ctx context.Context, vc *VertexContext[I, V, E, M], messages []M) error
}

// ComputeFunc adapts a function to Computation.
type ComputeFunc[I comparable, V, E, M any] func(ctx context.Context, vc *VertexContext[I, V, E, M], messages []M) error

// Compute implements Computation.
func (f ComputeFunc[I, V, E, M]) Compute(ctx context.Context, vc *VertexContext[I, V, E, M], messages []M) error {
	return f(ctx, vc, messages)
}

// MasterComputation runs once at the start of every superstep, before any
// vertex.
type MasterComputation interface {
	Compute(ctx context.Context, mc *MasterContext) error
}

// MasterFunc adapts a function to MasterComputation.
type MasterFunc func(ctx context.Context, mc *MasterContext) error

// Compute implements MasterComputation.
func (f MasterFunc) Compute(ctx context.Context, mc *MasterContext) error {
	return f(ctx, mc)
}

// VertexContext is the view of the job handed to one vertex invocation. It
// is owned by a single goroutine.
type VertexContext[I comparable, V, E, M any] struct {
	ctx       context.Context
	engine    *Engine[I, V, E, M]
	superstep int64
	vertex    *graph.MemVertex[I, V, E]
	broadcast map[string]any
	sent      []graph.Message[I, M]
}

// Superstep returns the current superstep.
func (vc *VertexContext[I, V, E, M]) Superstep() int64 { return vc.superstep }

// ID returns the vertex id.
func (vc *VertexContext[I, V, E, M]) ID() I { return vc.vertex.ID() }

// Value returns the vertex value.
func (vc *VertexContext[I, V, E, M]) Value() V { return vc.vertex.Value() }

// Edges returns the outgoing edges.
func (vc *VertexContext[I, V, E, M]) Edges() []graph.Edge[I, E] { return vc.vertex.Edges() }

// NumVertices returns the size of the graph.
func (vc *VertexContext[I, V, E, M]) NumVertices() int { return vc.engine.job.Graph.Len() }

// SetValue replaces the vertex value. The new value is checked against the
// vertex value constraint, if any.
func (vc *VertexContext[I, V, E, M]) SetValue(value V) {
	vc.vertex.SetValue(value)
	if ic := vc.engine.job.Interceptor; ic != nil {
		if v := ic.CheckVertexValue(vc.ctx, vc.superstep, vc.vertex.ID(), value); v != nil {
			vc.engine.violations.Add(1)
		}
	}
}

// SendMessage queues a message for delivery to dst in the next superstep.
// The message is checked against the message constraint, if any.
func (vc *VertexContext[I, V, E, M]) SendMessage(dst I, payload M) {
	msg := graph.Message[I, M]{Src: vc.vertex.ID(), Dst: dst, Payload: payload}
	vc.sent = append(vc.sent, msg)
	if ic := vc.engine.job.Interceptor; ic != nil {
		if v := ic.CheckMessage(vc.ctx, vc.superstep, msg); v != nil {
			vc.engine.violations.Add(1)
		}
	}
}

// SendMessageToAllEdges sends payload along every outgoing edge.
func (vc *VertexContext[I, V, E, M]) SendMessageToAllEdges(payload M) {
	for _, e := range vc.vertex.Edges() {
		vc.SendMessage(e.Target, payload)
	}
}

// VoteToHalt deactivates the vertex until it receives a message.
func (vc *VertexContext[I, V, E, M]) VoteToHalt() { vc.vertex.VoteToHalt() }

// Aggregate contributes value to the named aggregator.
func (vc *VertexContext[I, V, E, M]) Aggregate(name string, value any) error {
	agg, ok := vc.engine.job.Aggregators[name]
	if !ok {
		return fmt.Errorf("unknown aggregator %q", name)
	}
	return agg.Aggregate(value)
}

// Aggregated returns the value of the named aggregator as published by the
// master for this superstep.
func (vc *VertexContext[I, V, E, M]) Aggregated(name string) any { return vc.broadcast[name] }

// Sent returns the messages sent so far by this invocation.
func (vc *VertexContext[I, V, E, M]) Sent() []graph.Message[I, M] { return vc.sent }

// MasterContext is the view of the job handed to the master computation.
type MasterContext struct {
	superstep   int64
	numVertices int
	aggregated  map[string]any
	halted      bool
}

// Superstep returns the current superstep.
func (mc *MasterContext) Superstep() int64 { return mc.superstep }

// NumVertices returns the size of the graph.
func (mc *MasterContext) NumVertices() int { return mc.numVertices }

// Aggregated returns the value the named aggregator reduced to in the
// previous superstep, or the override set during this one.
func (mc *MasterContext) Aggregated(name string) any { return mc.aggregated[name] }

// SetAggregated overrides the value vertices will see for name in this
// superstep.
func (mc *MasterContext) SetAggregated(name string, value any) { mc.aggregated[name] = value }

// HaltComputation ends the job before any vertex runs in this superstep.
func (mc *MasterContext) HaltComputation() { mc.halted = true }

// Halted reports whether HaltComputation was called.
func (mc *MasterContext) Halted() bool { return mc.halted }

func (mc *MasterContext) snapshot() map[string]any {
	return maps.Clone(mc.aggregated)
}
