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

// Package debug decides which vertices and supersteps of a bulk-synchronous
// graph computation are captured, intercepts their compute invocations, and
// checks messages and vertex values against user constraints.
//
// # Selection Policy
//
// Config answers ShouldDebugSuperstep and ShouldDebugVertex for every vertex
// of every superstep. Debugging is opt-in: with no explicit vertex list and
// DebugAllVertices unset, no vertex is selected. With IncludeNeighbors, a
// vertex whose outgoing edge points at a listed vertex is selected as well.
// A Config never changes after it is built and needs no locking.
//
// # Constraints
//
// Constraints carries optional message and vertex value predicates. They
// default to accepting everything. Load can also compile expr-lang
// expressions such as `message >= 0` into predicates.
//
// # Configuration Loading
//
// ParseFlags reads graft.debugger.* flags, LoadFile reads the same options
// from YAML, and Load types the vertex ids with a graph.IDParser. Malformed
// input fails with *errors.ConfigError naming the flag and the bad token.
//
// # Interception
//
// Intercept runs a compute function between Begin and exactly one of End or
// Exception, and passes errors and panics through unchanged. Interceptor
// applies the Config to vertex and master invocations and emits Events to a
// Sink.
//
// # Example Usage
//
//	opts, err := debug.ParseFlags(map[string]string{
//		debug.FlagVerticesToDebug:   "1:3",
//		debug.FlagSuperstepsToDebug: "0:1",
//	})
//	cfg, err := debug.Load[int64, float64, float64, float64](opts, graph.ParseInt64ID, debug.Constraints[int64, float64, float64]{})
//	ic := debug.NewInterceptor(cfg, debug.LogSink(logger, slog.LevelInfo))
//
//	err = ic.ComputeVertex(ctx, debug.VertexInvocation[int64, float64, float64, float64]{
//		Superstep: superstep,
//		Vertex:    v,
//		Incoming:  msgs,
//	}, compute)
package debug
