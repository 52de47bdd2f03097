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

// Package bsp runs vertex programs over an in-memory graph in bulk
// synchronous supersteps.
//
// Each superstep runs the optional master computation, then every active
// vertex in parallel, then a barrier after which sent messages are delivered.
// A vertex is active unless it voted to halt and received no message. The job
// ends when every vertex is halted with no messages in flight, when the master
// halts it, or when the superstep cap is reached.
//
// When a debug.Interceptor is attached every vertex and master invocation is
// routed through it, every SetValue is checked against the vertex value
// constraint and every sent message against the message constraint.
package bsp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tombee/graft/internal/debug"
	graftlog "github.com/tombee/graft/internal/log"
	"github.com/tombee/graft/pkg/graph"
)

// HaltReason explains why a job stopped.
type HaltReason string

const (
	// HaltConverged means every vertex halted with no messages in flight.
	HaltConverged HaltReason = "converged"

	// HaltMaster means the master called HaltComputation.
	HaltMaster HaltReason = "master"

	// HaltMaxSupersteps means the superstep cap was reached.
	HaltMaxSupersteps HaltReason = "max_supersteps"
)

// Job is the program and data of one run.
type Job[I comparable, V, E, M any] struct {
	// Graph is mutated in place.
	Graph *graph.Graph[I, V, E]

	Compute Computation[I, V, E, M]

	// Master is optional.
	Master MasterComputation

	// Interceptor is optional. When nil no capture or constraint checking
	// happens.
	Interceptor *debug.Interceptor[I, V, E, M]

	// Aggregators by name.
	Aggregators map[string]Aggregator
}

// Stats summarizes a run.
type Stats struct {
	Supersteps      int64         `json:"supersteps"`
	ComputeCalls    int64         `json:"compute_calls"`
	Messages        int64         `json:"messages"`
	DroppedMessages int64         `json:"dropped_messages"`
	Violations      int64         `json:"violations"`
	Reason          HaltReason    `json:"reason,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	workers       int
	maxSupersteps int64
	logger        *slog.Logger
}

// WithWorkers bounds the number of vertices computed concurrently. Values
// below one select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMaxSupersteps caps the number of supersteps. Zero means no cap.
func WithMaxSupersteps(n int64) Option {
	return func(o *options) { o.maxSupersteps = n }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Engine executes a Job. An engine runs once.
type Engine[I comparable, V, E, M any] struct {
	job  Job[I, V, E, M]
	opts options

	ran        atomic.Bool
	violations atomic.Int64
}

// New validates job and creates an engine for it.
func New[I comparable, V, E, M any](job Job[I, V, E, M], opts ...Option) (*Engine[I, V, E, M], error) {
	if job.Graph == nil {
		return nil, errors.New("job has no graph")
	}
	if job.Compute == nil {
		return nil, errors.New("job has no computation")
	}
	o := options{logger: graftlog.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.maxSupersteps < 0 {
		return nil, fmt.Errorf("max supersteps must be non-negative, got %d", o.maxSupersteps)
	}
	o.logger = graftlog.WithComponent(o.logger, "bsp")
	return &Engine[I, V, E, M]{job: job, opts: o}, nil
}

// Run executes supersteps until the job halts, a computation fails or ctx is
// done. The first computation failure stops the job and is returned as a
// *ComputeError; the stats so far are returned with it.
func (e *Engine[I, V, E, M]) Run(ctx context.Context) (stats Stats, err error) {
	if !e.ran.CompareAndSwap(false, true) {
		return Stats{}, errors.New("engine already ran")
	}

	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		stats.Violations = e.violations.Load()
	}()

	inbox := map[I][]M{}
	aggregated := map[string]any{}
	for name, agg := range e.job.Aggregators {
		aggregated[name] = agg.Value()
	}

	for superstep := int64(0); ; superstep++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if e.opts.maxSupersteps > 0 && superstep >= e.opts.maxSupersteps {
			stats.Reason = HaltMaxSupersteps
			break
		}
		if superstep > 0 && len(inbox) == 0 && e.allHalted() {
			stats.Reason = HaltConverged
			break
		}

		broadcast, halted, err := e.runMaster(ctx, superstep, aggregated)
		if err != nil {
			return stats, err
		}
		if halted {
			stats.Reason = HaltMaster
			break
		}

		for _, agg := range e.job.Aggregators {
			agg.Reset()
		}

		next, step, err := e.runVertices(ctx, superstep, inbox, broadcast)
		stats.ComputeCalls += step.ComputeCalls
		stats.Messages += step.Messages
		stats.DroppedMessages += step.DroppedMessages
		stats.Supersteps = superstep + 1
		if err != nil {
			return stats, err
		}

		for name, agg := range e.job.Aggregators {
			aggregated[name] = agg.Value()
		}
		inbox = next

		e.opts.logger.Debug("Superstep complete",
			slog.Int64(graftlog.SuperstepKey, superstep),
			slog.Int64("compute_calls", step.ComputeCalls),
			slog.Int64("messages", step.Messages))
	}

	e.opts.logger.Info("Job finished",
		slog.String("reason", string(stats.Reason)),
		slog.Int64("supersteps", stats.Supersteps),
		slog.Int64("violations", e.violations.Load()))
	return stats, nil
}

func (e *Engine[I, V, E, M]) allHalted() bool {
	for _, v := range e.job.Graph.Vertices() {
		if !v.Halted() {
			return false
		}
	}
	return true
}

func (e *Engine[I, V, E, M]) runMaster(ctx context.Context, superstep int64, aggregated map[string]any) (map[string]any, bool, error) {
	mc := &MasterContext{
		superstep:   superstep,
		numVertices: e.job.Graph.Len(),
		aggregated:  maps.Clone(aggregated),
	}
	if e.job.Master == nil {
		return mc.aggregated, false, nil
	}

	err := e.guard(superstep, nil, true, func() error {
		run := func(ctx context.Context) error { return e.job.Master.Compute(ctx, mc) }
		if ic := e.job.Interceptor; ic != nil {
			return ic.ComputeMaster(ctx, debug.MasterInvocation{
				Superstep:   superstep,
				Aggregators: mc.snapshot,
			}, run)
		}
		return run(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	return mc.aggregated, mc.halted, nil
}

func (e *Engine[I, V, E, M]) runVertices(ctx context.Context, superstep int64, inbox map[I][]M, broadcast map[string]any) (map[I][]M, Stats, error) {
	vertices := e.job.Graph.Vertices()
	outboxes := make([][]graph.Message[I, M], len(vertices))

	var calls atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.workers)

	for i, v := range vertices {
		messages := inbox[v.ID()]
		if v.Halted() {
			if len(messages) == 0 {
				continue
			}
			v.Wake()
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			calls.Add(1)
			vc := &VertexContext[I, V, E, M]{
				ctx:       gctx,
				engine:    e,
				superstep: superstep,
				vertex:    v,
				broadcast: broadcast,
			}
			err := e.guard(superstep, v.ID(), false, func() error {
				run := func(ctx context.Context) error {
					vc.ctx = ctx
					return e.job.Compute.Compute(ctx, vc, messages)
				}
				if ic := e.job.Interceptor; ic != nil {
					return ic.ComputeVertex(gctx, debug.VertexInvocation[I, V, E, M]{
						Superstep: superstep,
						Vertex:    v,
						Incoming:  messages,
						Sent:      vc.Sent,
					}, run)
				}
				return run(gctx)
			})
			outboxes[i] = vc.sent
			return err
		})
	}

	step := Stats{}
	err := g.Wait()
	step.ComputeCalls = calls.Load()
	if err != nil {
		return nil, step, err
	}

	next := map[I][]M{}
	for _, out := range outboxes {
		for _, msg := range out {
			step.Messages++
			if _, ok := e.job.Graph.Vertex(msg.Dst); !ok {
				step.DroppedMessages++
				e.opts.logger.Debug("Dropping message to unknown vertex",
					slog.Any(graftlog.VertexIDKey, msg.Dst),
					slog.Int64(graftlog.SuperstepKey, superstep))
				continue
			}
			next[msg.Dst] = append(next[msg.Dst], msg.Payload)
		}
	}
	return next, step, nil
}

// guard turns a failure or panic of fn into a *ComputeError. The interceptor
// has already reported it by the time it reaches here.
func (e *Engine[I, V, E, M]) guard(superstep int64, vertexID any, master bool, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ComputeError{
				Superstep: superstep,
				VertexID:  vertexID,
				Master:    master,
				Err:       fmt.Errorf("panic: %v", r),
				Panic:     r,
			}
		}
	}()
	if err := fn(); err != nil {
		return &ComputeError{Superstep: superstep, VertexID: vertexID, Master: master, Err: err}
	}
	return nil
}
