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
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	graftlog "github.com/tombee/graft/internal/log"
	grafterrors "github.com/tombee/graft/pkg/errors"
	"github.com/tombee/graft/pkg/graph"
)

// VertexInvocation describes one vertex compute call.
type VertexInvocation[I comparable, V, E, M any] struct {
	// Superstep is the current superstep.
	Superstep int64

	// Vertex is the vertex being computed.
	Vertex graph.Vertex[I, V, E]

	// Incoming are the messages delivered to the vertex.
	Incoming []M

	// Sent returns the messages sent by this invocation so far. It may be nil.
	Sent func() []graph.Message[I, M]
}

// MasterInvocation describes one master compute call.
type MasterInvocation struct {
	// Superstep is the current superstep.
	Superstep int64

	// Aggregators returns a copy of the aggregator state. It may be nil.
	Aggregators func() map[string]any
}

// Option configures an Interceptor.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	jobID   string
	now     func() time.Time
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records capture counters.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer starts a span around every captured invocation.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithJobID tags every event with the job id. Default: a random UUID.
func WithJobID(id string) Option {
	return func(o *options) { o.jobID = id }
}

// Interceptor wraps compute invocations, deciding through its Config which
// ones are captured and reporting them to a Sink.
//
// It holds no per-invocation state; one Interceptor serves every worker of a
// job concurrently.
type Interceptor[I comparable, V, E, M any] struct {
	config *Config[I, V, E, M]
	sink   Sink
	opts   options
}

// NewInterceptor creates an interceptor for the given configuration.
func NewInterceptor[I comparable, V, E, M any](config *Config[I, V, E, M], sink Sink, opts ...Option) *Interceptor[I, V, E, M] {
	o := options{
		logger: graftlog.Discard(),
		tracer: noop.NewTracerProvider().Tracer(""),
		jobID:  uuid.NewString(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if sink == nil {
		sink = Discard
	}
	return &Interceptor[I, V, E, M]{config: config, sink: sink, opts: o}
}

// Config returns the selection policy.
func (ic *Interceptor[I, V, E, M]) Config() *Config[I, V, E, M] {
	return ic.config
}

// JobID returns the id stamped on emitted events.
func (ic *Interceptor[I, V, E, M]) JobID() string {
	return ic.opts.jobID
}

// ComputeVertex runs compute for one vertex. The invocation is captured when
// both its superstep and vertex are in scope; otherwise only its failure is
// reported, and only if exceptions are caught. compute always runs exactly
// once and its outcome is returned unchanged.
func (ic *Interceptor[I, V, E, M]) ComputeVertex(ctx context.Context, inv VertexInvocation[I, V, E, M], compute func(context.Context) error) error {
	captured := ic.config.ShouldDebugSuperstep(inv.Superstep) && ic.config.ShouldDebugVertex(inv.Vertex)
	ic.opts.metrics.recordInvocation(ctx, KindVertex, captured)

	if !captured {
		if !ic.config.ShouldCatchExceptions() {
			return compute(ctx)
		}
		return Intercept(ctx, &vertexHooks[I, V, E, M]{ic: ic, inv: inv}, compute)
	}

	ctx, span := ic.opts.tracer.Start(ctx, "graft.compute.vertex", trace.WithAttributes(
		attribute.Int64("graft.superstep", inv.Superstep),
		attribute.String("graft.vertex_id", fmt.Sprint(inv.Vertex.ID())),
	))
	defer span.End()

	return Intercept(ctx, &vertexHooks[I, V, E, M]{ic: ic, inv: inv, captured: true}, compute)
}

// ComputeMaster runs the master compute of a superstep. It is captured when
// the superstep is in scope.
func (ic *Interceptor[I, V, E, M]) ComputeMaster(ctx context.Context, inv MasterInvocation, compute func(context.Context) error) error {
	captured := ic.config.ShouldDebugSuperstep(inv.Superstep)
	ic.opts.metrics.recordInvocation(ctx, KindMaster, captured)

	if !captured {
		if !ic.config.ShouldCatchExceptions() {
			return compute(ctx)
		}
		return Intercept(ctx, &masterHooks{emit: ic.emit, inv: inv}, compute)
	}

	ctx, span := ic.opts.tracer.Start(ctx, "graft.compute.master", trace.WithAttributes(
		attribute.Int64("graft.superstep", inv.Superstep),
	))
	defer span.End()

	return Intercept(ctx, &masterHooks{emit: ic.emit, inv: inv, captured: true}, compute)
}

// CheckMessage consults the message constraint for a sent message. It
// returns nil when the message is legal or no constraint is configured.
func (ic *Interceptor[I, V, E, M]) CheckMessage(ctx context.Context, superstep int64, msg graph.Message[I, M]) *ConstraintViolation {
	if !ic.config.ShouldCheckMessageIntegrity() || ic.config.IsMessageCorrect(msg.Src, msg.Dst, msg.Payload) {
		return nil
	}
	v := &ConstraintViolation{
		Kind:      ViolationMessage,
		Superstep: superstep,
		VertexID:  msg.Src,
		DstID:     msg.Dst,
		Entity:    msg.Payload,
	}
	ic.emitViolation(ctx, v)
	return v
}

// CheckVertexValue consults the vertex value constraint for an updated value.
// It returns nil when the value is legal or no constraint is configured.
func (ic *Interceptor[I, V, E, M]) CheckVertexValue(ctx context.Context, superstep int64, id I, value V) *ConstraintViolation {
	if !ic.config.ShouldCheckVertexValueIntegrity() || ic.config.IsVertexValueCorrect(id, value) {
		return nil
	}
	v := &ConstraintViolation{
		Kind:      ViolationVertexValue,
		Superstep: superstep,
		VertexID:  id,
		Entity:    value,
	}
	ic.emitViolation(ctx, v)
	return v
}

func (ic *Interceptor[I, V, E, M]) emitViolation(ctx context.Context, v *ConstraintViolation) {
	ic.emit(ctx, &Event{
		Type:      EventConstraintViolation,
		Kind:      KindVertex,
		Superstep: v.Superstep,
		VertexID:  v.VertexID,
		Violation: v,
		Message:   v.String(),
	})
}

func (ic *Interceptor[I, V, E, M]) emit(ctx context.Context, event *Event) {
	event.ID = uuid.NewString()
	event.JobID = ic.opts.jobID
	event.Timestamp = ic.opts.now()

	ic.opts.metrics.recordEvent(ctx, event)
	if ic.opts.logger.Enabled(ctx, graftlog.LevelTrace) {
		ic.opts.logger.LogAttrs(ctx, graftlog.LevelTrace, "Emitting capture event",
			slog.String(graftlog.EventKey, string(event.Type)),
			slog.Int64(graftlog.SuperstepKey, event.Superstep),
			slog.Any(graftlog.VertexIDKey, event.VertexID))
	}
	ic.sink.Emit(ctx, event)
}

type vertexHooks[I comparable, V, E, M any] struct {
	ic       *Interceptor[I, V, E, M]
	inv      VertexInvocation[I, V, E, M]
	captured bool
}

func (h *vertexHooks[I, V, E, M]) InterceptComputeBegin(ctx context.Context) {
	if !h.captured {
		return
	}
	h.emit(ctx, EventComputeBegin, &Snapshot{
		Value:    h.inv.Vertex.Value(),
		Edges:    slices.Clone(h.inv.Vertex.Edges()),
		Incoming: slices.Clone(h.inv.Incoming),
	}, nil)
}

func (h *vertexHooks[I, V, E, M]) InterceptComputeEnd(ctx context.Context) {
	if !h.captured {
		return
	}
	h.emit(ctx, EventComputeEnd, h.after(), nil)
}

func (h *vertexHooks[I, V, E, M]) InterceptComputeException(ctx context.Context, failure grafterrors.ComputationFailure) {
	if h.captured {
		trace.SpanFromContext(ctx).SetStatus(codes.Error, failure.Message)
	}
	snap := h.after()
	snap.Incoming = slices.Clone(h.inv.Incoming)
	h.emit(ctx, EventComputeException, snap, &failure)
}

func (h *vertexHooks[I, V, E, M]) after() *Snapshot {
	snap := &Snapshot{Value: h.inv.Vertex.Value()}
	if h.inv.Sent != nil {
		snap.Sent = slices.Clone(h.inv.Sent())
	}
	return snap
}

func (h *vertexHooks[I, V, E, M]) emit(ctx context.Context, typ EventType, snap *Snapshot, failure *grafterrors.ComputationFailure) {
	h.ic.emit(ctx, &Event{
		Type:      typ,
		Kind:      KindVertex,
		Superstep: h.inv.Superstep,
		VertexID:  h.inv.Vertex.ID(),
		Captured:  h.captured,
		Snapshot:  snap,
		Failure:   failure,
	})
}

type masterHooks struct {
	emit     func(context.Context, *Event)
	inv      MasterInvocation
	captured bool
}

func (h *masterHooks) InterceptComputeBegin(ctx context.Context) {
	if h.captured {
		h.send(ctx, EventComputeBegin, nil)
	}
}

func (h *masterHooks) InterceptComputeEnd(ctx context.Context) {
	if h.captured {
		h.send(ctx, EventComputeEnd, nil)
	}
}

func (h *masterHooks) InterceptComputeException(ctx context.Context, failure grafterrors.ComputationFailure) {
	if h.captured {
		trace.SpanFromContext(ctx).SetStatus(codes.Error, failure.Message)
	}
	h.send(ctx, EventComputeException, &failure)
}

func (h *masterHooks) send(ctx context.Context, typ EventType, failure *grafterrors.ComputationFailure) {
	snap := &Snapshot{}
	if h.inv.Aggregators != nil {
		snap.Aggregators = maps.Clone(h.inv.Aggregators())
	}
	h.emit(ctx, &Event{
		Type:      typ,
		Kind:      KindMaster,
		Superstep: h.inv.Superstep,
		Captured:  h.captured,
		Snapshot:  snap,
		Failure:   failure,
	})
}
