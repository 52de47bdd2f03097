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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/graft/pkg/graph"
)

type recordingSink struct {
	mu     sync.Mutex
	events []*Event
}

func (s *recordingSink) Emit(_ context.Context, e *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

type testInterceptor = Interceptor[int64, float64, float64, float64]

func newInterceptor(t *testing.T, scope Scope[int64], c testConstraints, opts ...Option) (*testInterceptor, *recordingSink) {
	t.Helper()
	cfg, err := New[int64, float64, float64](scope, c)
	require.NoError(t, err)
	sink := &recordingSink{}
	return NewInterceptor(cfg, sink, append([]Option{WithJobID("job-test")}, opts...)...), sink
}

// relax is a tiny compute that lowers the vertex value and sends it on.
func relax(v *graph.MemVertex[int64, float64, float64], out *[]graph.Message[int64, float64]) func(context.Context) error {
	return func(context.Context) error {
		v.SetValue(v.Value() - 1)
		for _, e := range v.Edges() {
			*out = append(*out, graph.Message[int64, float64]{Src: v.ID(), Dst: e.Target, Payload: v.Value() + e.Value})
		}
		return nil
	}
}

func invocation(superstep int64, v *graph.MemVertex[int64, float64, float64], incoming []float64, sent *[]graph.Message[int64, float64]) VertexInvocation[int64, float64, float64, float64] {
	return VertexInvocation[int64, float64, float64, float64]{
		Superstep: superstep,
		Vertex:    v,
		Incoming:  incoming,
		Sent:      func() []graph.Message[int64, float64] { return *sent },
	}
}

func TestInterceptor_CapturedVertex(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{Vertices: []int64{1}}, testConstraints{})

	v := graph.NewVertex[int64, float64, float64](1, 10)
	v.AddEdge(2, 0.5)
	var sent []graph.Message[int64, float64]

	err := ic.ComputeVertex(context.Background(), invocation(0, v, []float64{3}, &sent), relax(v, &sent))
	require.NoError(t, err)

	require.Equal(t, []EventType{EventComputeBegin, EventComputeEnd}, sink.types())

	begin, end := sink.events[0], sink.events[1]
	assert.Equal(t, "job-test", begin.JobID)
	assert.Equal(t, int64(1), begin.VertexID)
	assert.Equal(t, KindVertex, begin.Kind)
	assert.True(t, begin.Captured)
	assert.NotEmpty(t, begin.ID)
	assert.NotEqual(t, begin.ID, end.ID)

	assert.Equal(t, 10.0, begin.Snapshot.Value, "begin carries the pre-compute value")
	assert.Equal(t, []float64{3}, begin.Snapshot.Incoming)
	assert.Equal(t, []graph.Edge[int64, float64]{{Target: 2, Value: 0.5}}, begin.Snapshot.Edges)

	assert.Equal(t, 9.0, end.Snapshot.Value, "end carries the post-compute value")
	assert.Equal(t, []graph.Message[int64, float64]{{Src: 1, Dst: 2, Payload: 9.5}}, end.Snapshot.Sent)
}

func TestInterceptor_UncapturedVertexEmitsNothing(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{Vertices: []int64{1}}, testConstraints{})

	v := graph.NewVertex[int64, float64, float64](2, 10)
	var sent []graph.Message[int64, float64]
	ran := false

	err := ic.ComputeVertex(context.Background(), invocation(0, v, nil, &sent), func(context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran, "compute must run even when not captured")
	assert.Empty(t, sink.types())
}

func TestInterceptor_SuperstepOutOfScope(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{DebugAllVertices: true, Supersteps: []int64{3}}, testConstraints{})

	v := graph.NewVertex[int64, float64, float64](1, 10)
	var sent []graph.Message[int64, float64]

	require.NoError(t, ic.ComputeVertex(context.Background(), invocation(2, v, nil, &sent), relax(v, &sent)))
	assert.Empty(t, sink.types())

	require.NoError(t, ic.ComputeVertex(context.Background(), invocation(3, v, nil, &sent), relax(v, &sent)))
	assert.Equal(t, []EventType{EventComputeBegin, EventComputeEnd}, sink.types())
}

func TestInterceptor_CapturedFailure(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{Vertices: []int64{1}}, testConstraints{})

	v := graph.NewVertex[int64, float64, float64](1, 10)
	var sent []graph.Message[int64, float64]
	sentinel := errors.New("bad state")

	err := ic.ComputeVertex(context.Background(), invocation(0, v, []float64{1}, &sent), func(context.Context) error {
		return sentinel
	})

	assert.Same(t, sentinel, err)
	require.Equal(t, []EventType{EventComputeBegin, EventComputeException}, sink.types())

	exc := sink.events[1]
	assert.True(t, exc.Captured)
	require.NotNil(t, exc.Failure)
	assert.Equal(t, "bad state", exc.Failure.Message)
	assert.Equal(t, []float64{1}, exc.Snapshot.Incoming)
}

func TestInterceptor_UncapturedFailureCaughtByDefault(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{}, testConstraints{})

	v := graph.NewVertex[int64, float64, float64](5, 10)
	var sent []graph.Message[int64, float64]
	sentinel := errors.New("boom")

	err := ic.ComputeVertex(context.Background(), invocation(4, v, nil, &sent), func(context.Context) error {
		return sentinel
	})

	assert.Same(t, sentinel, err)
	require.Equal(t, []EventType{EventComputeException}, sink.types())
	assert.False(t, sink.events[0].Captured)
	assert.Equal(t, int64(4), sink.events[0].Superstep)
}

func TestInterceptor_UncapturedFailureIgnored(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{IgnoreExceptions: true}, testConstraints{})

	v := graph.NewVertex[int64, float64, float64](5, 10)
	var sent []graph.Message[int64, float64]
	sentinel := errors.New("boom")

	err := ic.ComputeVertex(context.Background(), invocation(0, v, nil, &sent), func(context.Context) error {
		return sentinel
	})

	assert.Same(t, sentinel, err)
	assert.Empty(t, sink.types())
}

func TestInterceptor_PanicPropagates(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{DebugAllVertices: true}, testConstraints{})

	v := graph.NewVertex[int64, float64, float64](1, 10)
	var sent []graph.Message[int64, float64]

	assert.PanicsWithValue(t, "division by zero", func() {
		_ = ic.ComputeVertex(context.Background(), invocation(0, v, nil, &sent), func(context.Context) error {
			panic("division by zero")
		})
	})

	require.Equal(t, []EventType{EventComputeBegin, EventComputeException}, sink.types())
	assert.True(t, sink.events[1].Failure.Panicked)
}

func TestInterceptor_Master(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{Supersteps: []int64{1}}, testConstraints{})

	aggregators := map[string]any{"halt": false}
	inv := func(s int64) MasterInvocation {
		return MasterInvocation{Superstep: s, Aggregators: func() map[string]any { return aggregators }}
	}
	compute := func(context.Context) error {
		aggregators["halt"] = true
		return nil
	}

	require.NoError(t, ic.ComputeMaster(context.Background(), inv(0), compute))
	assert.Empty(t, sink.types())

	aggregators["halt"] = false
	require.NoError(t, ic.ComputeMaster(context.Background(), inv(1), compute))
	require.Equal(t, []EventType{EventComputeBegin, EventComputeEnd}, sink.types())

	assert.Equal(t, KindMaster, sink.events[0].Kind)
	assert.Nil(t, sink.events[0].VertexID)
	assert.Equal(t, false, sink.events[0].Snapshot.Aggregators["halt"], "begin snapshot is a copy")
	assert.Equal(t, true, sink.events[1].Snapshot.Aggregators["halt"])
}

func TestInterceptor_MasterFailure(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{}, testConstraints{})
	sentinel := errors.New("aggregator overflow")

	err := ic.ComputeMaster(context.Background(), MasterInvocation{Superstep: 0}, func(context.Context) error {
		return sentinel
	})

	assert.Same(t, sentinel, err)
	assert.Equal(t, []EventType{EventComputeBegin, EventComputeException}, sink.types())
}

func TestInterceptor_CheckMessage(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{}, testConstraints{
		MessageCorrect: func(src, dst int64, m float64) bool { return m >= 0 },
	})

	assert.Nil(t, ic.CheckMessage(context.Background(), 2, graph.Message[int64, float64]{Src: 1, Dst: 2, Payload: 1}))
	assert.Empty(t, sink.types())

	v := ic.CheckMessage(context.Background(), 2, graph.Message[int64, float64]{Src: 1, Dst: 2, Payload: -1})
	require.NotNil(t, v)
	assert.Equal(t, ViolationMessage, v.Kind)
	assert.Equal(t, int64(1), v.VertexID)
	assert.Equal(t, int64(2), v.DstID)
	assert.Equal(t, -1.0, v.Entity)

	require.Equal(t, []EventType{EventConstraintViolation}, sink.types())
	assert.Same(t, v, sink.events[0].Violation)
	assert.Contains(t, sink.events[0].Message, "1->2")
}

func TestInterceptor_CheckVertexValue(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{}, testConstraints{})
	assert.Nil(t, ic.CheckVertexValue(context.Background(), 0, 1, -5), "no constraint configured")

	ic, sink = newInterceptor(t, Scope[int64]{}, testConstraints{
		VertexValueCorrect: func(id int64, v float64) bool { return v >= 0 },
	})
	v := ic.CheckVertexValue(context.Background(), 3, 7, -5)
	require.NotNil(t, v)
	assert.Equal(t, ViolationVertexValue, v.Kind)
	assert.Equal(t, int64(3), v.Superstep)
	assert.Equal(t, []EventType{EventConstraintViolation}, sink.types())
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestInterceptor_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewMetrics(provider)
	require.NoError(t, err)

	ic, _ := newInterceptor(t, Scope[int64]{Vertices: []int64{1}}, testConstraints{
		MessageCorrect: func(src, dst int64, msg float64) bool { return msg >= 0 },
	}, WithMetrics(m))

	ctx := context.Background()
	var sent []graph.Message[int64, float64]
	for _, id := range []int64{1, 2, 3} {
		v := graph.NewVertex[int64, float64, float64](id, 1)
		require.NoError(t, ic.ComputeVertex(ctx, invocation(0, v, nil, &sent), relax(v, &sent)))
	}
	failing := graph.NewVertex[int64, float64, float64](4, 1)
	_ = ic.ComputeVertex(ctx, invocation(0, failing, nil, &sent), func(context.Context) error { return errors.New("x") })
	ic.CheckMessage(ctx, 0, graph.Message[int64, float64]{Src: 1, Dst: 2, Payload: -1})

	assert.Equal(t, int64(4), counterTotal(t, reader, "graft_compute_invocations_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "graft_captures_total"))
	assert.Equal(t, int64(4), counterTotal(t, reader, "graft_capture_events_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "graft_compute_failures_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "graft_constraint_violations_total"))
}

func TestInterceptor_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ic, _ := newInterceptor(t, Scope[int64]{Vertices: []int64{1}}, testConstraints{}, WithTracer(tp.Tracer("test")))

	var sent []graph.Message[int64, float64]
	ok := graph.NewVertex[int64, float64, float64](1, 1)
	require.NoError(t, ic.ComputeVertex(context.Background(), invocation(0, ok, nil, &sent), relax(ok, &sent)))

	skipped := graph.NewVertex[int64, float64, float64](2, 1)
	require.NoError(t, ic.ComputeVertex(context.Background(), invocation(0, skipped, nil, &sent), relax(skipped, &sent)))

	_ = ic.ComputeVertex(context.Background(), invocation(1, ok, nil, &sent), func(context.Context) error {
		return errors.New("failed")
	})

	spans := recorder.Ended()
	require.Len(t, spans, 2, "only captured invocations get spans")
	assert.Equal(t, "graft.compute.vertex", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestInterceptor_ConcurrentUse(t *testing.T) {
	ic, sink := newInterceptor(t, Scope[int64]{Vertices: []int64{0, 2, 4, 6}}, testConstraints{})

	var wg sync.WaitGroup
	for id := int64(0); id < 8; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := graph.NewVertex[int64, float64, float64](id, 1)
			var sent []graph.Message[int64, float64]
			_ = ic.ComputeVertex(context.Background(), invocation(0, v, nil, &sent), relax(v, &sent))
		}()
	}
	wg.Wait()

	assert.Len(t, sink.types(), 8, "four captured vertices, two events each")
}
