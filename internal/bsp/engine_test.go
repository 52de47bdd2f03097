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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tombee/graft/internal/debug"
	"github.com/tombee/graft/pkg/graph"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type (
	testGraph   = graph.Graph[int64, float64, float64]
	testContext = VertexContext[int64, float64, float64, float64]
	testJob     = Job[int64, float64, float64, float64]
)

// ring builds 1 -> 2 -> ... -> n -> 1 with vertex i valued i.
func ring(n int64) *testGraph {
	g := graph.New[int64, float64, float64]()
	for i := int64(1); i <= n; i++ {
		g.Add(graph.NewVertex(i, float64(i), graph.Edge[int64, float64]{Target: i%n + 1, Value: 1}))
	}
	return g
}

// maxValue propagates the largest vertex value around the graph.
var maxValue = ComputeFunc[int64, float64, float64, float64](func(_ context.Context, vc *testContext, messages []float64) error {
	best := vc.Value()
	for _, m := range messages {
		best = max(best, m)
	}
	if vc.Superstep() == 0 || best > vc.Value() {
		vc.SetValue(best)
		vc.SendMessageToAllEdges(best)
	}
	vc.VoteToHalt()
	return nil
})

func values(g *testGraph) map[int64]float64 {
	out := map[int64]float64{}
	for _, v := range g.Vertices() {
		out[v.ID()] = v.Value()
	}
	return out
}

func TestEngine_Converges(t *testing.T) {
	g := ring(5)
	e, err := New(testJob{Graph: g, Compute: maxValue}, WithWorkers(2))
	require.NoError(t, err)

	stats, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, HaltConverged, stats.Reason)
	for id, v := range values(g) {
		assert.Equal(t, 5.0, v, "vertex %d", id)
	}
	// 5 in superstep 0, then the max travels four hops, one more step to
	// receive the last redundant message.
	assert.Equal(t, int64(6), stats.Supersteps)
	assert.Equal(t, int64(0), stats.DroppedMessages)
	assert.Positive(t, stats.Messages)
}

func TestEngine_MaxSupersteps(t *testing.T) {
	g := ring(10)
	e, err := New(testJob{Graph: g, Compute: maxValue}, WithMaxSupersteps(2))
	require.NoError(t, err)

	stats, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HaltMaxSupersteps, stats.Reason)
	assert.Equal(t, int64(2), stats.Supersteps)
	assert.Equal(t, int64(20), stats.ComputeCalls, "every vertex received a message in superstep 0")
}

func TestEngine_MasterHaltAndAggregators(t *testing.T) {
	g := ring(3)
	var seen []any
	var broadcast []any

	compute := ComputeFunc[int64, float64, float64, float64](func(_ context.Context, vc *testContext, _ []float64) error {
		if vc.ID() == 1 {
			broadcast = append(broadcast, vc.Aggregated("calls"))
		}
		return vc.Aggregate("calls", int64(1))
	})
	master := MasterFunc(func(_ context.Context, mc *MasterContext) error {
		seen = append(seen, mc.Aggregated("calls"))
		if mc.Superstep() == 1 {
			mc.SetAggregated("calls", int64(100))
		}
		if mc.Superstep() == 2 {
			mc.HaltComputation()
		}
		return nil
	})

	e, err := New(testJob{
		Graph:       g,
		Compute:     compute,
		Master:      master,
		Aggregators: map[string]Aggregator{"calls": Sum[int64]()},
	}, WithWorkers(1))
	require.NoError(t, err)

	stats, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, HaltMaster, stats.Reason)
	assert.Equal(t, int64(2), stats.Supersteps)
	assert.Equal(t, []any{int64(0), int64(3), int64(3)}, seen)
	assert.Equal(t, []any{int64(0), int64(100)}, broadcast)
}

func TestEngine_UnknownAggregator(t *testing.T) {
	compute := ComputeFunc[int64, float64, float64, float64](func(_ context.Context, vc *testContext, _ []float64) error {
		return vc.Aggregate("missing", int64(1))
	})
	e, err := New(testJob{Graph: ring(1), Compute: compute})
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown aggregator "missing"`)
}

func TestEngine_ComputeError(t *testing.T) {
	sentinel := errors.New("negative weight")
	compute := ComputeFunc[int64, float64, float64, float64](func(_ context.Context, vc *testContext, _ []float64) error {
		if vc.ID() == 2 && vc.Superstep() == 1 {
			return sentinel
		}
		vc.SendMessageToAllEdges(1)
		return nil
	})

	e, err := New(testJob{Graph: ring(3), Compute: compute}, WithWorkers(1))
	require.NoError(t, err)

	stats, err := e.Run(context.Background())
	require.ErrorIs(t, err, sentinel)

	var ce *ComputeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int64(1), ce.Superstep)
	assert.Equal(t, int64(2), ce.VertexID)
	assert.False(t, ce.Master)
	assert.Nil(t, ce.Panic)
	assert.Equal(t, int64(2), stats.Supersteps)
}

func TestEngine_PanicBecomesComputeError(t *testing.T) {
	compute := ComputeFunc[int64, float64, float64, float64](func(_ context.Context, vc *testContext, _ []float64) error {
		if vc.ID() == 3 {
			panic("index out of range")
		}
		return nil
	})

	e, err := New(testJob{Graph: ring(4), Compute: compute})
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	var ce *ComputeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "index out of range", ce.Panic)
	assert.Equal(t, int64(3), ce.VertexID)
}

func TestEngine_MasterError(t *testing.T) {
	sentinel := errors.New("bad aggregator")
	e, err := New(testJob{
		Graph:   ring(2),
		Compute: maxValue,
		Master:  MasterFunc(func(context.Context, *MasterContext) error { return sentinel }),
	})
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	require.ErrorIs(t, err, sentinel)
	var ce *ComputeError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Master)
	assert.Contains(t, ce.Error(), "master compute failed in superstep 0")
}

func TestEngine_DropsMessagesToUnknownVertices(t *testing.T) {
	compute := ComputeFunc[int64, float64, float64, float64](func(_ context.Context, vc *testContext, _ []float64) error {
		if vc.Superstep() == 0 {
			vc.SendMessage(99, 1)
		}
		vc.VoteToHalt()
		return nil
	})

	e, err := New(testJob{Graph: ring(2), Compute: compute})
	require.NoError(t, err)

	stats, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.DroppedMessages)
	assert.Equal(t, HaltConverged, stats.Reason)
}

type collectingSink struct {
	events []*debug.Event
}

func (s *collectingSink) Emit(_ context.Context, e *debug.Event) {
	s.events = append(s.events, e)
}

func TestEngine_WithInterceptor(t *testing.T) {
	cfg, err := debug.New[int64, float64, float64](debug.Scope[int64]{
		Vertices:   []int64{2},
		Supersteps: []int64{0},
	}, debug.Constraints[int64, float64, float64]{
		MessageCorrect:     func(_, _ int64, m float64) bool { return m < 4 },
		VertexValueCorrect: func(_ int64, v float64) bool { return v < 5 },
	})
	require.NoError(t, err)

	// A single worker keeps the unsynchronized sink safe.
	sink := &collectingSink{}
	ic := debug.NewInterceptor(cfg, sink)

	e, err := New(testJob{Graph: ring(5), Compute: maxValue, Interceptor: ic}, WithWorkers(1))
	require.NoError(t, err)

	stats, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, stats.Violations)

	var captured []debug.EventType
	var violations int64
	for _, ev := range sink.events {
		switch ev.Type {
		case debug.EventConstraintViolation:
			violations++
		default:
			assert.Equal(t, int64(2), ev.VertexID)
			assert.Equal(t, int64(0), ev.Superstep)
			captured = append(captured, ev.Type)
		}
	}
	assert.Equal(t, []debug.EventType{debug.EventComputeBegin, debug.EventComputeEnd}, captured)
	assert.Equal(t, stats.Violations, violations)
}

func TestEngine_InterceptorSeesFailure(t *testing.T) {
	cfg := debug.Default[int64, float64, float64, float64]()
	sink := &collectingSink{}
	ic := debug.NewInterceptor(cfg, sink)

	sentinel := errors.New("boom")
	compute := ComputeFunc[int64, float64, float64, float64](func(context.Context, *testContext, []float64) error {
		return sentinel
	})

	e, err := New(testJob{Graph: ring(1), Compute: compute, Interceptor: ic})
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	require.ErrorIs(t, err, sentinel)
	require.Len(t, sink.events, 1)
	assert.Equal(t, debug.EventComputeException, sink.events[0].Type)
	assert.False(t, sink.events[0].Captured)
}

func TestEngine_RunsOnce(t *testing.T) {
	e, err := New(testJob{Graph: ring(2), Compute: maxValue})
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	require.Error(t, err)
}

func TestEngine_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := New(testJob{Graph: ring(2), Compute: maxValue})
	require.NoError(t, err)

	_, err = e.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(testJob{Compute: maxValue})
	require.Error(t, err)

	_, err = New(testJob{Graph: ring(1)})
	require.Error(t, err)

	_, err = New(testJob{Graph: ring(1), Compute: maxValue}, WithMaxSupersteps(-1))
	require.Error(t, err)
}
