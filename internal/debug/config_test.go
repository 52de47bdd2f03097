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
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/graft/pkg/graph"
)

type testConfig = Config[int64, float64, float64, float64]

type testConstraints = Constraints[int64, float64, float64]

func vertex(id int64, targets ...int64) *graph.MemVertex[int64, float64, float64] {
	v := graph.NewVertex[int64, float64, float64](id, 0)
	for _, t := range targets {
		v.AddEdge(t, 1)
	}
	return v
}

func newConfig(t *testing.T, scope Scope[int64]) *testConfig {
	t.Helper()
	cfg, err := New[int64, float64, float64](scope, testConstraints{})
	require.NoError(t, err)
	return cfg
}

func TestConfig_ShouldDebugSuperstep_AllByDefault(t *testing.T) {
	cfg := newConfig(t, Scope[int64]{})

	for _, s := range []int64{0, 1, 17, math.MaxInt64} {
		assert.True(t, cfg.ShouldDebugSuperstep(s), "superstep %d", s)
	}
}

func TestConfig_ShouldDebugSuperstep_ExplicitSet(t *testing.T) {
	cfg := newConfig(t, Scope[int64]{Supersteps: []int64{2, 5, 9}})

	tests := []struct {
		superstep int64
		want      bool
	}{
		{0, false},
		{2, true},
		{5, true},
		{6, false},
		{9, true},
		{10, false},
	}

	for _, tt := range tests {
		if got := cfg.ShouldDebugSuperstep(tt.superstep); got != tt.want {
			t.Errorf("ShouldDebugSuperstep(%d) = %v, want %v", tt.superstep, got, tt.want)
		}
	}
}

func TestConfig_ShouldDebugVertex(t *testing.T) {
	tests := []struct {
		name   string
		scope  Scope[int64]
		vertex *graph.MemVertex[int64, float64, float64]
		want   bool
	}{
		{"debug all with absent set", Scope[int64]{DebugAllVertices: true}, vertex(42), true},
		{"debug all with empty set", Scope[int64]{DebugAllVertices: true, Vertices: []int64{}}, vertex(42), true},
		{"debug all ignores set", Scope[int64]{DebugAllVertices: true, Vertices: []int64{1}}, vertex(2), true},
		{"no set is fail-closed", Scope[int64]{}, vertex(1), false},
		{"no set with neighbors", Scope[int64]{IncludeNeighbors: true}, vertex(1, 2), false},
		{"listed vertex", Scope[int64]{Vertices: []int64{1, 3}}, vertex(1), true},
		{"unlisted vertex", Scope[int64]{Vertices: []int64{1, 3}}, vertex(2), false},
		{"neighbor excluded", Scope[int64]{Vertices: []int64{1, 3}}, vertex(4, 1), false},
		{"neighbor included", Scope[int64]{Vertices: []int64{1, 3}, IncludeNeighbors: true}, vertex(4, 3), true},
		{"non-neighbor", Scope[int64]{Vertices: []int64{1, 3}, IncludeNeighbors: true}, vertex(4, 9), false},
		{"listed without edges", Scope[int64]{Vertices: []int64{1, 3}, IncludeNeighbors: true}, vertex(3), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newConfig(t, tt.scope)
			assert.Equal(t, tt.want, cfg.ShouldDebugVertex(tt.vertex))
		})
	}
}

func TestConfig_NeighborsUseOutgoingEdgesOnly(t *testing.T) {
	cfg := newConfig(t, Scope[int64]{Vertices: []int64{1}, IncludeNeighbors: true})

	// Vertex 1 points at 5, but 5 does not point back.
	assert.False(t, cfg.ShouldDebugVertex(vertex(5)))
	assert.True(t, cfg.ShouldDebugVertex(vertex(5, 1)))
}

func TestConfig_Deterministic(t *testing.T) {
	cfg := newConfig(t, Scope[int64]{Vertices: []int64{1, 3}, IncludeNeighbors: true, Supersteps: []int64{0, 4}})
	v := vertex(4, 9, 3)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !cfg.ShouldDebugVertex(v) || !cfg.ShouldDebugSuperstep(4) || cfg.ShouldDebugSuperstep(3) {
					t.Error("decision changed between calls")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestConfig_DefaultConstraintsFailOpen(t *testing.T) {
	cfg := Default[int64, float64, float64, float64]()

	assert.False(t, cfg.ShouldCheckMessageIntegrity())
	assert.False(t, cfg.ShouldCheckVertexValueIntegrity())
	for i := 0; i < 3; i++ {
		assert.True(t, cfg.IsMessageCorrect(1, 2, math.NaN()))
		assert.True(t, cfg.IsMessageCorrect(-1, -1, -1e300))
		assert.True(t, cfg.IsVertexValueCorrect(7, math.Inf(-1)))
	}
	assert.True(t, cfg.ShouldCatchExceptions())
	assert.False(t, cfg.ShouldDebugVertex(vertex(1)))
	assert.True(t, cfg.ShouldDebugSuperstep(0))
}

func TestConfig_CustomConstraints(t *testing.T) {
	cfg, err := New[int64, float64, float64](Scope[int64]{}, testConstraints{
		MessageCorrect:     func(src, dst int64, m float64) bool { return m >= 0 },
		VertexValueCorrect: func(id int64, v float64) bool { return v < 100 },
	})
	require.NoError(t, err)

	assert.True(t, cfg.ShouldCheckMessageIntegrity())
	assert.True(t, cfg.ShouldCheckVertexValueIntegrity())
	assert.True(t, cfg.IsMessageCorrect(1, 2, 3))
	assert.False(t, cfg.IsMessageCorrect(1, 2, -3))
	assert.True(t, cfg.IsVertexValueCorrect(1, 99))
	assert.False(t, cfg.IsVertexValueCorrect(1, 100))
}

func TestNew_RejectsBadSupersteps(t *testing.T) {
	_, err := New[int64, float64, float64](Scope[int64]{Supersteps: []int64{}}, testConstraints{})
	assert.Error(t, err, "empty superstep list")

	_, err = New[int64, float64, float64](Scope[int64]{Supersteps: []int64{1, -2}}, testConstraints{})
	assert.Error(t, err, "negative superstep")
}

func TestConfig_String(t *testing.T) {
	cfg := newConfig(t, Scope[int64]{Vertices: []int64{3, 1}, Supersteps: []int64{9, 2}, IncludeNeighbors: true})
	s := cfg.String()

	assert.True(t, strings.Contains(s, "superstepsToDebug: [2 9]"), s)
	assert.True(t, strings.Contains(s, "verticesToDebug: [1 3]"), s)
	assert.True(t, strings.Contains(s, "debugNeighbors: true"), s)

	all := newConfig(t, Scope[int64]{DebugAllVertices: true, IgnoreExceptions: true}).String()
	assert.Contains(t, all, "all supersteps")
	assert.Contains(t, all, "all vertices")
	assert.Contains(t, all, "shouldCatchExceptions: false")
}
