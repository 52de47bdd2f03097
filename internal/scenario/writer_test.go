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

package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/graft/internal/debug"
	grafterrors "github.com/tombee/graft/pkg/errors"
)

func TestPath(t *testing.T) {
	tests := []struct {
		name  string
		event debug.Event
		want  string
	}{
		{
			name:  "vertex",
			event: debug.Event{Type: debug.EventComputeBegin, Kind: debug.KindVertex, Superstep: 3, VertexID: int64(42)},
			want:  filepath.Join("superstep-000003", "vertex-42.yaml"),
		},
		{
			name:  "master",
			event: debug.Event{Type: debug.EventComputeEnd, Kind: debug.KindMaster, Superstep: 12},
			want:  filepath.Join("superstep-000012", "master.yaml"),
		},
		{
			name:  "string id is escaped",
			event: debug.Event{Type: debug.EventComputeEnd, Kind: debug.KindVertex, VertexID: "a/b"},
			want:  filepath.Join("superstep-000000", "vertex-a%2Fb.yaml"),
		},
		{
			name:  "violation",
			event: debug.Event{Type: debug.EventConstraintViolation, Kind: debug.KindVertex, Superstep: 1},
			want:  ViolationsFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Path(&tt.event))
		})
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, nil)
	require.NoError(t, err)

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	failure := grafterrors.DescribeError(errors.New("negative distance"))

	w.Emit(context.Background(), &debug.Event{
		ID: "e1", JobID: "job", Type: debug.EventComputeBegin, Kind: debug.KindVertex,
		Superstep: 2, VertexID: int64(7), Captured: true, Timestamp: ts,
		Snapshot: &debug.Snapshot{Value: 1.5, Incoming: []float64{0.5, 2.5}},
	})
	w.Emit(context.Background(), &debug.Event{
		ID: "e2", JobID: "job", Type: debug.EventComputeException, Kind: debug.KindVertex,
		Superstep: 2, VertexID: int64(7), Captured: true, Timestamp: ts,
		Failure: &failure,
	})
	require.NoError(t, w.Close())
	assert.Equal(t, 2, w.Count())

	events, err := Load(filepath.Join(dir, "superstep-000002", "vertex-7.yaml"))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, debug.EventComputeBegin, events[0].Type)
	assert.True(t, events[0].Timestamp.Equal(ts))
	require.NotNil(t, events[0].Snapshot)
	assert.Equal(t, 1.5, events[0].Snapshot.Value)

	assert.Equal(t, debug.EventComputeException, events[1].Type)
	require.NotNil(t, events[1].Failure)
	assert.Equal(t, "negative distance", events[1].Failure.Message)
	assert.False(t, events[1].Failure.Panicked)
}

func TestWriter_FilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")
	w, err := NewWriter(dir, nil)
	require.NoError(t, err)

	w.Emit(context.Background(), &debug.Event{Type: debug.EventComputeEnd, Kind: debug.KindMaster})
	require.NoError(t, w.Err())

	info, err := os.Stat(filepath.Join(dir, "superstep-000000", "master.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWriter_ConcurrentEmit(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Emit(context.Background(), &debug.Event{
				Type: debug.EventComputeBegin, Kind: debug.KindVertex, VertexID: int64(i % 4),
			})
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	events, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, events, 20)
}

func TestWriter_KeepsFirstError(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, nil)
	require.NoError(t, err)

	// A regular file where the superstep directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "superstep-000001"), nil, 0600))

	w.Emit(context.Background(), &debug.Event{Type: debug.EventComputeBegin, Superstep: 1, VertexID: int64(1)})
	w.Emit(context.Background(), &debug.Event{Type: debug.EventComputeBegin, Superstep: 2, VertexID: int64(1)})

	require.Error(t, w.Close())
	assert.Equal(t, 1, w.Count())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("type: [unclosed\n"), 0600))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}
