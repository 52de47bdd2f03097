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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReducers(t *testing.T) {
	tests := []struct {
		name   string
		agg    Aggregator
		values []any
		want   any
	}{
		{name: "sum", agg: Sum[int64](), values: []any{int64(1), int64(2), int64(3)}, want: int64(6)},
		{name: "min", agg: Min(100.0), values: []any{5.0, 2.0, 9.0}, want: 2.0},
		{name: "max", agg: Max(0.0), values: []any{5.0, 2.0, 9.0}, want: 9.0},
		{name: "empty sum", agg: Sum[float64](), want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.values {
				require.NoError(t, tt.agg.Aggregate(v))
			}
			assert.Equal(t, tt.want, tt.agg.Value())
		})
	}
}

func TestReducer_TypeMismatch(t *testing.T) {
	agg := Sum[int64]()
	err := agg.Aggregate(1.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects int64, got float64")
}

func TestReducer_ResetAndConcurrency(t *testing.T) {
	agg := Sum[int64]()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = agg.Aggregate(int64(1))
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), agg.Value())

	agg.Reset()
	assert.Equal(t, int64(0), agg.Value())
}
