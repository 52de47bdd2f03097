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

// Package algorithms contains vertex programs for the bsp engine.
package algorithms

import (
	"context"
	"math"

	"github.com/tombee/graft/internal/bsp"
)

// UpdatedAggregator counts vertices whose distance shrank in a superstep.
const UpdatedAggregator = "updated"

// ShortestPaths computes single-source shortest path distances over
// non-negative edge weights. Unreached vertices keep +Inf.
type ShortestPaths[I comparable] struct {
	Source I
}

// Compute implements bsp.Computation.
func (sp ShortestPaths[I]) Compute(_ context.Context, vc *bsp.VertexContext[I, float64, float64, float64], messages []float64) error {
	if vc.Superstep() == 0 {
		vc.SetValue(math.Inf(1))
	}

	dist := math.Inf(1)
	if vc.ID() == sp.Source {
		dist = 0
	}
	for _, m := range messages {
		dist = min(dist, m)
	}

	if dist < vc.Value() {
		vc.SetValue(dist)
		for _, e := range vc.Edges() {
			vc.SendMessage(e.Target, dist+e.Value)
		}
		if err := vc.Aggregate(UpdatedAggregator, int64(1)); err != nil {
			return err
		}
	}
	vc.VoteToHalt()
	return nil
}

// NewShortestPathsAggregators returns the aggregators ShortestPaths writes.
func NewShortestPathsAggregators() map[string]bsp.Aggregator {
	return map[string]bsp.Aggregator{UpdatedAggregator: bsp.Sum[int64]()}
}

// ShortestPathsMaster halts the job once a superstep updates no vertex, or
// after MaxSupersteps when it is positive.
type ShortestPathsMaster struct {
	MaxSupersteps int64
}

// Compute implements bsp.MasterComputation.
func (m ShortestPathsMaster) Compute(_ context.Context, mc *bsp.MasterContext) error {
	if m.MaxSupersteps > 0 && mc.Superstep() >= m.MaxSupersteps {
		mc.HaltComputation()
		return nil
	}
	if updated, ok := mc.Aggregated(UpdatedAggregator).(int64); ok && mc.Superstep() > 0 && updated == 0 {
		mc.HaltComputation()
	}
	return nil
}
