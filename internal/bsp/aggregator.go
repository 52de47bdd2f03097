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
	"cmp"
	"fmt"
	"sync"
)

// Aggregator reduces values contributed by vertices during a superstep. The
// reduced value becomes visible to the master at the start of the next
// superstep and, after the master has had a chance to override it, to every
// vertex.
//
// Implementations must be safe for concurrent use.
type Aggregator interface {
	// Aggregate folds value into the current superstep's result.
	Aggregate(value any) error

	// Value returns the current result.
	Value() any

	// Reset restores the initial value.
	Reset()
}

// Reducer is an Aggregator over values of a single type.
type Reducer[T any] struct {
	mu      sync.Mutex
	initial T
	value   T
	reduce  func(a, b T) T
}

// NewReducer creates a reducer starting at initial.
func NewReducer[T any](initial T, reduce func(a, b T) T) *Reducer[T] {
	return &Reducer[T]{initial: initial, value: initial, reduce: reduce}
}

// Sum aggregates by addition.
func Sum[T cmp.Ordered]() *Reducer[T] {
	var zero T
	return NewReducer(zero, func(a, b T) T { return a + b })
}

// Min keeps the smallest value, starting at initial.
func Min[T cmp.Ordered](initial T) *Reducer[T] {
	return NewReducer(initial, func(a, b T) T { return min(a, b) })
}

// Max keeps the largest value, starting at initial.
func Max[T cmp.Ordered](initial T) *Reducer[T] {
	return NewReducer(initial, func(a, b T) T { return max(a, b) })
}

// Aggregate implements Aggregator.
func (r *Reducer[T]) Aggregate(value any) error {
	v, ok := value.(T)
	if !ok {
		var want T
		return fmt.Errorf("aggregator expects %T, got %T", want, value)
	}
	r.mu.Lock()
	r.value = r.reduce(r.value, v)
	r.mu.Unlock()
	return nil
}

// Value implements Aggregator.
func (r *Reducer[T]) Value() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Reset implements Aggregator.
func (r *Reducer[T]) Reset() {
	r.mu.Lock()
	r.value = r.initial
	r.mu.Unlock()
}
