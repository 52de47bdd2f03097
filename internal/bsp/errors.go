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

import "fmt"

// ComputeError is a failed vertex or master computation.
type ComputeError struct {
	Superstep int64
	VertexID  any
	Master    bool

	// Err is the returned error, or a description of the panic.
	Err error

	// Panic is the recovered value when the computation panicked.
	Panic any
}

// Error implements the error interface.
func (e *ComputeError) Error() string {
	if e.Master {
		return fmt.Sprintf("master compute failed in superstep %d: %v", e.Superstep, e.Err)
	}
	return fmt.Sprintf("compute of vertex %v failed in superstep %d: %v", e.VertexID, e.Superstep, e.Err)
}

// Unwrap returns the underlying error.
func (e *ComputeError) Unwrap() error {
	return e.Err
}
