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
	"fmt"
	"time"

	grafterrors "github.com/tombee/graft/pkg/errors"
)

// EventType represents the type of capture event.
type EventType string

const (
	// EventComputeBegin is emitted before a captured compute runs.
	EventComputeBegin EventType = "compute_begin"

	// EventComputeEnd is emitted after a captured compute returns normally.
	EventComputeEnd EventType = "compute_end"

	// EventComputeException is emitted when compute returns an error or panics.
	EventComputeException EventType = "compute_exception"

	// EventConstraintViolation is emitted when a message or vertex value
	// fails its constraint.
	EventConstraintViolation EventType = "constraint_violation"
)

// Kind distinguishes vertex-level from master-level computation.
type Kind string

const (
	// KindVertex is a per-vertex compute invocation.
	KindVertex Kind = "vertex"

	// KindMaster is the once-per-superstep master compute.
	KindMaster Kind = "master"
)

// Snapshot is a copy of the state observed around a compute invocation.
// Fields that do not apply to the invocation kind are left empty.
type Snapshot struct {
	// Value is the vertex value.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Edges are the outgoing edges of the vertex.
	Edges any `yaml:"edges,omitempty" json:"edges,omitempty"`

	// Incoming are the messages delivered to the vertex this superstep.
	Incoming any `yaml:"incoming,omitempty" json:"incoming,omitempty"`

	// Sent are the messages sent by the invocation.
	Sent any `yaml:"sent,omitempty" json:"sent,omitempty"`

	// Aggregators is the master-level aggregator state.
	Aggregators map[string]any `yaml:"aggregators,omitempty" json:"aggregators,omitempty"`
}

// ViolationKind names the constraint that was violated.
type ViolationKind string

const (
	// ViolationMessage is a failed message constraint.
	ViolationMessage ViolationKind = "message"

	// ViolationVertexValue is a failed vertex value constraint.
	ViolationVertexValue ViolationKind = "vertex_value"
)

// ConstraintViolation records an item that failed a correctness predicate.
// It is reported as data; whether the job continues is up to the host.
type ConstraintViolation struct {
	Kind      ViolationKind `yaml:"kind" json:"kind"`
	Superstep int64         `yaml:"superstep" json:"superstep"`

	// VertexID is the vertex whose value was rejected, or the message source.
	VertexID any `yaml:"vertex_id" json:"vertex_id"`

	// DstID is the message destination. Empty for vertex values.
	DstID any `yaml:"dst_id,omitempty" json:"dst_id,omitempty"`

	// Entity is the offending message payload or vertex value.
	Entity any `yaml:"entity" json:"entity"`
}

// String implements fmt.Stringer.
func (v ConstraintViolation) String() string {
	if v.Kind == ViolationMessage {
		return fmt.Sprintf("superstep %d: message %v->%v violates constraint: %v", v.Superstep, v.VertexID, v.DstID, v.Entity)
	}
	return fmt.Sprintf("superstep %d: value of vertex %v violates constraint: %v", v.Superstep, v.VertexID, v.Entity)
}

// Event is a capture record emitted around a compute invocation or on a
// constraint violation.
type Event struct {
	// ID uniquely identifies the event.
	ID string `yaml:"id" json:"id"`

	// JobID identifies the job that emitted the event.
	JobID string `yaml:"job_id,omitempty" json:"job_id,omitempty"`

	// Type is the type of event.
	Type EventType `yaml:"type" json:"type"`

	// Kind is vertex or master.
	Kind Kind `yaml:"kind" json:"kind"`

	// Superstep is the superstep of the invocation.
	Superstep int64 `yaml:"superstep" json:"superstep"`

	// VertexID is the vertex id. Empty for master events.
	VertexID any `yaml:"vertex_id,omitempty" json:"vertex_id,omitempty"`

	// Captured is false for exception events of invocations outside the
	// debug scope, which have no matching begin event.
	Captured bool `yaml:"captured" json:"captured"`

	// Snapshot is the state at this point.
	Snapshot *Snapshot `yaml:"snapshot,omitempty" json:"snapshot,omitempty"`

	// Failure describes the error or panic of an exception event.
	Failure *grafterrors.ComputationFailure `yaml:"failure,omitempty" json:"failure,omitempty"`

	// Violation is set on constraint violation events.
	Violation *ConstraintViolation `yaml:"violation,omitempty" json:"violation,omitempty"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`

	// Message is an optional human-readable message.
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}
