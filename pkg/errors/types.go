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

// Package errors defines the typed errors shared across graft.
package errors

import (
	"fmt"
	"reflect"
	"strings"
)

// ConfigError reports malformed or type-mismatched debug configuration.
// It is fatal to job startup: a silently empty debug scope would look exactly
// like a scope that was configured to capture nothing.
type ConfigError struct {
	// Key is the configuration flag that has the problem (e.g., "graft.debugger.verticesToDebug").
	Key string

	// Value is the raw value supplied for Key.
	Value string

	// Token is the offending element of Value, if a single element is at fault.
	Token string

	// Reason explains what's wrong with the configuration.
	Reason string

	// Cause is the underlying error (e.g., parse or read error).
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config error")
	if e.Key != "" {
		fmt.Fprintf(&b, " at %s", e.Key)
	}
	if e.Token != "" {
		fmt.Fprintf(&b, ": bad token %q", e.Token)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *ConfigError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ConfigError) UserMessage() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid debug configuration: %s", e.Reason)
	}
	if e.Token != "" {
		return fmt.Sprintf("invalid value %q for %s: cannot use %q (%s)", e.Value, e.Key, e.Token, e.Reason)
	}
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Key, e.Reason)
}

// Suggestion implements UserVisibleError.
func (e *ConfigError) Suggestion() string {
	if e.Key == "" {
		return ""
	}
	return fmt.Sprintf("fix or remove %s; list elements are separated by ':'", e.Key)
}

// ComputationFailure describes an error or panic raised by a wrapped compute
// invocation. It is a descriptor for capture events, not an error that is
// returned in place of the original.
type ComputationFailure struct {
	// Message is the error text or the formatted panic value.
	Message string `yaml:"message" json:"message"`

	// Type is the Go type of the error or panic value.
	Type string `yaml:"type" json:"type"`

	// Panicked is true when compute panicked rather than returning an error.
	Panicked bool `yaml:"panicked,omitempty" json:"panicked,omitempty"`
}

// DescribeError builds a ComputationFailure for a returned error.
func DescribeError(err error) ComputationFailure {
	if err == nil {
		return ComputationFailure{}
	}
	return ComputationFailure{
		Message: err.Error(),
		Type:    reflect.TypeOf(err).String(),
	}
}

// DescribePanic builds a ComputationFailure for a recovered panic value.
func DescribePanic(v any) ComputationFailure {
	f := ComputationFailure{Panicked: true, Type: fmt.Sprintf("%T", v)}
	if err, ok := v.(error); ok {
		f.Message = err.Error()
	} else {
		f.Message = fmt.Sprint(v)
	}
	return f
}

// DescribeGoexit builds a ComputationFailure for a compute that called
// runtime.Goexit.
func DescribeGoexit() ComputationFailure {
	return ComputationFailure{Message: "goroutine exited before compute returned", Type: "runtime.Goexit"}
}

// String implements fmt.Stringer.
func (f ComputationFailure) String() string {
	if f.Panicked {
		return fmt.Sprintf("panic (%s): %s", f.Type, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Type, f.Message)
}
