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

package tracing

import (
	"io"
	"time"
)

// Config holds observability configuration.
type Config struct {
	// ServiceName identifies this process in traces and metrics.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// TraceOutput receives pretty-printed spans. Nil disables span export;
	// spans are still created so sampling and context propagation behave
	// the same.
	TraceOutput io.Writer

	// SampleRate is the fraction of root traces to record (0.0 - 1.0).
	// Nil records every trace.
	SampleRate *float64

	// Exporters lists OTLP/HTTP receivers that spans are batched to.
	Exporters []ExporterConfig
}

// ExporterConfig defines an OTLP/HTTP export destination.
type ExporterConfig struct {
	// Endpoint is the receiver base URL, e.g. http://localhost:4318.
	// Spans are posted to its /v1/traces path.
	Endpoint string

	// Headers are sent with every export request.
	Headers map[string]string

	// Timeout bounds a single export. Zero uses the exporter default.
	Timeout time.Duration
}

// DefaultServiceName is used when Config.ServiceName is empty.
const DefaultServiceName = "graft"
