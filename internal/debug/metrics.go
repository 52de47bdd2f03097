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
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts capture activity. A nil *Metrics records nothing.
type Metrics struct {
	invocationsTotal metric.Int64Counter
	capturesTotal    metric.Int64Counter
	eventsTotal      metric.Int64Counter
	violationsTotal  metric.Int64Counter
	failuresTotal    metric.Int64Counter
}

// NewMetrics registers the graft instruments with the given meter provider.
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	meter := meterProvider.Meter("github.com/tombee/graft/internal/debug")

	m := &Metrics{}
	var err error

	m.invocationsTotal, err = meter.Int64Counter(
		"graft_compute_invocations_total",
		metric.WithDescription("Total number of compute invocations seen by the interceptor"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, err
	}

	m.capturesTotal, err = meter.Int64Counter(
		"graft_captures_total",
		metric.WithDescription("Total number of compute invocations selected for capture"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, err
	}

	m.eventsTotal, err = meter.Int64Counter(
		"graft_capture_events_total",
		metric.WithDescription("Total number of capture events emitted"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	m.violationsTotal, err = meter.Int64Counter(
		"graft_constraint_violations_total",
		metric.WithDescription("Total number of constraint violations detected"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, err
	}

	m.failuresTotal, err = meter.Int64Counter(
		"graft_compute_failures_total",
		metric.WithDescription("Total number of compute invocations that failed"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) recordInvocation(ctx context.Context, kind Kind, captured bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", string(kind)))
	m.invocationsTotal.Add(ctx, 1, attrs)
	if captured {
		m.capturesTotal.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) recordEvent(ctx context.Context, event *Event) {
	if m == nil {
		return
	}
	m.eventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", string(event.Type)),
		attribute.String("kind", string(event.Kind)),
	))
	switch {
	case event.Violation != nil:
		m.violationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("constraint", string(event.Violation.Kind)),
		))
	case event.Failure != nil:
		m.failuresTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(event.Kind)),
			attribute.Bool("captured", event.Captured),
			attribute.Bool("panicked", event.Failure.Panicked),
		))
	}
}
