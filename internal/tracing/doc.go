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

/*
Package tracing wires OpenTelemetry for graft jobs.

A Provider owns a tracer provider and a meter provider. Spans go to an
optional stdout exporter, which is how a single debugging run is inspected;
metrics are exported through a private Prometheus registry so several
providers can coexist in one process.

	p, err := tracing.New(tracing.Config{
	    ServiceName: "graft",
	    TraceOutput: os.Stderr,
	})
	if err != nil {
	    return err
	}
	defer p.Shutdown(ctx)

	metrics, err := debug.NewMetrics(p.MeterProvider())
	ic := debug.NewInterceptor(cfg, sink,
	    debug.WithTracer(p.Tracer("graft/debug")),
	    debug.WithMetrics(metrics))

	http.Handle("/metrics", p.MetricsHandler())
*/
package tracing
