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

package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/graft/internal/algorithms"
	"github.com/tombee/graft/internal/bsp"
	"github.com/tombee/graft/internal/commands/shared"
	"github.com/tombee/graft/internal/debug"
	graftlog "github.com/tombee/graft/internal/log"
	"github.com/tombee/graft/internal/scenario"
	"github.com/tombee/graft/internal/tracing"
	"github.com/tombee/graft/pkg/graph"
)

// Result is the JSON output of the run command.
type Result struct {
	shared.JSONResponse
	JobID     string     `json:"job_id"`
	Stats     bsp.Stats  `json:"stats"`
	Scenarios string     `json:"scenarios,omitempty"`
	Events    int64      `json:"events"`
	Written   int        `json:"written_events,omitempty"`
	Dropped   int64      `json:"dropped_events"`
	Distances []Distance `json:"distances"`
}

// Distance is the result of one vertex. Unreached vertices have no distance.
type Distance struct {
	ID       string   `json:"id"`
	Distance *float64 `json:"distance"`
}

func execute[I comparable](cmd *cobra.Command, path string, parseID graph.IDParser[I], debugOpts debug.Options, opts options) error {
	logger := shared.Logger(cmd.ErrOrStderr())

	g, err := shared.LoadGraph(path, parseID)
	if err != nil {
		return err
	}
	source, err := parseID(opts.source)
	if err != nil {
		return shared.NewInvalidConfigError("invalid source vertex", err)
	}
	if _, ok := g.Vertex(source); !ok {
		return shared.NewInvalidConfigError(fmt.Sprintf("source vertex %s is not in the graph", opts.source), nil)
	}

	cfg, err := debug.Load[I, float64, float64, float64](debugOpts, parseID, debug.Constraints[I, float64, float64]{})
	if err != nil {
		return shared.NewInvalidConfigError("invalid debugger configuration", err)
	}
	logger.Debug("Loaded debugger configuration", slog.String("config", cfg.String()))

	var events atomic.Int64
	counter := debug.SinkFunc(func(context.Context, *debug.Event) { events.Add(1) })
	persisted := []debug.Sink{debug.LogSink(logger, slog.LevelDebug)}

	var writer *scenario.Writer
	if opts.outDir != "" {
		writer, err = scenario.NewWriter(opts.outDir, logger)
		if err != nil {
			return shared.NewExecutionError("failed to prepare scenario directory", err)
		}
		persisted = append(persisted, writer)
	}
	async := debug.NewAsyncSink(debug.Fanout(persisted...), opts.eventBuffer, logger)

	icOpts := []debug.Option{debug.WithLogger(logger)}
	if opts.trace || opts.otlpEndpoint != "" || opts.metricsAddr != "" {
		provider, stop, err := startTelemetry(cmd, logger, opts)
		if err != nil {
			async.Close()
			return shared.NewExecutionError("failed to start telemetry", err)
		}
		defer stop()

		metrics, err := debug.NewMetrics(provider.MeterProvider())
		if err != nil {
			async.Close()
			return shared.NewExecutionError("failed to create metrics", err)
		}
		icOpts = append(icOpts, debug.WithMetrics(metrics), debug.WithTracer(provider.Tracer("graft/debug")))
	}

	ic := debug.NewInterceptor(cfg, debug.Fanout(counter, async), icOpts...)
	jobLogger := graftlog.WithJob(logger, ic.JobID())

	engine, err := bsp.New(bsp.Job[I, float64, float64, float64]{
		Graph:       g,
		Compute:     algorithms.ShortestPaths[I]{Source: source},
		Master:      algorithms.ShortestPathsMaster{MaxSupersteps: opts.maxSupersteps},
		Interceptor: ic,
		Aggregators: algorithms.NewShortestPathsAggregators(),
	}, bsp.WithWorkers(opts.workers), bsp.WithLogger(jobLogger))
	if err != nil {
		async.Close()
		return shared.NewExecutionError("failed to create job", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	stats, runErr := engine.Run(ctx)
	async.Close()
	if dropped := async.Dropped(); dropped > 0 {
		logger.Warn("Capture events were dropped; raise --event-buffer", slog.Int64("dropped", dropped))
	}
	if writer != nil {
		if err := writer.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("failed to write scenarios: %w", err)
		}
	}
	if runErr != nil {
		return shared.NewExecutionError("job failed", runErr)
	}

	result := Result{
		JSONResponse: shared.NewJSONResponse("run"),
		JobID:        ic.JobID(),
		Stats:        stats,
		Events:       events.Load(),
		Dropped:      async.Dropped(),
		Distances:    distances(g),
	}
	if writer != nil {
		result.Scenarios = writer.Dir()
		result.Written = writer.Count()
	}

	if shared.GetJSON() {
		if err := shared.EmitJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else if !shared.GetQuiet() {
		printResult(cmd, result)
	}

	if opts.failOnViolation && stats.Violations > 0 {
		return shared.NewExecutionError(fmt.Sprintf("%d constraint violation(s)", stats.Violations), nil)
	}
	return nil
}

func distances[I comparable](g *graph.Graph[I, float64, float64]) []Distance {
	out := make([]Distance, 0, g.Len())
	for _, v := range g.Vertices() {
		d := Distance{ID: fmt.Sprint(v.ID())}
		if value := v.Value(); !math.IsInf(value, 1) {
			d.Distance = &value
		}
		out = append(out, d)
	}
	return out
}

func printResult(cmd *cobra.Command, r Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %s finished (%s) after %d superstep(s)\n", r.JobID, r.Stats.Reason, r.Stats.Supersteps)
	fmt.Fprintf(out, "  messages:   %d\n", r.Stats.Messages)
	fmt.Fprintf(out, "  violations: %d\n", r.Stats.Violations)
	fmt.Fprintf(out, "  events:     %d\n", r.Events)
	if r.Dropped > 0 {
		fmt.Fprintf(out, "  dropped:    %d\n", r.Dropped)
	}
	if r.Scenarios != "" {
		fmt.Fprintf(out, "  scenarios:  %s (%d events)\n", r.Scenarios, r.Written)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERTEX\tDISTANCE")
	for _, d := range r.Distances {
		dist := "unreachable"
		if d.Distance != nil {
			dist = fmt.Sprintf("%g", *d.Distance)
		}
		fmt.Fprintf(w, "%s\t%s\n", d.ID, dist)
	}
	w.Flush()
}

func startTelemetry(cmd *cobra.Command, logger *slog.Logger, opts options) (*tracing.Provider, func(), error) {
	cfg := tracing.Config{ServiceVersion: shared.Build().Version, SampleRate: &opts.sampleRate}
	if opts.trace {
		cfg.TraceOutput = cmd.ErrOrStderr()
	}
	if opts.otlpEndpoint != "" {
		cfg.Exporters = append(cfg.Exporters, tracing.ExporterConfig{
			Endpoint: opts.otlpEndpoint,
			Headers:  opts.otlpHeaders,
			Timeout:  10 * time.Second,
		})
	}
	provider, err := tracing.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	var srv *http.Server
	if opts.metricsAddr != "" {
		ln, err := net.Listen("tcp", opts.metricsAddr)
		if err != nil {
			_ = provider.Shutdown(context.Background())
			return nil, nil, fmt.Errorf("failed to listen on %s: %w", opts.metricsAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", provider.MetricsHandler())
		srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", slog.Any("error", err))
			}
		}()
		logger.Info("Serving metrics", slog.String("addr", ln.Addr().String()))
	}

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if srv != nil {
			_ = srv.Shutdown(ctx)
		}
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shut down telemetry", slog.Any("error", err))
		}
	}
	return provider, stop, nil
}
