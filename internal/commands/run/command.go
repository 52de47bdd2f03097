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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/graft/internal/commands/completion"
	"github.com/tombee/graft/internal/commands/shared"
	"github.com/tombee/graft/pkg/graph"
)

type options struct {
	source          string
	maxSupersteps   int64
	workers         int
	outDir          string
	trace           bool
	sampleRate      float64
	otlpEndpoint    string
	otlpHeaders     map[string]string
	metricsAddr     string
	eventBuffer     int
	failOnViolation bool
	debug           shared.DebugFlags
}

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "run <graph>",
		Short: "Run single-source shortest paths with debugging",
		Long: `Run computes shortest path distances from --source over a weighted
adjacency list, one vertex per line:

  id neighbor1 weight1 neighbor2 weight2 ...

Invocations selected by the debug flags are captured. With --out every
captured event is written as a YAML scenario file below the directory.
Constraint violations are logged and counted; --fail-on-violation turns
them into a non-zero exit.

Events are persisted off the compute path through a buffer of
--event-buffer events; when it is full, events are dropped and counted.

Observability:
  --trace                   Print a span per captured invocation to stderr
  --otlp-endpoint URL       Export spans to an OTLP/HTTP receiver
  --trace-sample-rate RATE  Fraction of captured invocations that get a span
  --metrics-addr ADDR       Serve Prometheus metrics while the job runs`,
		Example: `  graft run graph.txt --source 1 --vertices 3:4 --out scenarios/
  graft run graph.txt --source 1 --debug-all --supersteps 0:1
  graft run graph.txt --source 1 --message-constraint 'message >= 0' --fail-on-violation
  graft run graph.txt --source 1 --debug-all --otlp-endpoint http://localhost:4318`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.sampleRate < 0 || opts.sampleRate > 1 {
				return shared.NewInvalidConfigError(fmt.Sprintf("--trace-sample-rate must be between 0 and 1, got %g", opts.sampleRate), nil)
			}
			if opts.eventBuffer < 1 {
				return shared.NewInvalidConfigError(fmt.Sprintf("--event-buffer must be positive, got %d", opts.eventBuffer), nil)
			}
			debugOpts, err := opts.debug.Options(cmd.Flags())
			if err != nil {
				return shared.NewInvalidConfigError("invalid debugger configuration", err)
			}
			idType, err := opts.debug.ParsedIDType()
			if err != nil {
				return shared.NewInvalidConfigError("invalid id type", err)
			}

			switch idType {
			case graph.IDTypeInt32:
				return execute(cmd, args[0], graph.ParseInt32ID, debugOpts, opts)
			case graph.IDTypeString:
				return execute(cmd, args[0], graph.ParseStringID, debugOpts, opts)
			default:
				return execute(cmd, args[0], graph.ParseInt64ID, debugOpts, opts)
			}
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "", "Source vertex id (required)")
	cmd.Flags().Int64Var(&opts.maxSupersteps, "max-supersteps", 0, "Halt after this many supersteps (0: until converged)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Vertices computed in parallel (0: GOMAXPROCS)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Directory for scenario files")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print spans of captured invocations to stderr")
	cmd.Flags().Float64Var(&opts.sampleRate, "trace-sample-rate", 1.0, "Fraction of captured invocations to trace (0-1)")
	cmd.Flags().StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP receiver base URL for spans")
	cmd.Flags().StringToStringVar(&opts.otlpHeaders, "otlp-header", nil, "Extra OTLP request headers, e.g. Authorization=Bearer...")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().IntVar(&opts.eventBuffer, "event-buffer", 4096, "Capture events buffered ahead of the log and scenario writers")
	cmd.Flags().BoolVar(&opts.failOnViolation, "fail-on-violation", false, "Exit non-zero when a constraint is violated")
	opts.debug.Register(cmd.Flags())
	completion.RegisterDebugFlags(cmd)
	_ = cmd.MarkFlagRequired("source")

	return cmd
}
