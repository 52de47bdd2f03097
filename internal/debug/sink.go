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
	"log/slog"
	"sync/atomic"

	graftlog "github.com/tombee/graft/internal/log"
)

// Sink consumes capture events. Emit is called synchronously from the compute
// invocation and must not block for long; persistence belongs behind a
// buffered sink.
type Sink interface {
	Emit(ctx context.Context, event *Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, event *Event)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, event *Event) { f(ctx, event) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, *Event) {})

// Fanout emits every event to each sink in order.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, event *Event) {
		for _, s := range sinks {
			s.Emit(ctx, event)
		}
	})
}

// ChannelSink forwards events to a buffered channel without blocking. When
// the buffer is full the event is dropped with a warning.
type ChannelSink struct {
	events  chan *Event
	logger  *slog.Logger
	dropped atomic.Int64
}

// NewChannelSink creates a channel sink with the given buffer size.
func NewChannelSink(buffer int, logger *slog.Logger) *ChannelSink {
	if logger == nil {
		logger = graftlog.Discard()
	}
	return &ChannelSink{
		events: make(chan *Event, buffer),
		logger: logger,
	}
}

// Emit implements Sink.
func (s *ChannelSink) Emit(_ context.Context, event *Event) {
	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
		s.logger.Warn("Capture event channel full, dropping event",
			slog.String(graftlog.EventKey, string(event.Type)),
			slog.Int64(graftlog.SuperstepKey, event.Superstep),
			slog.Any(graftlog.VertexIDKey, event.VertexID))
	}
}

// Events returns the receiving side of the channel.
func (s *ChannelSink) Events() <-chan *Event {
	return s.events
}

// Dropped returns the number of events dropped because the buffer was full.
func (s *ChannelSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close closes the channel. Emit must not be called afterwards.
func (s *ChannelSink) Close() {
	close(s.events)
}

// AsyncSink hands events to a single drain goroutine through a ChannelSink,
// so a slow downstream sink such as a file writer never runs inside a
// compute invocation. The downstream sink sees events one at a time in
// emission order and need not be safe for concurrent use.
type AsyncSink struct {
	ch   *ChannelSink
	done chan struct{}
}

// NewAsyncSink starts draining into sink. Close must be called to flush.
func NewAsyncSink(sink Sink, buffer int, logger *slog.Logger) *AsyncSink {
	a := &AsyncSink{
		ch:   NewChannelSink(buffer, logger),
		done: make(chan struct{}),
	}
	go func() {
		defer close(a.done)
		ctx := context.Background()
		for event := range a.ch.Events() {
			sink.Emit(ctx, event)
		}
	}()
	return a
}

// Emit implements Sink. It never blocks; see ChannelSink.
func (a *AsyncSink) Emit(ctx context.Context, event *Event) {
	a.ch.Emit(ctx, event)
}

// Dropped returns the number of events that never reached the downstream sink.
func (a *AsyncSink) Dropped() int64 {
	return a.ch.Dropped()
}

// Close stops accepting events and waits until every buffered event has
// been delivered. Emit must not be called afterwards.
func (a *AsyncSink) Close() {
	a.ch.Close()
	<-a.done
}

// LogSink writes a log line per event at the given level. Failures and
// violations are always logged at warn or above.
func LogSink(logger *slog.Logger, level slog.Level) Sink {
	return SinkFunc(func(ctx context.Context, event *Event) {
		lvl := level
		attrs := []slog.Attr{
			slog.String(graftlog.EventKey, string(event.Type)),
			slog.String("kind", string(event.Kind)),
			slog.Int64(graftlog.SuperstepKey, event.Superstep),
		}
		if event.VertexID != nil {
			attrs = append(attrs, slog.Any(graftlog.VertexIDKey, event.VertexID))
		}
		switch {
		case event.Failure != nil:
			lvl = max(lvl, slog.LevelWarn)
			attrs = append(attrs, slog.String("failure", event.Failure.String()))
		case event.Violation != nil:
			lvl = max(lvl, slog.LevelWarn)
			attrs = append(attrs, slog.String("violation", event.Violation.String()))
		}
		logger.LogAttrs(ctx, lvl, "Capture event", attrs...)
	})
}
