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

// Package scenario persists capture events as YAML scenario files, one file
// per captured invocation, so a failing vertex can be inspected or replayed
// after the job has finished.
//
// Layout:
//
//	<dir>/superstep-000003/vertex-42.yaml
//	<dir>/superstep-000003/master.yaml
//	<dir>/violations.yaml
//
// Each file is a YAML document stream in emission order.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tombee/graft/internal/debug"
	graftlog "github.com/tombee/graft/internal/log"
)

const (
	dirPerm  = 0750
	filePerm = 0600

	// ViolationsFile collects every constraint violation of a job.
	ViolationsFile = "violations.yaml"
)

// Writer is a debug.Sink that appends events to scenario files.
//
// Emit cannot fail; the first write error is kept and returned by Err and
// Close, and later events are still attempted.
type Writer struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	err   error
	count int
}

// NewWriter creates a writer rooted at dir, creating it if needed.
func NewWriter(dir string, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	if logger == nil {
		logger = graftlog.Discard()
	}
	return &Writer{dir: dir, logger: graftlog.WithComponent(logger, "scenario")}, nil
}

// Dir returns the root directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Emit implements debug.Sink.
func (w *Writer) Emit(_ context.Context, event *debug.Event) {
	path := filepath.Join(w.dir, Path(event))

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := appendDocument(path, event); err != nil {
		w.logger.Error("Failed to write scenario",
			slog.String("path", path),
			slog.String(graftlog.EventKey, string(event.Type)),
			slog.Any("error", err))
		if w.err == nil {
			w.err = err
		}
		return
	}
	w.count++
}

// Count returns the number of events written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close reports the first write error. Files are not held open between
// events, so there is nothing else to release.
func (w *Writer) Close() error {
	return w.Err()
}

// Path returns the file of event relative to the scenario root.
func Path(event *debug.Event) string {
	if event.Type == debug.EventConstraintViolation {
		return ViolationsFile
	}
	step := fmt.Sprintf("superstep-%06d", event.Superstep)
	if event.Kind == debug.KindMaster {
		return filepath.Join(step, "master.yaml")
	}
	return filepath.Join(step, "vertex-"+url.PathEscape(fmt.Sprint(event.VertexID))+".yaml")
}

func appendDocument(path string, event *debug.Event) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open scenario file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat scenario file: %w", err)
	}
	if info.Size() > 0 {
		if _, err := io.WriteString(f, "---\n"); err != nil {
			f.Close()
			return fmt.Errorf("failed to write document separator: %w", err)
		}
	}

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(event); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := encoder.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush event: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close scenario file: %w", err)
	}
	return nil
}

// Load reads every event of one scenario file.
func Load(path string) ([]debug.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()

	var events []debug.Event
	decoder := yaml.NewDecoder(f)
	for {
		var event debug.Event
		err := decoder.Decode(&event)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode scenario %s: %w", path, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// LoadDir reads every scenario below dir, ordered by file path and then
// emission order.
func LoadDir(dir string) ([]debug.Event, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".yaml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk scenarios: %w", err)
	}
	slices.Sort(paths)

	var events []debug.Event
	for _, p := range paths {
		loaded, err := Load(p)
		if err != nil {
			return nil, err
		}
		events = append(events, loaded...)
	}
	return events, nil
}
