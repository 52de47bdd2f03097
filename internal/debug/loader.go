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
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	grafterrors "github.com/tombee/graft/pkg/errors"
	"github.com/tombee/graft/pkg/graph"
)

// Flag keys read from a job configuration.
const (
	FlagPrefix                = "graft.debugger."
	FlagVerticesToDebug       = FlagPrefix + "verticesToDebug"
	FlagDebugNeighbors        = FlagPrefix + "debugNeighbors"
	FlagSuperstepsToDebug     = FlagPrefix + "superstepsToDebug"
	FlagDebugAllVertices      = FlagPrefix + "debugAllVertices"
	FlagCatchExceptions       = FlagPrefix + "catchExceptions"
	FlagMessageConstraint     = FlagPrefix + "messageConstraint"
	FlagVertexValueConstraint = FlagPrefix + "vertexValueConstraint"
)

// ListDelimiter separates elements of the vertex and superstep flag values.
// Both lists use it; an empty element is rejected so a stray delimiter cannot
// silently change the scope.
const ListDelimiter = ":"

// Options is the raw debug configuration before vertex ids are typed.
type Options struct {
	// Vertices holds the textual vertex ids to debug. Nil means no explicit
	// set; an empty non-nil list is rejected.
	Vertices []string `yaml:"vertices,omitempty" validate:"dive,required"`

	// Supersteps holds the supersteps to debug. Nil means all supersteps.
	Supersteps []int64 `yaml:"supersteps,omitempty" validate:"dive,gte=0"`

	// DebugNeighbors also debugs vertices pointing at a listed vertex.
	DebugNeighbors bool `yaml:"debug_neighbors"`

	// DebugAllVertices debugs every vertex.
	DebugAllVertices bool `yaml:"debug_all_vertices"`

	// CatchExceptions captures failures from vertices outside the scope.
	// Default: true
	CatchExceptions *bool `yaml:"catch_exceptions,omitempty"`

	// MessageConstraint is an expression over src, dst and message.
	MessageConstraint string `yaml:"message_constraint,omitempty"`

	// VertexValueConstraint is an expression over id and value.
	VertexValueConstraint string `yaml:"vertex_value_constraint,omitempty"`
}

var knownFlags = map[string]bool{
	FlagVerticesToDebug:       true,
	FlagDebugNeighbors:        true,
	FlagSuperstepsToDebug:     true,
	FlagDebugAllVertices:      true,
	FlagCatchExceptions:       true,
	FlagMessageConstraint:     true,
	FlagVertexValueConstraint: true,
}

// FlagNames returns the recognised flag keys, sorted.
func FlagNames() []string {
	return slices.Sorted(maps.Keys(knownFlags))
}

// ParseFlags reads Options from flag-style key/value pairs. Absent keys keep
// their defaults; keys outside FlagPrefix are ignored.
func ParseFlags(flags map[string]string) (Options, error) {
	var opts Options

	for key := range flags {
		if strings.HasPrefix(key, FlagPrefix) && !knownFlags[key] {
			return Options{}, &grafterrors.ConfigError{Key: key, Value: flags[key], Reason: "unknown debugger flag"}
		}
	}

	if raw, ok := flags[FlagVerticesToDebug]; ok {
		tokens, err := splitList(FlagVerticesToDebug, raw)
		if err != nil {
			return Options{}, err
		}
		opts.Vertices = tokens
	}

	if raw, ok := flags[FlagSuperstepsToDebug]; ok {
		tokens, err := splitList(FlagSuperstepsToDebug, raw)
		if err != nil {
			return Options{}, err
		}
		opts.Supersteps = make([]int64, 0, len(tokens))
		for _, tok := range tokens {
			s, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return Options{}, superstepError(raw, tok, "not an integer superstep", err)
			}
			if s < 0 {
				return Options{}, superstepError(raw, tok, "supersteps must be non-negative", nil)
			}
			opts.Supersteps = append(opts.Supersteps, s)
		}
	}

	var err error
	if opts.DebugNeighbors, err = parseBool(flags, FlagDebugNeighbors); err != nil {
		return Options{}, err
	}
	if opts.DebugAllVertices, err = parseBool(flags, FlagDebugAllVertices); err != nil {
		return Options{}, err
	}
	if _, ok := flags[FlagCatchExceptions]; ok {
		catch, err := parseBool(flags, FlagCatchExceptions)
		if err != nil {
			return Options{}, err
		}
		opts.CatchExceptions = &catch
	}

	opts.MessageConstraint = strings.TrimSpace(flags[FlagMessageConstraint])
	opts.VertexValueConstraint = strings.TrimSpace(flags[FlagVertexValueConstraint])

	return opts, nil
}

// LoadFile reads Options from a YAML file. Lists are native YAML sequences,
// so no delimiter is involved.
func LoadFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, &grafterrors.ConfigError{Reason: fmt.Sprintf("failed to read %s", path), Cause: err}
	}

	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, &grafterrors.ConfigError{Reason: fmt.Sprintf("failed to parse %s", path), Cause: err}
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// SaveFile validates opts and writes them to path as YAML. The file is
// written to a temporary sibling and renamed, so readers never see a partial
// configuration.
func SaveFile(path string, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".graft-debug-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	encoder := yaml.NewEncoder(tmpFile)
	encoder.SetIndent(2)
	if err := encoder.Encode(opts); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to encode debug options: %w", err)
	}
	if err := encoder.Close(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to flush debug options: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural rules that do not depend on the id type.
func (o Options) Validate() error {
	if o.Vertices != nil && len(o.Vertices) == 0 {
		return &grafterrors.ConfigError{Key: FlagVerticesToDebug, Reason: "vertex list is empty"}
	}
	if o.Supersteps != nil && len(o.Supersteps) == 0 {
		return superstepError("", "", "superstep list is empty", nil)
	}

	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &grafterrors.ConfigError{Reason: "invalid debug options", Cause: err}
	}
	fe := fieldErrs[0]
	switch field := fe.StructField(); {
	case strings.HasPrefix(field, "Supersteps"):
		return superstepError(joinList(o.Supersteps), fmt.Sprint(fe.Value()), "supersteps must be non-negative", nil)
	case strings.HasPrefix(field, "Vertices"):
		return &grafterrors.ConfigError{
			Key:    FlagVerticesToDebug,
			Value:  strings.Join(o.Vertices, ListDelimiter),
			Reason: "vertex ids must be non-empty",
		}
	default:
		return &grafterrors.ConfigError{Reason: fmt.Sprintf("invalid %s", fe.Field()), Cause: err}
	}
}

// Load types the options with parseID and builds the immutable Config.
// Constraint expressions in opts are combined with the given constraints;
// an item must satisfy both.
//
// Vertex ids are parsed even when DebugAllVertices is set, so a bad id fails
// the job instead of lying dormant. On error nothing is returned.
func Load[I comparable, V, E, M any](opts Options, parseID graph.IDParser[I], constraints Constraints[I, V, M]) (*Config[I, V, E, M], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	scope := Scope[I]{
		Supersteps:       opts.Supersteps,
		DebugAllVertices: opts.DebugAllVertices,
		IncludeNeighbors: opts.DebugNeighbors,
	}
	if opts.CatchExceptions != nil {
		scope.IgnoreExceptions = !*opts.CatchExceptions
	}

	if opts.Vertices != nil {
		ids := make([]I, 0, len(opts.Vertices))
		for _, tok := range opts.Vertices {
			id, err := parseID(tok)
			if err != nil {
				return nil, &grafterrors.ConfigError{
					Key:    FlagVerticesToDebug,
					Value:  strings.Join(opts.Vertices, ListDelimiter),
					Token:  tok,
					Reason: "does not parse as the computation's vertex id type",
					Cause:  err,
				}
			}
			ids = append(ids, id)
		}
		scope.Vertices = ids
	}

	if opts.MessageConstraint != "" {
		fn, err := MessageExpr[I, M](opts.MessageConstraint)
		if err != nil {
			return nil, &grafterrors.ConfigError{Key: FlagMessageConstraint, Value: opts.MessageConstraint, Reason: "invalid expression", Cause: err}
		}
		constraints = constraints.And(Constraints[I, V, M]{MessageCorrect: fn})
	}
	if opts.VertexValueConstraint != "" {
		fn, err := VertexValueExpr[I, V](opts.VertexValueConstraint)
		if err != nil {
			return nil, &grafterrors.ConfigError{Key: FlagVertexValueConstraint, Value: opts.VertexValueConstraint, Reason: "invalid expression", Cause: err}
		}
		constraints = constraints.And(Constraints[I, V, M]{VertexValueCorrect: fn})
	}

	return New[I, V, E](scope, constraints)
}

func splitList(key, raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &grafterrors.ConfigError{Key: key, Value: raw, Reason: "list is empty"}
	}
	parts := strings.Split(raw, ListDelimiter)
	tokens := make([]string, 0, len(parts))
	for i, p := range parts {
		tok := strings.TrimSpace(p)
		if tok == "" {
			return nil, &grafterrors.ConfigError{
				Key:    key,
				Value:  raw,
				Reason: fmt.Sprintf("element %d is empty", i+1),
			}
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func parseBool(flags map[string]string, key string) (bool, error) {
	raw, ok := flags[key]
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, &grafterrors.ConfigError{Key: key, Value: raw, Reason: "expected true or false", Cause: err}
	}
	return b, nil
}

func superstepError(value, token, reason string, cause error) error {
	return &grafterrors.ConfigError{
		Key:    FlagSuperstepsToDebug,
		Value:  value,
		Token:  token,
		Reason: reason,
		Cause:  cause,
	}
}

func joinList(steps []int64) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = strconv.FormatInt(s, 10)
	}
	return strings.Join(parts, ListDelimiter)
}
