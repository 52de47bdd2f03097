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

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Constraints holds the optional correctness predicates of a job. A nil
// predicate accepts everything and costs nothing per item.
//
// Predicates must be pure: they may be called concurrently, repeatedly or
// speculatively, and must not mutate their arguments.
type Constraints[I comparable, V, M any] struct {
	// MessageCorrect reports whether a message from src to dst is legal.
	MessageCorrect func(src, dst I, message M) bool

	// VertexValueCorrect reports whether a vertex value is legal.
	VertexValueCorrect func(id I, value V) bool
}

// And returns constraints that accept an item only when both c and other do.
func (c Constraints[I, V, M]) And(other Constraints[I, V, M]) Constraints[I, V, M] {
	return Constraints[I, V, M]{
		MessageCorrect:     andMessage(c.MessageCorrect, other.MessageCorrect),
		VertexValueCorrect: andValue(c.VertexValueCorrect, other.VertexValueCorrect),
	}
}

func andMessage[I comparable, M any](a, b func(I, I, M) bool) func(I, I, M) bool {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(src, dst I, m M) bool { return a(src, dst, m) && b(src, dst, m) }
}

func andValue[I comparable, V any](a, b func(I, V) bool) func(I, V) bool {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(id I, v V) bool { return a(id, v) && b(id, v) }
}

// MessageExpr compiles an expression over src, dst and message into a
// message predicate, for example `message >= 0 && src != dst`.
//
// The program is compiled once; evaluation never mutates shared state. An
// expression that fails at run time (say, a type mismatch) counts as a
// violation.
func MessageExpr[I comparable, M any](source string) (func(src, dst I, message M) bool, error) {
	program, err := compileConstraint(source, "src", "dst", "message")
	if err != nil {
		return nil, err
	}
	return func(src, dst I, message M) bool {
		return runConstraint(program, map[string]any{
			"src":     src,
			"dst":     dst,
			"message": message,
		})
	}, nil
}

// VertexValueExpr compiles an expression over id and value into a vertex
// value predicate, for example `value < 1e12`.
func VertexValueExpr[I comparable, V any](source string) (func(id I, value V) bool, error) {
	program, err := compileConstraint(source, "id", "value")
	if err != nil {
		return nil, err
	}
	return func(id I, value V) bool {
		return runConstraint(program, map[string]any{
			"id":    id,
			"value": value,
		})
	}, nil
}

func compileConstraint(source string, vars ...string) (*vm.Program, error) {
	env := make(map[string]any, len(vars))
	for _, v := range vars {
		env[v] = nil
	}
	program, err := expr.Compile(source, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile constraint %q: %w", source, err)
	}
	return program, nil
}

func runConstraint(program *vm.Program, env map[string]any) bool {
	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
