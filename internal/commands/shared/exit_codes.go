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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	grafterrors "github.com/tombee/graft/pkg/errors"
)

// Exit codes for graft commands
const (
	ExitSuccess         = 0
	ExitExecutionFailed = 1
	ExitInvalidConfig   = 2
	ExitInvalidGraph    = 3
)

// ExitError represents an error with a specific exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for a job that failed while running
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitExecutionFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidConfigError creates an error for a rejected debug configuration
func NewInvalidConfigError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidConfig,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidGraphError creates an error for an unreadable input graph
func NewInvalidGraphError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidGraph,
		Message: msg,
		Cause:   cause,
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if grafterrors.IsConfigError(err) {
		return ExitInvalidConfig
	}
	return ExitExecutionFailed
}

// HandleExitError reports the failure of command and exits with the
// matching code. With --json the report is an ErrorResponse on stdout.
func HandleExitError(command string, err error) {
	if err == nil {
		return
	}
	if GetJSON() {
		if EmitJSON(os.Stdout, NewErrorResponse(command, err)) == nil {
			os.Exit(ExitCode(err))
		}
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// PrintError writes err and, when one is found in the chain, the suggestion
// of a user visible error.
func PrintError(w io.Writer, err error) {
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, "Error:", msg)
	}
	printUserVisibleSuggestion(w, err)
}

func printUserVisibleSuggestion(w io.Writer, err error) {
	userErr, ok := grafterrors.FindUserVisible(err)
	if !ok {
		return
	}
	if suggestion := userErr.Suggestion(); suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
	}
}
