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
	"encoding/json"
	"io"

	grafterrors "github.com/tombee/graft/pkg/errors"
)

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// NewJSONResponse creates a successful envelope for command.
func NewJSONResponse(command string) JSONResponse {
	return JSONResponse{Version: "1.0", Command: command, Success: true}
}

// EmitJSON marshals a response to indented JSON on w.
func EmitJSON(w io.Writer, response any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// ErrorDetail describes a failed command in JSON output.
type ErrorDetail struct {
	ExitCode   int    `json:"exit_code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ErrorResponse is the envelope written instead of a result when --json is
// set and the command fails.
type ErrorResponse struct {
	JSONResponse
	Error ErrorDetail `json:"error"`
}

// NewErrorResponse builds the failure envelope for err.
func NewErrorResponse(command string, err error) ErrorResponse {
	resp := ErrorResponse{
		JSONResponse: NewJSONResponse(command),
		Error:        ErrorDetail{ExitCode: ExitCode(err), Message: err.Error()},
	}
	resp.Success = false
	if uv, ok := grafterrors.FindUserVisible(err); ok {
		resp.Error.Suggestion = uv.Suggestion()
	}
	return resp
}
