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
package errors

// UserVisibleError is implemented by errors that carry a message and a fix
// meant for the person running graft rather than for a log file.
type UserVisibleError interface {
	error

	// IsUserVisible reports whether the error should be shown as is.
	IsUserVisible() bool

	// UserMessage is a one-line description without internal detail.
	UserMessage() string

	// Suggestion is actionable guidance, or "" when there is none.
	Suggestion() string
}

// FindUserVisible walks err's chain and returns the first error that wants
// to be shown to the user.
func FindUserVisible(err error) (UserVisibleError, bool) {
	for err != nil {
		if uv, ok := err.(UserVisibleError); ok && uv.IsUserVisible() {
			return uv, true
		}
		switch x := err.(type) {
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				if uv, ok := FindUserVisible(inner); ok {
					return uv, true
				}
			}
			return nil, false
		default:
			return nil, false
		}
	}
	return nil, false
}

var _ UserVisibleError = (*ConfigError)(nil)
