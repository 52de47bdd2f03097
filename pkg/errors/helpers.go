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

import (
	"errors"
)

// AsConfigError returns the first ConfigError in err's chain.
func AsConfigError(err error) (*ConfigError, bool) {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr, true
	}
	return nil, false
}

// IsConfigError reports whether err, or anything it wraps, is a ConfigError.
//
// Callers use it to tell a rejected debug configuration apart from a failure
// of the computation itself:
//
//	if grafterrors.IsConfigError(err) {
//	    return exitInvalidConfig
//	}
func IsConfigError(err error) bool {
	_, ok := AsConfigError(err)
	return ok
}
