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
	"io"
	"log/slog"

	graftlog "github.com/tombee/graft/internal/log"
)

// Logger builds the command logger from the environment. --verbose forces
// debug level and --quiet raises it to warn.
func Logger(w io.Writer) *slog.Logger {
	cfg := graftlog.FromEnv()
	cfg.Output = w
	switch {
	case GetVerbose():
		cfg.Level = "debug"
	case GetQuiet():
		cfg.Level = "warn"
	}
	return graftlog.New(cfg)
}
