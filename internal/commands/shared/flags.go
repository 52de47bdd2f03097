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
	"runtime"
	"runtime/debug"
)

var (
	verboseFlag bool
	quietFlag   bool
	jsonFlag    bool

	build = BuildInfo{Version: "dev", Commit: unknown, BuildDate: unknown}
)

const unknown = "unknown"

// BuildInfo identifies the running graft binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// RegisterFlagPointers returns pointers for the global flags bound by the root command.
func RegisterFlagPointers() (verbose, quiet, json *bool) {
	return &verboseFlag, &quietFlag, &jsonFlag
}

// SetVersion records the values injected with -ldflags at build time.
func SetVersion(v, c, b string) {
	build.Version = v
	build.Commit = c
	build.BuildDate = b
}

// Build returns the build metadata. Commit and date fall back to the VCS
// stamp embedded by the Go toolchain when they were not injected.
func Build() BuildInfo {
	info := build
	info.GoVersion = runtime.Version()
	info.Platform = runtime.GOOS + "/" + runtime.GOARCH

	if info.Commit != unknown && info.BuildDate != unknown {
		return info
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == unknown:
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.BuildDate == unknown:
			info.BuildDate = s.Value
		}
	}
	return info
}

// GetVerbose reports whether --verbose was set.
func GetVerbose() bool {
	return verboseFlag
}

// GetQuiet reports whether --quiet was set.
func GetQuiet() bool {
	return quietFlag
}

// GetJSON reports whether --json was set.
func GetJSON() bool {
	return jsonFlag
}
