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

package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// IDParser converts the textual form of a vertex id into its typed form.
// It is the type descriptor handed to configuration loaders so that ids are
// resolved once at job start without reflection.
type IDParser[I comparable] func(s string) (I, error)

// ParseInt64ID parses a signed 64-bit vertex id.
func ParseInt64ID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid int64 vertex id %q: %w", s, err)
	}
	return id, nil
}

// ParseInt32ID parses a signed 32-bit vertex id.
func ParseInt32ID(s string) (int32, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid int32 vertex id %q: %w", s, err)
	}
	return int32(id), nil
}

// ParseStringID accepts any non-empty token as a vertex id.
func ParseStringID(s string) (string, error) {
	id := strings.TrimSpace(s)
	if id == "" {
		return "", fmt.Errorf("empty vertex id")
	}
	return id, nil
}

// IDType names a supported vertex id representation.
type IDType string

const (
	// IDTypeInt64 is a signed 64-bit integer id.
	IDTypeInt64 IDType = "int64"
	// IDTypeInt32 is a signed 32-bit integer id.
	IDTypeInt32 IDType = "int32"
	// IDTypeString is an opaque string id.
	IDTypeString IDType = "string"
)

// IDTypes lists the supported id types in flag order.
func IDTypes() []IDType {
	return []IDType{IDTypeInt64, IDTypeInt32, IDTypeString}
}

// ParseIDType validates an id type name.
func ParseIDType(s string) (IDType, error) {
	switch t := IDType(strings.ToLower(strings.TrimSpace(s))); t {
	case IDTypeInt64, IDTypeInt32, IDTypeString:
		return t, nil
	case "long":
		return IDTypeInt64, nil
	case "int":
		return IDTypeInt32, nil
	default:
		return "", fmt.Errorf("unsupported vertex id type %q (want int64, int32 or string)", s)
	}
}
