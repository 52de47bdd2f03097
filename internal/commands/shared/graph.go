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
	"fmt"
	"os"

	"github.com/tombee/graft/pkg/graph"
)

// LoadGraph reads a weighted adjacency list whose vertices start at zero.
func LoadGraph[I comparable](path string, parseID graph.IDParser[I]) (*graph.Graph[I, float64, float64], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewInvalidGraphError("failed to open graph", err)
	}
	defer f.Close()

	g, err := graph.ReadAdjacencyList(f, parseID, 0.0)
	if err != nil {
		return nil, NewInvalidGraphError(fmt.Sprintf("failed to read graph %s", path), err)
	}
	return g, nil
}
