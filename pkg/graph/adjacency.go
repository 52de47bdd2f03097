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
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// separator splits a vertex line into id and neighbor/weight tokens.
var separator = regexp.MustCompile(`[\t ]+`)

// ReadAdjacencyList reads a weighted adjacency list, one vertex per line:
//
//	id neighbor1 weight1 neighbor2 weight2 ...
//
// Blank lines and lines starting with '#' are skipped. Every vertex starts
// with initial as its value. Neighbors that never appear as a line of their own
// are added as vertices without edges.
func ReadAdjacencyList[I comparable, V any](r io.Reader, parseID IDParser[I], initial V) (*Graph[I, V, float64], error) {
	g := New[I, V, float64]()
	var referenced []I

	br := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("reading adjacency list: %w", readErr)
		}
		if raw != "" {
			lineNo++
			targets, err := addLine(g, strings.TrimSpace(raw), parseID, initial)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			referenced = append(referenced, targets...)
		}
		if readErr == io.EOF {
			break
		}
	}

	for _, id := range referenced {
		if _, ok := g.Vertex(id); !ok {
			g.Add(NewVertex[I, V, float64](id, initial))
		}
	}

	return g, nil
}

// addLine adds the vertex described by line to g and returns its edge targets.
// Lines of any length are accepted.
func addLine[I comparable, V any](g *Graph[I, V, float64], line string, parseID IDParser[I], initial V) ([]I, error) {
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	tokens := separator.Split(line, -1)
	if len(tokens)%2 != 1 {
		return nil, fmt.Errorf("expected id followed by neighbor/weight pairs")
	}

	id, err := parseID(tokens[0])
	if err != nil {
		return nil, err
	}

	v := NewVertex[I, V, float64](id, initial)
	targets := make([]I, 0, len(tokens)/2)
	for i := 1; i < len(tokens); i += 2 {
		target, err := parseID(tokens[i])
		if err != nil {
			return nil, err
		}
		weight, err := strconv.ParseFloat(tokens[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid edge weight %q: %w", tokens[i+1], err)
		}
		v.AddEdge(target, weight)
		targets = append(targets, target)
	}
	g.Add(v)
	return targets, nil
}
