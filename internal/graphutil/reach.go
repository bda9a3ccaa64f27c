// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graphutil

import (
	"sort"

	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/yourbasic/graph"
	"golang.org/x/tools/container/intsets"
)

// ReachableFrom returns the set of instruction indexes reachable from start by at least one edge.
// start is in the set only if it is part of a cycle.
func ReachableFrom(m *bytecode.Method, start int) *intsets.Sparse {
	g := NewMethodGraph(m)
	res := &intsets.Sparse{}
	// BFS only visits edges out of start and the nodes it reaches; the edge targets are the reachable set
	graph.BFS(g, start, func(_, w int, _ int64) {
		res.Insert(w)
	})
	// a back-edge into start is not reported by BFS since start is already visited
	for _, p := range m.PredecessorIndexes(start) {
		if p == start || res.Has(p) {
			res.Insert(start)
			break
		}
	}
	return res
}

// LoopHeaders returns the sorted indexes of the instructions that are targets of a back-edge: the entries of the
// strongly connected components of the method that contain a cycle.
func LoopHeaders(m *bytecode.Method) []int {
	g := NewMethodGraph(m)
	var headers []int
	for _, component := range graph.StrongComponents(g) {
		in := make(map[int]bool, len(component))
		for _, v := range component {
			in[v] = true
		}
		cyclic := len(component) > 1
		if !cyclic {
			v := component[0]
			for _, s := range m.SuccessorIndexes(v) {
				if s == v {
					cyclic = true
				}
			}
		}
		if !cyclic {
			continue
		}
		// the entries are the nodes of the component with a predecessor outside of it, or the first instruction
		for _, v := range component {
			if v == 0 {
				headers = append(headers, v)
				continue
			}
			for _, p := range m.PredecessorIndexes(v) {
				if !in[p] {
					headers = append(headers, v)
					break
				}
			}
		}
	}
	sort.Ints(headers)
	return headers
}
