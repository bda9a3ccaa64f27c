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

// tarjan holds the state of one run of Tarjan's algorithm
type tarjan[T comparable] struct {
	successors func(T) []T
	stack      []T
	onStack    map[T]bool
	index      map[T]int
	lowlink    map[T]int
	next       int
	sccs       [][]T
}

// StronglyConnectedComponents is an implementation of Tarjan's strongly connected component (SCC) algorithm
// for generic nodes T. It is used on call graphs, where nodes are method identifiers.
// successors returns a slice containing the targets of directed edges out from the given node; targets that are
// not in nodes are visited too.
// The SCCs are toposorted so that successors appear first; i.e. callees before callers. For summary-based
// bottom-up algorithms, the result is in the desired order to minimize recomputation.
func StronglyConnectedComponents[T comparable](nodes []T, successors func(T) []T) [][]T {
	t := &tarjan[T]{
		successors: successors,
		onStack:    map[T]bool{},
		index:      map[T]int{},
		lowlink:    map[T]int{},
	}
	for _, v := range nodes {
		if _, ok := t.index[v]; !ok {
			t.visit(v)
		}
	}
	return t.sccs
}

func (t *tarjan[T]) visit(v T) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.successors(v) {
		if _, seen := t.index[w]; !seen {
			t.visit(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}
	// v is the root of a component: pop it
	var scc []T
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	t.sccs = append(t.sccs, scc)
}
