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
	"fmt"
	"math/rand"
	"sort"
	"testing"
)

type intGraph map[int][]int

func isToposorted(m intGraph, sccs [][]int) error {
	covered := map[int]bool{}
	for i, scc := range sccs {
		for _, x := range scc {
			// Ensure every node from the graph appears at most once
			if covered[x] {
				return fmt.Errorf("repeated value %v\nin:%v", x, m)
			}
			covered[x] = true
			// Ensure that every x reaches every other y of the SCC.
			// This ensures it is strongly connected, but not necessarily maximal.
			for _, y := range scc {
				if x != y && !reaches(m, x, y) {
					return fmt.Errorf("the SCC nodes are not reachable: %v %v\nin:%v", x, y, m)
				}
			}
			for j := i + 1; j < len(sccs); j++ {
				for _, y := range sccs[j] {
					if reaches(m, x, y) {
						return fmt.Errorf("node %v appears before reachable node %v\nin:%v", x, y, m)
					}
				}
			}
		}
	}
	for n := range m {
		// Ensure every node appears at least once. Combined with above, ensures it appears
		// exactly once
		if !covered[n] {
			return fmt.Errorf("missing node %v\nin:%v", n, m)
		}
	}
	return nil
}
func TestSCC(t *testing.T) {
	graphs := []intGraph{
		{0: {0}},
		{0: {}},
		{0: {0, 1}, 1: {}},
		{0: {1, 2}, 1: {3}, 2: {1}, 3: {}},
		{0: {1, 2}, 1: {3}, 2: {1, 0}, 3: {}},
		{0: {3, 1}, 1: {0}, 2: {1}, 3: {3}},
	}
	for i := 0; i < 100; i++ {
		graphs = append(graphs, randomGraph(10, 68348438+int64(i)))
	}
	for i := 0; i < 10; i++ {
		graphs = append(graphs, randomGraph(50, 184618+int64(i)))
	}
	for _, g := range graphs {
		sccs := StronglyConnectedComponents(nodesOf(g), succFunc(g))
		if err := isToposorted(g, sccs); err != nil {
			t.Fatalf("Error: %v", err)
		}
	}
}

func TestSCCCallGraph(t *testing.T) {
	// main calls a and b; a and b are mutually recursive and both call leaf
	calls := map[string][]string{
		"main": {"a", "b"},
		"a":    {"b", "leaf"},
		"b":    {"a", "leaf"},
		"leaf": nil,
	}
	sccs := StronglyConnectedComponents([]string{"main", "a", "b", "leaf"}, func(m string) []string { return calls[m] })
	if len(sccs) != 3 {
		t.Fatalf("expected 3 components, got %v", sccs)
	}
	if len(sccs[0]) != 1 || sccs[0][0] != "leaf" {
		t.Errorf("expected the leaf first, got %v", sccs[0])
	}
	if len(sccs[1]) != 2 {
		t.Errorf("expected a and b in the same component, got %v", sccs[1])
	}
	if sccs[2][0] != "main" {
		t.Errorf("expected main last, got %v", sccs[2])
	}
}

func randomGraph(size int, seed int64) intGraph {
	m := map[int][]int{}
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < size; i++ {
		m[i] = []int{}
		for j := 0; j < 3; j++ {
			if r.Float32() < 0.7 {
				m[i] = append(m[i], int(r.Int63()%int64(size)))
			}
		}
	}
	return m
}

// reaches returns true if y is reachable from x
func reaches(m map[int][]int, x, y int) bool {
	visited := map[int]bool{}
	var visit func(int)
	visit = func(n int) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, nn := range m[n] {
			visit(nn)
		}
	}
	visit(x)
	return visited[y]
}

// nodesOf returns the sorted nodes of the graph
func nodesOf(m map[int][]int) []int {
	ks := []int{}
	for k := range m {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}

// succFunc returns the successor function of the graph
func succFunc(m map[int][]int) func(int) []int {
	return func(k int) []int { return m[k] }
}
