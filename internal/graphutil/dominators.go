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
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"gonum.org/v1/gonum/graph/flow"
)

// DomTree is the dominator tree of the instructions of a method, rooted at the first instruction.
// Instructions that are not reachable from the first instruction are not in the tree.
type DomTree struct {
	// idom[i] is the immediate dominator of i, -1 for the root and unreachable instructions
	idom []int
	// depth[i] is the depth of i in the tree, -1 for unreachable instructions
	depth []int
}

// Dominators computes the dominator tree of m with the Lengauer-Tarjan implementation of gonum.
func Dominators(m *bytecode.Method) *DomTree {
	n := m.Len() + 1
	t := &DomTree{idom: make([]int, n), depth: make([]int, n)}
	for i := range t.idom {
		t.idom[i] = -1
		t.depth[i] = -1
	}
	if m.Len() == 0 {
		t.depth[0] = 0
		return t
	}
	g := NewMethodGraph(m)
	tree := flow.Dominators(g.Node(0), g)
	for i := 1; i < n; i++ {
		if d := tree.DominatorOf(int64(i)); d != nil {
			t.idom[i] = int(d.ID())
		}
	}
	t.depth[0] = 0
	var depthOf func(i int) int
	depthOf = func(i int) int {
		if t.depth[i] >= 0 || t.idom[i] < 0 {
			return t.depth[i]
		}
		p := depthOf(t.idom[i])
		if p >= 0 {
			t.depth[i] = p + 1
		}
		return t.depth[i]
	}
	for i := 1; i < n; i++ {
		depthOf(i)
	}
	return t
}

// Reachable returns true if i is in the tree, i.e. reachable from the first instruction
func (t *DomTree) Reachable(i int) bool {
	return i >= 0 && i < len(t.depth) && t.depth[i] >= 0
}

// Idom returns the immediate dominator of i, or -1 for the root and unreachable instructions
func (t *DomTree) Idom(i int) int {
	return t.idom[i]
}

// Dominates returns true if a dominates b. Every reachable instruction dominates itself.
func (t *DomTree) Dominates(a, b int) bool {
	if !t.Reachable(a) || !t.Reachable(b) {
		return false
	}
	for t.depth[b] > t.depth[a] {
		b = t.idom[b]
	}
	return a == b
}

// NearestCommonDominator returns the deepest instruction that dominates all the ids, and false if some id is not
// reachable or ids is empty.
func (t *DomTree) NearestCommonDominator(ids []int) (int, bool) {
	if len(ids) == 0 {
		return -1, false
	}
	c := ids[0]
	if !t.Reachable(c) {
		return -1, false
	}
	for _, x := range ids[1:] {
		if !t.Reachable(x) {
			return -1, false
		}
		for t.depth[x] > t.depth[c] {
			x = t.idom[x]
		}
		for t.depth[c] > t.depth[x] {
			c = t.idom[c]
		}
		for c != x {
			c = t.idom[c]
			x = t.idom[x]
		}
	}
	return c, true
}
