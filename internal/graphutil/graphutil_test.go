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
	"testing"

	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"golang.org/x/exp/slices"
)

// diamond: 0 ldarg0; 1 brfalse 5; 2 ldc 1; 3 stloc0; 4 br 7; 5 ldc 2; 6 stloc0; 7 ldloc0; 8 ret
func diamond() *bytecode.Method {
	return bytecode.MustMethod("diamond", bytecode.Signature{NumArgs: 1, NumLocals: 1, Returns: true},
		bytecode.I(bytecode.Ldarg, 0),
		bytecode.I(bytecode.Brfalse, 5),
		bytecode.I(bytecode.Ldc, bytecode.Constant{Value: 1}),
		bytecode.I(bytecode.Stloc, 0),
		bytecode.I(bytecode.Br, 7),
		bytecode.I(bytecode.Ldc, bytecode.Constant{Value: 2}),
		bytecode.I(bytecode.Stloc, 0),
		bytecode.I(bytecode.Ldloc, 0),
		bytecode.I(bytecode.Ret),
	)
}

// loop: i = 0; while !(i > arg0) { i = i + 1 }; return i
func loop() *bytecode.Method {
	return bytecode.MustMethod("loop", bytecode.Signature{NumArgs: 1, NumLocals: 1, Returns: true},
		bytecode.I(bytecode.Ldc, bytecode.Constant{Value: 0}), // 0
		bytecode.I(bytecode.Stloc, 0),                         // 1
		bytecode.I(bytecode.Ldloc, 0),                         // 2 header
		bytecode.I(bytecode.Ldarg, 0),                         // 3
		bytecode.I(bytecode.Bgt, 10),                          // 4
		bytecode.I(bytecode.Ldloc, 0),                         // 5
		bytecode.I(bytecode.Ldc, bytecode.Constant{Value: 1}), // 6
		bytecode.I(bytecode.Add),                              // 7
		bytecode.I(bytecode.Stloc, 0),                         // 8
		bytecode.I(bytecode.Br, 2),                            // 9
		bytecode.I(bytecode.Ldloc, 0),                         // 10
		bytecode.I(bytecode.Ret),                              // 11
	)
}

func TestDominators(t *testing.T) {
	m := diamond()
	dom := Dominators(m)
	for _, test := range []struct {
		a, b int
		dom  bool
	}{
		{0, 8, true},
		{1, 7, true},
		{2, 7, false},
		{5, 6, true},
		{3, 6, false},
		{7, 7, true},
		{1, m.Len(), true},
	} {
		if dom.Dominates(test.a, test.b) != test.dom {
			t.Errorf("Dominates(%d, %d): expected %v", test.a, test.b, test.dom)
		}
	}
	if d := dom.Idom(7); d != 1 {
		t.Errorf("expected the branch to be the immediate dominator of the join, got %d", d)
	}
	if c, ok := dom.NearestCommonDominator([]int{3, 6}); !ok || c != 1 {
		t.Errorf("expected nearest common dominator 1, got %d (%v)", c, ok)
	}
	if c, ok := dom.NearestCommonDominator([]int{0, 6}); !ok || c != 0 {
		t.Errorf("expected nearest common dominator 0, got %d (%v)", c, ok)
	}
	if _, ok := dom.NearestCommonDominator(nil); ok {
		t.Errorf("expected no common dominator for an empty set")
	}
}

func TestDominatorsUnreachable(t *testing.T) {
	m := bytecode.MustMethod("dead", bytecode.Signature{},
		bytecode.I(bytecode.Ret),
		bytecode.I(bytecode.Nop), // unreachable
	)
	dom := Dominators(m)
	if dom.Reachable(1) {
		t.Errorf("instruction 1 should not be reachable")
	}
	if _, ok := dom.NearestCommonDominator([]int{0, 1}); ok {
		t.Errorf("expected no common dominator with an unreachable instruction")
	}
}

func TestReachableFrom(t *testing.T) {
	m := diamond()
	r := ReachableFrom(m, 2)
	for _, i := range []int{3, 4, 7, 8, m.Len()} {
		if !r.Has(i) {
			t.Errorf("expected %d reachable from 2", i)
		}
	}
	for _, i := range []int{0, 1, 2, 5, 6} {
		if r.Has(i) {
			t.Errorf("expected %d not reachable from 2", i)
		}
	}
	l := loop()
	if !ReachableFrom(l, 2).Has(2) {
		t.Errorf("the loop header should reach itself")
	}
	if ReachableFrom(l, 0).Has(0) {
		t.Errorf("the entry is not on a cycle")
	}
}

func TestLoopHeaders(t *testing.T) {
	if h := LoopHeaders(diamond()); len(h) != 0 {
		t.Errorf("expected no loop headers, got %v", h)
	}
	if h := LoopHeaders(loop()); !slices.Equal(h, []int{2}) {
		t.Errorf("expected loop header [2], got %v", h)
	}
	self := bytecode.MustMethod("self", bytecode.Signature{}, bytecode.I(bytecode.Br, 0))
	if h := LoopHeaders(self); !slices.Equal(h, []int{0}) {
		t.Errorf("expected self loop header [0], got %v", h)
	}
}

func TestMethodGraph(t *testing.T) {
	m := diamond()
	g := NewMethodGraph(m)
	if g.Order() != 10 {
		t.Errorf("expected 10 nodes including the exit, got %d", g.Order())
	}
	if !g.HasEdgeFromTo(1, 5) || g.HasEdgeFromTo(5, 1) || !g.HasEdgeBetween(5, 1) {
		t.Errorf("unexpected edges around the branch")
	}
	if e := g.Edge(4, 7); e == nil || e.From().ID() != 4 || e.ReversedEdge().From().ID() != 7 {
		t.Errorf("unexpected edge %v", e)
	}
	if g.From(1).Len() != 2 || g.To(7).Len() != 2 {
		t.Errorf("unexpected neighbours")
	}
	if g.Node(-1) != nil || g.Node(10) != nil {
		t.Errorf("expected no node out of range")
	}
}
