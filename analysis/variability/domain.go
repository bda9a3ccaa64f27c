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

package variability

import (
	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/facts"
	"github.com/awslabs/ar-stackflow/analysis/state"
	"github.com/awslabs/ar-stackflow/internal/graphutil"
	"golang.org/x/tools/container/intsets"
)

// cfgInfo is the control-flow information shared by the rounds of an analysis
type cfgInfo struct {
	dom *graphutil.DomTree
	// branches are the conditional branches of the method, in increasing order
	branches []int
	// reach[k] is the set of instructions reachable from branches[k]
	reach []*intsets.Sparse
	// exposedLocals and exposedArgs are the variables whose address is taken in a method that may write through an
	// address: loading them gives an external value
	exposedLocals intsets.Sparse
	exposedArgs   intsets.Sparse
}

// writesThroughAddress returns true if instr may write to the memory designated by an address on the stack
func writesThroughAddress(instr *bytecode.Instruction) bool {
	switch instr.Shape() {
	case bytecode.ShapeStoreIndirect, bytecode.ShapeStoreField, bytecode.ShapeStoreElement,
		bytecode.ShapeCall, bytecode.ShapeCallIndirect, bytecode.ShapeNewObject:
		return true
	}
	return false
}

func newCfgInfo(m *bytecode.Method) *cfgInfo {
	info := &cfgInfo{dom: graphutil.Dominators(m)}
	writes := false
	for _, instr := range m.Instructions() {
		if instr.Shape().IsConditionalBranch() {
			info.branches = append(info.branches, instr.Index)
			info.reach = append(info.reach, graphutil.ReachableFrom(m, instr.Index))
		}
		writes = writes || writesThroughAddress(instr)
		if instr.Shape() == bytecode.ShapeLoadAddress {
			k, _ := instr.IntOperand()
			if instr.Op == bytecode.Ldarga {
				info.exposedArgs.Insert(k)
			} else {
				info.exposedLocals.Insert(k)
			}
		}
	}
	if !writes {
		info.exposedLocals.Clear()
		info.exposedArgs.Clear()
	}
	return info
}

// Domain is the variability domain for one method and a fixed set of branches known to be deterministic.
// A Domain records the conditions observed at each branch and the values returned during a run; it is used for a
// single run.
type Domain struct {
	method *bytecode.Method
	lookup facts.Lookup
	cfg    *cfgInfo
	table  *absint.TransferTable[Value]

	// deterministic are the branches assumed to have a unique successor
	deterministic *intsets.Sparse
	// visited and variable are the branches reached, and the ones reached with a non-constant condition
	visited  intsets.Sparse
	variable intsets.Sparse

	returned    Value
	hasReturned bool
}

// NewDomain returns the domain for method m. lookup gives the facts of called methods; deterministic are the
// conditional branches assumed to have a constant condition, it may be nil.
func NewDomain(m *bytecode.Method, lookup facts.Lookup, deterministic *intsets.Sparse) *Domain {
	return newDomain(m, lookup, deterministic, newCfgInfo(m))
}

func newDomain(m *bytecode.Method, lookup facts.Lookup, deterministic *intsets.Sparse, cfg *cfgInfo) *Domain {
	if lookup == nil {
		lookup = facts.NoFacts
	}
	if deterministic == nil {
		deterministic = &intsets.Sparse{}
	}
	d := &Domain{method: m, lookup: lookup, cfg: cfg, deterministic: deterministic}
	d.table = d.transfers()
	return d
}

// InitialState returns the state where arguments are external and locals are constants defined at the entry
func (d *Domain) InitialState(sig bytecode.Signature) state.State[Value] {
	return state.Initial(sig.NumArgs,
		func(int) Value { return NewValue(ExternVariable) },
		sig.NumLocals,
		func(int) Value { return NewValue(Constant, EntryDef) })
}

// Merge joins the states slot by slot
func (d *Domain) Merge(a, b state.State[Value]) (state.State[Value], bool) {
	return absint.MergePointwise(a, b, d.Join)
}

// Transfers returns the transfer functions of the domain
func (d *Domain) Transfers() *absint.TransferTable[Value] {
	return d.table
}

// Join returns the least upper bound of the values, and whether it differs from x.
// A constant with several reaching definitions is demoted to a local variable unless the region deciding between the
// definitions is deterministic.
func (d *Domain) Join(x, y Value) (Value, bool) {
	defs := unionDefs(x, y)
	kind := Stronger(x.Kind, y.Kind)
	if kind == Constant && defs.Len() > 1 && !d.deterministicRegion(defs) {
		kind = LocalVariable
	}
	res := Value{Kind: kind, Defs: defs}
	return res, !res.Equal(x)
}

// deterministicRegion returns true if every conditional branch dominated by the nearest common dominator of the
// definitions, and from which a definition is reachable, is deterministic
func (d *Domain) deterministicRegion(defs *intsets.Sparse) bool {
	instrs := defs.AppendTo(nil)
	for i, def := range instrs {
		if def == EntryDef {
			instrs[i] = 0
		}
	}
	c, ok := d.cfg.dom.NearestCommonDominator(instrs)
	if !ok {
		return false
	}
	for k, b := range d.cfg.branches {
		if !d.cfg.dom.Dominates(c, b) || d.deterministic.Has(b) {
			continue
		}
		for _, i := range instrs {
			if d.cfg.reach[k].Has(i) {
				return false
			}
		}
	}
	return true
}

// observeBranch records the condition of the branch at index i
func (d *Domain) observeBranch(i int, conditions []Value) {
	d.visited.Insert(i)
	for _, c := range conditions {
		if c.Kind != Constant {
			d.variable.Insert(i)
			return
		}
	}
}

// observeReturn joins v into the returned value
func (d *Domain) observeReturn(v Value) {
	if !d.hasReturned {
		d.returned, d.hasReturned = v, true
		return
	}
	d.returned, _ = d.Join(d.returned, v)
}

// constantBranches returns the visited branches whose condition was constant on every visit
func (d *Domain) constantBranches() *intsets.Sparse {
	res := &intsets.Sparse{}
	res.Difference(&d.visited, &d.variable)
	return res
}
