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
	"github.com/awslabs/ar-stackflow/internal/funcutil"
	"golang.org/x/tools/container/intsets"
)

// BranchKind classifies the conditional branches of a method
type BranchKind int

const (
	// Unreached branches were never visited by the analysis
	Unreached BranchKind = iota
	// Deterministic branches have a constant condition: they have a unique successor at runtime
	Deterministic
	// Nondeterministic branches have a condition that depends on runtime values
	Nondeterministic
)

func (k BranchKind) String() string {
	switch k {
	case Deterministic:
		return "deterministic"
	case Nondeterministic:
		return "nondeterministic"
	default:
		return "unreached"
	}
}

// Result is the result of the variability analysis of a method
type Result struct {
	// States are the states after each instruction, computed in the last round
	States *absint.States[Value]

	// Branches maps every conditional branch of the method to its kind
	Branches map[int]BranchKind

	// Return is the join of the values returned by the method, if it returns any
	Return funcutil.Optional[Value]

	// Rounds is the number of fixpoint computations that were needed
	Rounds int
}

// Analyze computes the variability of the values of m. lookup gives the facts of the methods m calls; it may be nil.
//
// Whether constants merged from several definitions stay constant depends on which branches are deterministic, and
// which branches are deterministic depends on the constants. Analyze starts by assuming that no branch is
// deterministic and runs the engine until the set of branches observed with constant conditions stops growing.
// Within a round the set is fixed, which keeps the merge of the domain a function of its operands.
func Analyze(eng *absint.Engine, m *bytecode.Method, lookup facts.Lookup) (*Result, error) {
	eng = eng.WithDefaults()
	cfg := newCfgInfo(m)
	deterministic := &intsets.Sparse{}
	for round := 1; ; round++ {
		d := newDomain(m, lookup, deterministic, cfg)
		states, err := absint.Run[Value](eng, m, d)
		if err != nil {
			return nil, err
		}
		observed := d.constantBranches()
		if observed.SubsetOf(deterministic) || round > len(cfg.branches) {
			eng.Logger.Debugf("variability of %s converged after %d round(s)", m.ID, round)
			return d.result(states, round), nil
		}
		eng.Logger.Debugf("variability of %s, round %d: deterministic branches %s", m.ID, round, observed)
		deterministic = observed
	}
}

func (d *Domain) result(states *absint.States[Value], rounds int) *Result {
	res := &Result{
		States:   states,
		Branches: make(map[int]BranchKind, len(d.cfg.branches)),
		Return:   funcutil.None[Value](),
		Rounds:   rounds,
	}
	for _, b := range d.cfg.branches {
		switch {
		case !d.visited.Has(b):
			res.Branches[b] = Unreached
		case d.variable.Has(b):
			res.Branches[b] = Nondeterministic
		default:
			res.Branches[b] = Deterministic
		}
	}
	if d.hasReturned {
		res.Return = funcutil.Some(d.returned)
	}
	return res
}

// LocalAfter returns the value of local k after instruction i, and false if i was not reached
func (r *Result) LocalAfter(i, k int) (Value, bool) {
	s, ok := r.States.Get(i).Get()
	if !ok {
		return Value{}, false
	}
	return s.Local(k), true
}
