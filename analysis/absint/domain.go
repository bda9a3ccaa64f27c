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

package absint

import (
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/state"
	"github.com/cockroachdb/errors"
)

// Domain is an abstract domain over elements E.
//
// Merge must be idempotent (Merge(a, a) returns false), commutative in the denoted value and monotone, and the
// domain must have finite height: those guarantee termination of Run.
type Domain[E any] interface {
	// InitialState returns the state before the first instruction of a method with signature sig
	InitialState(sig bytecode.Signature) state.State[E]

	// Merge joins two states of the same shape. The boolean is false if the result denotes the same state as a.
	Merge(a, b state.State[E]) (state.State[E], bool)

	// Transfers returns the transfer functions of the domain
	Transfers() *TransferTable[E]
}

// Completer is implemented by domains that need to know when a run ends, e.g. to complete fact streams.
// Complete is called exactly once per run, with nil when the run converged.
type Completer interface {
	Complete(err error)
}

// JoinFunc joins two elements; the boolean is true if the result is different from x
type JoinFunc[E any] func(x, y E) (E, bool)

// MergePointwise merges two states slot by slot with join. The result is a flat state.
// The states must have the same shape; a mismatch is an assertion failure.
func MergePointwise[E any](a, b state.State[E], join JoinFunc[E]) (state.State[E], bool) {
	if !state.SameShape(a, b) {
		panic(errors.AssertionFailedf("cannot merge states of different shapes: depth %d/%d, locals %d/%d, args %d/%d",
			a.Depth(), b.Depth(), a.NumLocals(), b.NumLocals(), a.NumArgs(), b.NumArgs()))
	}
	changed := false
	joinAll := func(n int, get func(state.State[E], int) E, bottomFirst bool) []E {
		res := make([]E, n)
		for i := 0; i < n; i++ {
			e, c := join(get(a, i), get(b, i))
			changed = changed || c
			if bottomFirst {
				res[n-1-i] = e
			} else {
				res[i] = e
			}
		}
		return res
	}
	stack := joinAll(a.Depth(), state.State[E].At, true)
	locals := joinAll(a.NumLocals(), state.State[E].Local, false)
	args := joinAll(a.NumArgs(), state.State[E].Arg, false)
	return state.NewFlat(stack, locals, args), changed
}
