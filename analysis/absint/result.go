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
	"github.com/awslabs/ar-stackflow/internal/funcutil"
	"github.com/cockroachdb/errors"
)

// States are the converged states of a run: the state after each instruction that the engine reached
type States[E any] struct {
	method  *bytecode.Method
	initial state.State[E]
	merge   func(a, b state.State[E]) (state.State[E], bool)
	slots   []funcutil.Optional[state.State[E]]
	visits  []int
}

// Method returns the analyzed method
func (s *States[E]) Method() *bytecode.Method {
	return s.method
}

// Len returns the number of instructions of the method
func (s *States[E]) Len() int {
	return len(s.slots)
}

// Get returns the state after instruction i, or none if i was not reached
func (s *States[E]) Get(i int) funcutil.Optional[state.State[E]] {
	if i < 0 || i >= len(s.slots) {
		return funcutil.None[state.State[E]]()
	}
	return s.slots[i]
}

// At returns the state after instruction i. It panics with an assertion failure if i was not reached.
func (s *States[E]) At(i int) state.State[E] {
	st, ok := s.Get(i).Get()
	if !ok {
		panic(errors.AssertionFailedf("instruction %d of %s was not reached", i, s.method.ID))
	}
	return st
}

// Reached returns true if the engine propagated a state through instruction i
func (s *States[E]) Reached(i int) bool {
	return s.Get(i).IsSome()
}

// ReachedCount returns the number of reached instructions
func (s *States[E]) ReachedCount() int {
	n := 0
	for _, slot := range s.slots {
		if slot.IsSome() {
			n++
		}
	}
	return n
}

// Visits returns the number of times instruction i was visited
func (s *States[E]) Visits(i int) int {
	if i < 0 || i >= len(s.visits) {
		return 0
	}
	return s.visits[i]
}

// TotalVisits returns the number of visits of all the instructions
func (s *States[E]) TotalVisits() int {
	n := 0
	for _, v := range s.visits {
		n += v
	}
	return n
}

// Initial returns the state before the first instruction
func (s *States[E]) Initial() state.State[E] {
	return s.initial
}

// Before returns the state before instruction i: the merge of the states after its reached predecessors, and of the
// initial state for the first instruction. It returns none if no such state exists.
func (s *States[E]) Before(i int) funcutil.Optional[state.State[E]] {
	if i < 0 || i >= len(s.slots) {
		return funcutil.None[state.State[E]]()
	}
	var pre state.State[E]
	if i == 0 {
		pre = s.initial
	}
	for _, p := range s.method.PredecessorIndexes(i) {
		post, ok := s.slots[p].Get()
		if !ok {
			continue
		}
		if pre == nil {
			pre = post
		} else {
			pre, _ = s.merge(pre, post)
		}
	}
	if pre == nil {
		return funcutil.None[state.State[E]]()
	}
	return funcutil.Some(pre)
}
