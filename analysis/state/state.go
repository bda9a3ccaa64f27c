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

// Package state implements the abstract program states the fixpoint engine propagates: an operand stack, the local
// variables and the arguments of a method, each slot holding an element of the abstract domain.
//
// States are persistent. Every update returns a new state that shares structure with its predecessor: updates build
// a Delta chain in O(1) whose base is a Flat state. Flat states are independent dense copies, used for initial states
// and for the results of merges.
package state

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// State is an immutable abstract program state over domain elements E.
// The stack is indexed from the top: At(0) is the top of the stack.
// Accessing an index out of range is a contract violation and panics with an assertion failure.
type State[E any] interface {
	// Depth returns the number of elements on the operand stack
	Depth() int
	// At returns the stack element at position i from the top
	At(i int) E
	// NumLocals returns the number of local variables
	NumLocals() int
	// Local returns the value of local variable i
	Local(i int) E
	// NumArgs returns the number of arguments
	NumArgs() int
	// Arg returns the value of argument i
	Arg(i int) E

	// Push returns the state with e on top of the stack
	Push(e E) State[E]
	// Pop returns the state without the top of the stack
	Pop() State[E]
	// AssignLocal returns the state where local i has value e
	AssignLocal(i int, e E) State[E]
	// AssignArg returns the state where argument i has value e
	AssignArg(i int, e E) State[E]
}

func checkIndex(what string, i, n int) {
	if i < 0 || i >= n {
		panic(errors.AssertionFailedf("%s index %d out of range [0, %d)", what, i, n))
	}
}

// SameShape returns true if both states have the same depth, number of locals and number of arguments
func SameShape[E any](a, b State[E]) bool {
	return a.Depth() == b.Depth() && a.NumLocals() == b.NumLocals() && a.NumArgs() == b.NumArgs()
}

// ChainLength returns the number of delta nodes between s and its flat base
func ChainLength[E any](s State[E]) int {
	if d, ok := s.(*Delta[E]); ok {
		return d.chain
	}
	return 0
}

// Flatten returns a flat state denoting the same state as s. Flat states are returned as is.
func Flatten[E any](s State[E]) *Flat[E] {
	if f, ok := s.(*Flat[E]); ok {
		return f
	}
	n := s.Depth()
	stack := make([]E, n)
	for i := 0; i < n; i++ {
		stack[n-1-i] = s.At(i)
	}
	locals := make([]E, s.NumLocals())
	for i := range locals {
		locals[i] = s.Local(i)
	}
	args := make([]E, s.NumArgs())
	for i := range args {
		args[i] = s.Arg(i)
	}
	return &Flat[E]{stack: stack, locals: locals, args: args}
}

// PopN pops n elements off s. The popped elements are returned top first.
func PopN[E any](s State[E], n int) (State[E], []E) {
	if n > s.Depth() {
		panic(errors.AssertionFailedf("cannot pop %d elements from a stack of depth %d", n, s.Depth()))
	}
	popped := make([]E, n)
	for i := 0; i < n; i++ {
		popped[i] = s.At(0)
		s = s.Pop()
	}
	return s, popped
}

// Elements returns the elements of the stack of s, top first
func Elements[E any](s State[E]) []E {
	res := make([]E, s.Depth())
	for i := range res {
		res[i] = s.At(i)
	}
	return res
}

// Equal returns true if a and b have the same shape and eq holds for every pair of corresponding slots
func Equal[E any](a, b State[E], eq func(x, y E) bool) bool {
	if !SameShape(a, b) {
		return false
	}
	for i := 0; i < a.Depth(); i++ {
		if !eq(a.At(i), b.At(i)) {
			return false
		}
	}
	for i := 0; i < a.NumLocals(); i++ {
		if !eq(a.Local(i), b.Local(i)) {
			return false
		}
	}
	for i := 0; i < a.NumArgs(); i++ {
		if !eq(a.Arg(i), b.Arg(i)) {
			return false
		}
	}
	return true
}

// Format renders the state with format for each element, e.g. "stack: [x, y] locals: [z] args: []" where x is the
// top of the stack
func Format[E any](s State[E], format func(E) string) string {
	if format == nil {
		format = func(e E) string { return fmt.Sprint(e) }
	}
	var b strings.Builder
	list := func(n int, get func(int) E) {
		b.WriteByte('[')
		for i := 0; i < n; i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(format(get(i)))
		}
		b.WriteByte(']')
	}
	b.WriteString("stack: ")
	list(s.Depth(), s.At)
	b.WriteString(" locals: ")
	list(s.NumLocals(), s.Local)
	b.WriteString(" args: ")
	list(s.NumArgs(), s.Arg)
	return b.String()
}
