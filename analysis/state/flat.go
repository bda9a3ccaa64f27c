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

package state

import "github.com/cockroachdb/errors"

// Flat is a dense state where every slot is stored. The stack is stored bottom first.
type Flat[E any] struct {
	stack  []E
	locals []E
	args   []E
}

// NewFlat returns a flat state. stack is given bottom first. The flat state takes ownership of the slices.
func NewFlat[E any](stack, locals, args []E) *Flat[E] {
	return &Flat[E]{stack: stack, locals: locals, args: args}
}

// Initial returns a flat state with an empty stack, where every argument and local is initialized by the functions
func Initial[E any](numArgs int, arg func(int) E, numLocals int, local func(int) E) *Flat[E] {
	f := &Flat[E]{locals: make([]E, numLocals), args: make([]E, numArgs)}
	for i := range f.args {
		f.args[i] = arg(i)
	}
	for i := range f.locals {
		f.locals[i] = local(i)
	}
	return f
}

func (f *Flat[E]) Depth() int     { return len(f.stack) }
func (f *Flat[E]) NumLocals() int { return len(f.locals) }
func (f *Flat[E]) NumArgs() int   { return len(f.args) }

func (f *Flat[E]) At(i int) E {
	checkIndex("stack", i, len(f.stack))
	return f.stack[len(f.stack)-1-i]
}

func (f *Flat[E]) Local(i int) E {
	checkIndex("local", i, len(f.locals))
	return f.locals[i]
}

func (f *Flat[E]) Arg(i int) E {
	checkIndex("argument", i, len(f.args))
	return f.args[i]
}

func (f *Flat[E]) Push(e E) State[E] {
	return &Delta[E]{kind: pushNode, value: e, prev: f, base: f, depth: len(f.stack) + 1, chain: 1}
}

func (f *Flat[E]) Pop() State[E] {
	if len(f.stack) == 0 {
		panic(errors.AssertionFailedf("pop of an empty stack"))
	}
	return &Delta[E]{kind: popNode, prev: f, base: f, depth: len(f.stack) - 1, chain: 1}
}

func (f *Flat[E]) AssignLocal(i int, e E) State[E] {
	checkIndex("local", i, len(f.locals))
	return &Delta[E]{kind: localNode, index: i, value: e, prev: f, base: f, depth: len(f.stack), chain: 1}
}

func (f *Flat[E]) AssignArg(i int, e E) State[E] {
	checkIndex("argument", i, len(f.args))
	return &Delta[E]{kind: argNode, index: i, value: e, prev: f, base: f, depth: len(f.stack), chain: 1}
}

func (f *Flat[E]) String() string {
	return Format[E](f, nil)
}
