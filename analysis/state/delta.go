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

type nodeKind uint8

const (
	pushNode nodeKind = iota
	popNode
	localNode
	argNode
)

// Delta is one update applied to a predecessor state. Lookups walk the chain back to the first node that defines
// the slot, or to the flat base of the chain.
type Delta[E any] struct {
	kind  nodeKind
	index int // local or argument index
	value E   // pushed or assigned value
	prev  State[E]
	base  *Flat[E]
	depth int
	chain int
}

func (d *Delta[E]) Depth() int     { return d.depth }
func (d *Delta[E]) NumLocals() int { return d.base.NumLocals() }
func (d *Delta[E]) NumArgs() int   { return d.base.NumArgs() }

// Base returns the flat state at the root of the chain
func (d *Delta[E]) Base() *Flat[E] {
	return d.base
}

func (d *Delta[E]) At(i int) E {
	checkIndex("stack", i, d.depth)
	var s State[E] = d
	for {
		n, ok := s.(*Delta[E])
		if !ok {
			return s.At(i)
		}
		switch n.kind {
		case pushNode:
			if i == 0 {
				return n.value
			}
			i--
		case popNode:
			i++
		}
		s = n.prev
	}
}

func (d *Delta[E]) Local(i int) E {
	checkIndex("local", i, d.NumLocals())
	var s State[E] = d
	for {
		n, ok := s.(*Delta[E])
		if !ok {
			return s.Local(i)
		}
		if n.kind == localNode && n.index == i {
			return n.value
		}
		s = n.prev
	}
}

func (d *Delta[E]) Arg(i int) E {
	checkIndex("argument", i, d.NumArgs())
	var s State[E] = d
	for {
		n, ok := s.(*Delta[E])
		if !ok {
			return s.Arg(i)
		}
		if n.kind == argNode && n.index == i {
			return n.value
		}
		s = n.prev
	}
}

func (d *Delta[E]) Push(e E) State[E] {
	return d.next(pushNode, 0, e, d.depth+1)
}

// Pop returns the predecessor itself when d is a push
func (d *Delta[E]) Pop() State[E] {
	if d.depth == 0 {
		panic(errors.AssertionFailedf("pop of an empty stack"))
	}
	if d.kind == pushNode {
		return d.prev
	}
	var zero E
	return d.next(popNode, 0, zero, d.depth-1)
}

func (d *Delta[E]) AssignLocal(i int, e E) State[E] {
	checkIndex("local", i, d.NumLocals())
	return d.next(localNode, i, e, d.depth)
}

func (d *Delta[E]) AssignArg(i int, e E) State[E] {
	checkIndex("argument", i, d.NumArgs())
	return d.next(argNode, i, e, d.depth)
}

func (d *Delta[E]) next(kind nodeKind, index int, e E, depth int) *Delta[E] {
	return &Delta[E]{kind: kind, index: index, value: e, prev: d, base: d.base, depth: depth, chain: d.chain + 1}
}

func (d *Delta[E]) String() string {
	return Format[E](d, nil)
}
