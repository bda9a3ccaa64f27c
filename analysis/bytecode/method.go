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

package bytecode

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Method is the control-flow graph of a method body: an ordered list of instructions, the successor relation
// between them and an exit sentinel that follows every instruction leaving the method.
type Method struct {
	ID        MethodID
	Signature Signature

	instrs []*Instruction
	exit   *Instruction
	succs  [][]int
	preds  [][]int
}

// NewMethod builds the control-flow graph of the instructions. The instructions are re-indexed by their position.
// Successors are computed from the opcodes: branches go to their targets (plus the next instruction when they are
// conditional), returns and throws go to the exit sentinel, every other instruction falls through. Falling through
// the last instruction leads to the exit.
//
// An error is returned if an opcode is unknown, an operand has the wrong type, or an index or target is out of range.
func NewMethod(id MethodID, sig Signature, instrs []*Instruction) (*Method, error) {
	n := len(instrs)
	m := &Method{
		ID:        id,
		Signature: sig,
		instrs:    make([]*Instruction, n),
		exit:      &Instruction{Index: n, Op: Nop},
		succs:     make([][]int, n),
		preds:     make([][]int, n+1),
	}
	for k, instr := range instrs {
		if instr == nil {
			return nil, errors.Newf("method %s: nil instruction at %d", id, k)
		}
		c := *instr
		c.Index = k
		m.instrs[k] = &c
	}
	for k, instr := range m.instrs {
		if err := m.checkOperand(instr); err != nil {
			return nil, errors.Wrapf(err, "method %s", id)
		}
		m.succs[k] = m.computeSuccessors(instr)
		for _, s := range m.succs[k] {
			m.preds[s] = append(m.preds[s], k)
		}
	}
	return m, nil
}

// MustMethod is like NewMethod but panics on error. Useful for tests and static tables.
func MustMethod(id MethodID, sig Signature, instrs ...*Instruction) *Method {
	m, err := NewMethod(id, sig, instrs)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Method) computeSuccessors(instr *Instruction) []int {
	next := instr.Index + 1 // the exit when instr is the last instruction
	switch instr.Shape() {
	case ShapeBranch:
		t, _ := instr.IntOperand()
		return []int{t}
	case ShapeCondBranch1, ShapeCondBranch2:
		t, _ := instr.IntOperand()
		if t == next {
			return []int{next}
		}
		return []int{next, t}
	case ShapeSwitch:
		targets, _ := instr.Operand.([]int)
		res := []int{next}
		seen := map[int]bool{next: true}
		for _, t := range targets {
			if !seen[t] {
				seen[t] = true
				res = append(res, t)
			}
		}
		return res
	case ShapeReturn, ShapeThrow:
		return []int{m.exit.Index}
	default:
		return []int{next}
	}
}

//gocyclo:ignore
func (m *Method) checkOperand(instr *Instruction) error {
	n := len(m.instrs)
	inRange := func(what string, x, bound int) error {
		if x < 0 || x >= bound {
			return errors.Newf("%s: %s %d out of range [0, %d)", instr, what, x, bound)
		}
		return nil
	}
	switch instr.Shape() {
	case ShapeNone:
		return errors.Newf("instruction %d: unknown opcode %s", instr.Index, instr.Op)
	case ShapeLoadLocal, ShapeStoreLocal:
		k, ok := instr.IntOperand()
		if !ok {
			return errors.Newf("%s: expected a local index", instr)
		}
		return inRange("local", k, m.Signature.NumLocals)
	case ShapeLoadArg, ShapeStoreArg:
		k, ok := instr.IntOperand()
		if !ok {
			return errors.Newf("%s: expected an argument index", instr)
		}
		return inRange("argument", k, m.Signature.NumArgs)
	case ShapeLoadAddress:
		k, ok := instr.IntOperand()
		if !ok {
			return errors.Newf("%s: expected an index", instr)
		}
		if instr.Op == Ldloca {
			return inRange("local", k, m.Signature.NumLocals)
		}
		return inRange("argument", k, m.Signature.NumArgs)
	case ShapeLoadField, ShapeStoreField, ShapeLoadFieldAddress, ShapeLoadStaticField, ShapeStoreStaticField:
		if instr.Field() == nil {
			return errors.Newf("%s: expected a field operand", instr)
		}
	case ShapeCall, ShapeCallIndirect, ShapeNewObject:
		if instr.Method() == nil {
			return errors.Newf("%s: expected a method operand", instr)
		}
	case ShapeBranch, ShapeCondBranch1, ShapeCondBranch2:
		t, ok := instr.IntOperand()
		if !ok {
			return errors.Newf("%s: expected a branch target", instr)
		}
		return inRange("target", t, n)
	case ShapeSwitch:
		targets, ok := instr.Operand.([]int)
		if !ok {
			return errors.Newf("%s: expected switch targets", instr)
		}
		for _, t := range targets {
			if err := inRange("target", t, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len returns the number of instructions, not counting the exit sentinel
func (m *Method) Len() int {
	return len(m.instrs)
}

// Instr returns the instruction at index i; Instr(Len()) is the exit sentinel
func (m *Method) Instr(i int) *Instruction {
	if i == len(m.instrs) {
		return m.exit
	}
	return m.instrs[i]
}

// Instructions returns the instructions of the method, without the exit sentinel. The slice must not be modified.
func (m *Method) Instructions() []*Instruction {
	return m.instrs
}

// Exit returns the exit sentinel of the method
func (m *Method) Exit() *Instruction {
	return m.exit
}

// IsExit returns true if instr is the exit sentinel of the method
func (m *Method) IsExit(instr *Instruction) bool {
	return instr == m.exit
}

// Successors returns the successors of the instruction. The exit sentinel has no successors.
func (m *Method) Successors(instr *Instruction) []*Instruction {
	if instr == m.exit {
		return nil
	}
	res := make([]*Instruction, len(m.succs[instr.Index]))
	for k, s := range m.succs[instr.Index] {
		res[k] = m.Instr(s)
	}
	return res
}

// SuccessorIndexes returns the indexes of the successors of the instruction at index i.
// The slice must not be modified.
func (m *Method) SuccessorIndexes(i int) []int {
	if i >= len(m.instrs) {
		return nil
	}
	return m.succs[i]
}

// PredecessorIndexes returns the indexes of the predecessors of the instruction at index i (i may be the exit).
// The slice must not be modified.
func (m *Method) PredecessorIndexes(i int) []int {
	return m.preds[i]
}

func (m *Method) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "method %s (args: %d, locals: %d)\n", m.ID, m.Signature.NumArgs, m.Signature.NumLocals)
	for _, instr := range m.instrs {
		fmt.Fprintf(&b, "  %s -> %v\n", instr, m.succs[instr.Index])
	}
	return b.String()
}

// Program is a set of methods indexed by their identifier
type Program struct {
	methods map[MethodID]*Method
	order   []MethodID
}

// NewProgram returns a program containing the methods. Later methods replace earlier methods with the same id.
func NewProgram(methods ...*Method) *Program {
	p := &Program{methods: make(map[MethodID]*Method, len(methods))}
	for _, m := range methods {
		p.Add(m)
	}
	return p
}

// Add adds the method to the program
func (p *Program) Add(m *Method) {
	if _, ok := p.methods[m.ID]; !ok {
		p.order = append(p.order, m.ID)
	}
	p.methods[m.ID] = m
}

// Method returns the method with the given id
func (p *Program) Method(id MethodID) (*Method, bool) {
	m, ok := p.methods[id]
	return m, ok
}

// Methods returns the methods in the order they were added
func (p *Program) Methods() []*Method {
	res := make([]*Method, len(p.order))
	for k, id := range p.order {
		res[k] = p.methods[id]
	}
	return res
}

// Len returns the number of methods
func (p *Program) Len() int {
	return len(p.order)
}
