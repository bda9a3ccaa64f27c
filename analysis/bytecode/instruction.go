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
)

// MethodID identifies a method in a program
type MethodID string

// Instruction is a node of the control-flow graph of a method.
// The Index of an instruction is its position in the method; the exit sentinel has index Method.Len().
type Instruction struct {
	Index   int
	Op      Opcode
	Operand any
}

// Constant is the operand of a Ldc instruction
type Constant struct {
	Value any
}

func (c Constant) String() string {
	return fmt.Sprintf("%v", c.Value)
}

// TypeRef references a type by name
type TypeRef struct {
	Name string
}

func (t *TypeRef) String() string {
	if t == nil {
		return "?"
	}
	return t.Name
}

// FieldRef references a field of a type
type FieldRef struct {
	Owner *TypeRef
	Name  string
	Type  *TypeRef
	// Static is true for fields that do not belong to an instance
	Static bool
	// ReadOnly is true for fields that are only written by initializers
	ReadOnly bool
}

// QualifiedName returns Owner.Name
func (f *FieldRef) QualifiedName() string {
	if f == nil {
		return "?"
	}
	return f.Owner.String() + "." + f.Name
}

func (f *FieldRef) String() string {
	return f.QualifiedName()
}

// MethodRef references a method, used as the operand of calls and object constructions
type MethodRef struct {
	ID MethodID
	// NumParams is the number of parameters, not counting the receiver
	NumParams int
	// HasThis is true for instance methods and constructors
	HasThis bool
	// Returns is true if the method pushes a return value. Constructors called by Newobj do not return.
	Returns bool
	// Owner is the declaring type, the type constructed by Newobj
	Owner *TypeRef
}

func (m *MethodRef) String() string {
	if m == nil {
		return "?"
	}
	return string(m.ID)
}

// Signature describes the frame of a method
type Signature struct {
	// NumArgs is the number of arguments, including the receiver for instance methods
	NumArgs int
	// NumLocals is the number of local variables
	NumLocals int
	// HasThis is true for instance methods. Argument 0 is the receiver.
	HasThis bool
	// Returns is true if Ret pops a return value
	Returns bool
}

// Shape returns the shape of the instruction's opcode
func (i *Instruction) Shape() Shape {
	return i.Op.Shape()
}

// IntOperand returns the operand as an int; ok is false if the operand is not an int
func (i *Instruction) IntOperand() (n int, ok bool) {
	n, ok = i.Operand.(int)
	return
}

// Field returns the field operand, or nil
func (i *Instruction) Field() *FieldRef {
	f, _ := i.Operand.(*FieldRef)
	return f
}

// Method returns the method operand, or nil
func (i *Instruction) Method() *MethodRef {
	m, _ := i.Operand.(*MethodRef)
	return m
}

// Type returns the type operand, or nil
func (i *Instruction) Type() *TypeRef {
	t, _ := i.Operand.(*TypeRef)
	return t
}

func (i *Instruction) String() string {
	if i == nil {
		return "<nil>"
	}
	switch op := i.Operand.(type) {
	case nil:
		return fmt.Sprintf("%d: %s", i.Index, i.Op)
	case string:
		return fmt.Sprintf("%d: %s %q", i.Index, i.Op, op)
	case []int:
		targets := make([]string, len(op))
		for k, t := range op {
			targets[k] = fmt.Sprintf("%d", t)
		}
		return fmt.Sprintf("%d: %s (%s)", i.Index, i.Op, strings.Join(targets, ", "))
	default:
		return fmt.Sprintf("%d: %s %v", i.Index, i.Op, op)
	}
}

// I builds an instruction with opcode op and an optional operand. The index is set when the instruction is added
// to a method.
func I(op Opcode, operand ...any) *Instruction {
	instr := &Instruction{Op: op}
	if len(operand) > 0 {
		instr.Operand = operand[0]
	}
	return instr
}
