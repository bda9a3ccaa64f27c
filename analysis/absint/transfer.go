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

// TransferFunc computes the state after instr from the state before instr
type TransferFunc[E any] func(instr *bytecode.Instruction, pre state.State[E]) state.State[E]

// MinimumShapes are the shapes every domain must handle
var MinimumShapes = []bytecode.Shape{
	bytecode.ShapeBinary, bytecode.ShapeUnary,
	bytecode.ShapeLoadLocal, bytecode.ShapeStoreLocal,
	bytecode.ShapeLoadArg, bytecode.ShapeStoreArg,
	bytecode.ShapeLoadField, bytecode.ShapeStoreField,
	bytecode.ShapeLoadStaticField, bytecode.ShapeStoreStaticField,
	bytecode.ShapeCall, bytecode.ShapeCallIndirect,
	bytecode.ShapeNewObject, bytecode.ShapeNewArray,
	bytecode.ShapeBranch, bytecode.ShapeCondBranch1, bytecode.ShapeCondBranch2,
	bytecode.ShapeReturn,
}

// Transfer is the result of a lookup in a TransferTable. It is either a transfer function or unsupported.
type Transfer[E any] struct {
	op bytecode.Opcode
	fn TransferFunc[E]
}

// Supported returns false if the table has no transfer function for the opcode
func (t Transfer[E]) Supported() bool {
	return t.fn != nil
}

// Apply applies the transfer function. The error is an *UnsupportedOpcodeError if the transfer is unsupported.
func (t Transfer[E]) Apply(instr *bytecode.Instruction, pre state.State[E]) (state.State[E], error) {
	if t.fn == nil {
		return nil, &UnsupportedOpcodeError{Instr: instr}
	}
	return t.fn(instr, pre), nil
}

// TransferTable maps every opcode to its transfer function. Tables are immutable once built.
type TransferTable[E any] struct {
	fns [bytecode.NumOpcodes]TransferFunc[E]
}

// Lookup returns the transfer of op
func (t *TransferTable[E]) Lookup(op bytecode.Opcode) Transfer[E] {
	if !op.Valid() {
		return Transfer[E]{op: op}
	}
	return Transfer[E]{op: op, fn: t.fns[op]}
}

// Unsupported returns the opcodes without transfer functions, in increasing order
func (t *TransferTable[E]) Unsupported() []bytecode.Opcode {
	var ops []bytecode.Opcode
	for op := 0; op < bytecode.NumOpcodes; op++ {
		if t.fns[op] == nil {
			ops = append(ops, bytecode.Opcode(op))
		}
	}
	return ops
}

// TransferBuilder collects the transfer functions of a domain. Handlers are registered per shape, and can be
// overridden for single opcodes.
type TransferBuilder[E any] struct {
	shapes   [bytecode.NumShapes]TransferFunc[E]
	opcodes  [bytecode.NumOpcodes]TransferFunc[E]
	required []bytecode.Shape
}

// NewTransferBuilder returns an empty builder
func NewTransferBuilder[E any]() *TransferBuilder[E] {
	return &TransferBuilder[E]{}
}

// On registers fn for all the opcodes of the shapes
func (b *TransferBuilder[E]) On(fn TransferFunc[E], shapes ...bytecode.Shape) *TransferBuilder[E] {
	for _, s := range shapes {
		b.shapes[s] = fn
	}
	return b
}

// OnOpcode registers fn for the opcodes, overriding the handler of their shape
func (b *TransferBuilder[E]) OnOpcode(fn TransferFunc[E], ops ...bytecode.Opcode) *TransferBuilder[E] {
	for _, op := range ops {
		b.opcodes[op] = fn
	}
	return b
}

// Require makes Build fail if one of the shapes has no handler
func (b *TransferBuilder[E]) Require(shapes ...bytecode.Shape) *TransferBuilder[E] {
	b.required = append(b.required, shapes...)
	return b
}

// Build expands the handlers into a table indexed by opcode.
// It returns an assertion failure if a required shape has an opcode without transfer function.
func (b *TransferBuilder[E]) Build() (*TransferTable[E], error) {
	t := &TransferTable[E]{}
	for op := 0; op < bytecode.NumOpcodes; op++ {
		if fn := b.opcodes[op]; fn != nil {
			t.fns[op] = fn
		} else {
			t.fns[op] = b.shapes[bytecode.Opcode(op).Shape()]
		}
	}
	for _, s := range b.required {
		for _, op := range bytecode.OpcodesOfShape(s) {
			if t.fns[op] == nil {
				return nil, errors.AssertionFailedf("no transfer function for %s (shape %s)", op, s)
			}
		}
	}
	return t, nil
}

// MustBuild is like Build but panics on error
func (b *TransferBuilder[E]) MustBuild() *TransferTable[E] {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
