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

// ArityFunc returns the number of operand stack elements popped and pushed by the instruction of method m
type ArityFunc func(m *Method, instr *Instruction) (pop int, push int)

type arity struct{ pop, push int }

var shapeArity = [NumShapes]arity{
	ShapeNop:                {0, 0},
	ShapeConst:              {0, 1},
	ShapeLoadLocal:          {0, 1},
	ShapeStoreLocal:         {1, 0},
	ShapeLoadArg:            {0, 1},
	ShapeStoreArg:           {1, 0},
	ShapeLoadAddress:        {0, 1},
	ShapeLoadField:          {1, 1},
	ShapeStoreField:         {2, 0},
	ShapeLoadFieldAddress:   {1, 1},
	ShapeLoadStaticField:    {0, 1},
	ShapeStoreStaticField:   {1, 0},
	ShapeBinary:             {2, 1},
	ShapeCompare:            {2, 1},
	ShapeUnary:              {1, 1},
	ShapeConvert:            {1, 1},
	ShapeBox:                {1, 1},
	ShapeDup:                {1, 2},
	ShapePop:                {1, 0},
	ShapeBranch:             {0, 0},
	ShapeCondBranch1:        {1, 0},
	ShapeCondBranch2:        {2, 0},
	ShapeSwitch:             {1, 0},
	ShapeNewArray:           {1, 1},
	ShapeLoadElement:        {2, 1},
	ShapeStoreElement:       {3, 0},
	ShapeLoadElementAddress: {2, 1},
	ShapeArrayLength:        {1, 1},
	ShapeLoadIndirect:       {1, 1},
	ShapeStoreIndirect:      {2, 0},
	ShapeThrow:              {1, 0},
}

// StackEffect is the default ArityFunc. The arity of calls depends on the called method reference, the arity of
// returns on the signature of m. Dup is counted as pop 1 push 2.
func StackEffect(m *Method, instr *Instruction) (pop int, push int) {
	switch instr.Shape() {
	case ShapeCall, ShapeCallIndirect:
		ref := instr.Method()
		if ref == nil {
			return 0, 0
		}
		pop = CallOperandCount(instr)
		if ref.Returns {
			push = 1
		}
		return pop, push
	case ShapeNewObject:
		ref := instr.Method()
		if ref == nil {
			return 0, 1
		}
		return ref.NumParams, 1
	case ShapeReturn:
		if m != nil && m.Signature.Returns {
			return 1, 0
		}
		return 0, 0
	case ShapeNone:
		return 0, 0
	default:
		a := shapeArity[instr.Shape()]
		return a.pop, a.push
	}
}

// CallOperandCount returns the number of stack elements consumed by a call instruction: the parameters, the
// receiver of instance methods and the function pointer of indirect calls.
func CallOperandCount(instr *Instruction) int {
	ref := instr.Method()
	if ref == nil {
		return 0
	}
	n := ref.NumParams
	if ref.HasThis {
		n++
	}
	if instr.Shape() == ShapeCallIndirect {
		n++
	}
	return n
}
