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

import "fmt"

// Opcode is the tag of an instruction.
type Opcode uint8

// The opcodes of the stack machine. The operand each opcode expects is given in brackets.
const (
	Nop     Opcode = iota
	Ldc            // push a constant [Constant]
	Ldstr          // push a string literal [string]
	Ldnull         // push null
	Ldloc          // push a local [int]
	Stloc          // pop into a local [int]
	Ldloca         // push the address of a local [int]
	Ldarg          // push an argument [int]
	Starg          // pop into an argument [int]
	Ldarga         // push the address of an argument [int]
	Ldfld          // pop object, push field [*FieldRef]
	Stfld          // pop value and object [*FieldRef]
	Ldflda         // pop object, push field address [*FieldRef]
	Ldsfld         // push static field [*FieldRef]
	Stsfld         // pop into static field [*FieldRef]
	Add            // binary arithmetic and logic
	Sub            //
	Mul            //
	Div            //
	Rem            //
	And            //
	Or             //
	Xor            //
	Shl            //
	Shr            //
	Ceq            // comparisons, pop 2 push 1
	Cgt            //
	Clt            //
	Neg            // unary arithmetic and logic
	Not            //
	Conv           // numeric conversion [*TypeRef]
	Castclass      // checked cast [*TypeRef]
	Isinst         // type test [*TypeRef]
	Box            // box a value [*TypeRef]
	Unbox          // unbox a value [*TypeRef]
	Dup            // duplicate the top of the stack
	Pop            // discard the top of the stack
	Br             // unconditional branch [int]
	Brtrue         // branch if true [int]
	Brfalse        // branch if false [int]
	Beq            // branch if equal [int]
	Bne            // branch if not equal [int]
	Blt            // branch if less [int]
	Bgt            // branch if greater [int]
	Switch         // jump table [[]int]
	Call           // direct call [*MethodRef]
	Callvirt       // virtual call [*MethodRef]
	Calli          // indirect call through a function pointer on the stack [*MethodRef]
	Newobj         // construct an object, calls the constructor [*MethodRef]
	Newarr         // pop length, push new array [*TypeRef]
	Ldelem         // pop array and index, push element
	Stelem         // pop array, index and value
	Ldelema        // pop array and index, push element address
	Ldlen          // pop array, push its length
	Ldind          // pop address, push pointee
	Stind          // pop address and value
	Ret            // return, pops the return value if the method returns one
	Throw          // pop exception and leave the method
	numOpcodes
)

// NumOpcodes is the number of opcodes; every opcode is strictly smaller.
const NumOpcodes = int(numOpcodes)

var opcodeNames = [...]string{
	Nop: "nop", Ldc: "ldc", Ldstr: "ldstr", Ldnull: "ldnull",
	Ldloc: "ldloc", Stloc: "stloc", Ldloca: "ldloca",
	Ldarg: "ldarg", Starg: "starg", Ldarga: "ldarga",
	Ldfld: "ldfld", Stfld: "stfld", Ldflda: "ldflda", Ldsfld: "ldsfld", Stsfld: "stsfld",
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Rem: "rem",
	And: "and", Or: "or", Xor: "xor", Shl: "shl", Shr: "shr",
	Ceq: "ceq", Cgt: "cgt", Clt: "clt",
	Neg: "neg", Not: "not",
	Conv: "conv", Castclass: "castclass", Isinst: "isinst", Box: "box", Unbox: "unbox",
	Dup: "dup", Pop: "pop",
	Br: "br", Brtrue: "brtrue", Brfalse: "brfalse", Beq: "beq", Bne: "bne", Blt: "blt", Bgt: "bgt",
	Switch: "switch",
	Call: "call", Callvirt: "callvirt", Calli: "calli", Newobj: "newobj", Newarr: "newarr",
	Ldelem: "ldelem", Stelem: "stelem", Ldelema: "ldelema", Ldlen: "ldlen",
	Ldind: "ldind", Stind: "stind",
	Ret: "ret", Throw: "throw",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode(%d)", uint8(op))
}

// Valid returns true if op is a known opcode
func (op Opcode) Valid() bool {
	return op < numOpcodes
}

// Shape classifies opcodes by their effect on the operand stack and on the state. Transfer functions are
// registered per shape.
type Shape uint8

// The shapes of instructions. Comments give the stack effect.
const (
	ShapeNone             Shape = iota // no shape: invalid opcode
	ShapeNop                           // nothing
	ShapeConst                         // push 1
	ShapeLoadLocal                     // push 1
	ShapeStoreLocal                    // pop 1, write local
	ShapeLoadArg                       // push 1
	ShapeStoreArg                      // pop 1, write argument
	ShapeLoadAddress                   // push 1 (address of local or argument)
	ShapeLoadField                     // pop 1 push 1
	ShapeStoreField                    // pop 2
	ShapeLoadFieldAddress              // pop 1 push 1
	ShapeLoadStaticField               // push 1
	ShapeStoreStaticField              // pop 1
	ShapeBinary                        // pop 2 push 1
	ShapeCompare                       // pop 2 push 1
	ShapeUnary                         // pop 1 push 1
	ShapeConvert                       // pop 1 push 1, type operations
	ShapeBox                           // pop 1 push 1
	ShapeDup                           // push 1 copy
	ShapePop                           // pop 1
	ShapeBranch                        // nothing, unconditional jump
	ShapeCondBranch1                   // pop 1
	ShapeCondBranch2                   // pop 2
	ShapeSwitch                        // pop 1
	ShapeCall                          // pop N (+1 instance), push 0 or 1
	ShapeCallIndirect                  // pop N+1 (+1 instance), push 0 or 1
	ShapeNewObject                     // pop N push 1
	ShapeNewArray                      // pop 1 push 1
	ShapeLoadElement                   // pop 2 push 1
	ShapeStoreElement                  // pop 3
	ShapeLoadElementAddress            // pop 2 push 1
	ShapeArrayLength                   // pop 1 push 1
	ShapeLoadIndirect                  // pop 1 push 1
	ShapeStoreIndirect                 // pop 2
	ShapeReturn                        // pop 0 or 1, leave
	ShapeThrow                         // pop 1, leave
	numShapes
)

// NumShapes is the number of shapes; every shape is strictly smaller.
const NumShapes = int(numShapes)

var shapeNames = [...]string{
	ShapeNone: "none", ShapeNop: "nop", ShapeConst: "const",
	ShapeLoadLocal: "load-local", ShapeStoreLocal: "store-local",
	ShapeLoadArg: "load-arg", ShapeStoreArg: "store-arg", ShapeLoadAddress: "load-address",
	ShapeLoadField: "load-field", ShapeStoreField: "store-field", ShapeLoadFieldAddress: "load-field-address",
	ShapeLoadStaticField: "load-static-field", ShapeStoreStaticField: "store-static-field",
	ShapeBinary: "binary", ShapeCompare: "compare", ShapeUnary: "unary", ShapeConvert: "convert",
	ShapeBox: "box", ShapeDup: "dup", ShapePop: "pop",
	ShapeBranch: "branch", ShapeCondBranch1: "cond-branch-1", ShapeCondBranch2: "cond-branch-2",
	ShapeSwitch: "switch", ShapeCall: "call", ShapeCallIndirect: "call-indirect",
	ShapeNewObject: "new-object", ShapeNewArray: "new-array",
	ShapeLoadElement: "load-element", ShapeStoreElement: "store-element",
	ShapeLoadElementAddress: "load-element-address", ShapeArrayLength: "array-length",
	ShapeLoadIndirect: "load-indirect", ShapeStoreIndirect: "store-indirect",
	ShapeReturn: "return", ShapeThrow: "throw",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) && shapeNames[s] != "" {
		return shapeNames[s]
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

var opcodeShapes = [NumOpcodes]Shape{
	Nop: ShapeNop, Ldc: ShapeConst, Ldstr: ShapeConst, Ldnull: ShapeConst,
	Ldloc: ShapeLoadLocal, Stloc: ShapeStoreLocal, Ldloca: ShapeLoadAddress,
	Ldarg: ShapeLoadArg, Starg: ShapeStoreArg, Ldarga: ShapeLoadAddress,
	Ldfld: ShapeLoadField, Stfld: ShapeStoreField, Ldflda: ShapeLoadFieldAddress,
	Ldsfld: ShapeLoadStaticField, Stsfld: ShapeStoreStaticField,
	Add: ShapeBinary, Sub: ShapeBinary, Mul: ShapeBinary, Div: ShapeBinary, Rem: ShapeBinary,
	And: ShapeBinary, Or: ShapeBinary, Xor: ShapeBinary, Shl: ShapeBinary, Shr: ShapeBinary,
	Ceq: ShapeCompare, Cgt: ShapeCompare, Clt: ShapeCompare,
	Neg: ShapeUnary, Not: ShapeUnary,
	Conv: ShapeConvert, Castclass: ShapeConvert, Isinst: ShapeConvert, Unbox: ShapeConvert,
	Box: ShapeBox, Dup: ShapeDup, Pop: ShapePop,
	Br:     ShapeBranch,
	Brtrue: ShapeCondBranch1, Brfalse: ShapeCondBranch1,
	Beq: ShapeCondBranch2, Bne: ShapeCondBranch2, Blt: ShapeCondBranch2, Bgt: ShapeCondBranch2,
	Switch: ShapeSwitch,
	Call:   ShapeCall, Callvirt: ShapeCall, Calli: ShapeCallIndirect,
	Newobj: ShapeNewObject, Newarr: ShapeNewArray,
	Ldelem: ShapeLoadElement, Stelem: ShapeStoreElement, Ldelema: ShapeLoadElementAddress, Ldlen: ShapeArrayLength,
	Ldind: ShapeLoadIndirect, Stind: ShapeStoreIndirect,
	Ret: ShapeReturn, Throw: ShapeThrow,
}

// Shape returns the stack shape of the opcode, or ShapeNone for invalid opcodes
func (op Opcode) Shape() Shape {
	if !op.Valid() {
		return ShapeNone
	}
	return opcodeShapes[op]
}

// OpcodesOfShape returns all the opcodes that have shape s, in increasing order
func OpcodesOfShape(s Shape) []Opcode {
	var ops []Opcode
	for op := Opcode(0); op < numOpcodes; op++ {
		if opcodeShapes[op] == s {
			ops = append(ops, op)
		}
	}
	return ops
}

// IsConditionalBranch returns true if the instruction may continue at more than one successor depending on a value
// popped from the stack
func (s Shape) IsConditionalBranch() bool {
	return s == ShapeCondBranch1 || s == ShapeCondBranch2 || s == ShapeSwitch
}

// EndsBlock returns true if the instruction never falls through to the next one unconditionally
func (s Shape) EndsBlock() bool {
	switch s {
	case ShapeBranch, ShapeCondBranch1, ShapeCondBranch2, ShapeSwitch, ShapeReturn, ShapeThrow:
		return true
	}
	return false
}
