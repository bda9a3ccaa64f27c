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

package variability

import (
	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/state"
)

type transferFunc = absint.TransferFunc[Value]

func operandIndex(instr *bytecode.Instruction) int {
	k, _ := instr.IntOperand()
	return k
}

// kinds returns the labels of the values
func kinds(vs []Value) []Variability {
	res := make([]Variability, len(vs))
	for i, v := range vs {
		res[i] = v.Kind
	}
	return res
}

// produce returns a transfer function popping n values and pushing a value defined at the instruction, whose label is
// computed from the popped values
func produce(n int, label func(instr *bytecode.Instruction, popped []Value) Variability) transferFunc {
	return func(instr *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		s, popped := state.PopN(pre, n)
		return s.Push(NewValue(label(instr, popped), instr.Index))
	}
}

func discard(n int) transferFunc {
	return func(_ *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		s, _ := state.PopN(pre, n)
		return s
	}
}

// escaped returns v once its address is taken at instruction i
func escaped(v Value, i int) Value {
	return Value{Kind: Stronger(v.Kind, LocalVariable), Defs: unionDefs(v, NewValue(Constant, i))}
}

// exposed returns v as an external value if the variable holding it is exposed
func exposed(v Value, isExposed bool) Value {
	if !isExposed {
		return v
	}
	return Value{Kind: ExternVariable, Defs: v.Defs}
}

func fixed(kind Variability) func(*bytecode.Instruction, []Value) Variability {
	return func(*bytecode.Instruction, []Value) Variability { return kind }
}

func strongest(_ *bytecode.Instruction, popped []Value) Variability {
	return Stronger(kinds(popped)...)
}

//gocyclo:ignore
func (d *Domain) transfers() *absint.TransferTable[Value] {
	b := absint.NewTransferBuilder[Value]().Require(absint.MinimumShapes...)

	b.On(func(_ *bytecode.Instruction, pre state.State[Value]) state.State[Value] { return pre },
		bytecode.ShapeNop, bytecode.ShapeBranch)
	b.On(produce(0, fixed(Constant)), bytecode.ShapeConst)

	// Locals and arguments. A variable that may have been written through its address holds an unknown value.
	b.On(func(instr *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		k := operandIndex(instr)
		return pre.Push(exposed(pre.Local(k), d.cfg.exposedLocals.Has(k)))
	}, bytecode.ShapeLoadLocal)
	b.On(func(instr *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		k := operandIndex(instr)
		return pre.Push(exposed(pre.Arg(k), d.cfg.exposedArgs.Has(k)))
	}, bytecode.ShapeLoadArg)
	b.On(func(instr *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		return pre.Pop().AssignLocal(operandIndex(instr), pre.At(0).Redefine(instr.Index))
	}, bytecode.ShapeStoreLocal)
	b.On(func(instr *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		return pre.Pop().AssignArg(operandIndex(instr), pre.At(0).Redefine(instr.Index))
	}, bytecode.ShapeStoreArg)
	// A variable whose address is taken may be redefined through the address
	b.On(func(instr *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		k := operandIndex(instr)
		post := pre.Push(NewValue(LocalVariable, instr.Index))
		if instr.Op == bytecode.Ldarga {
			return post.AssignArg(k, escaped(pre.Arg(k), instr.Index))
		}
		return post.AssignLocal(k, escaped(pre.Local(k), instr.Index))
	}, bytecode.ShapeLoadAddress)

	// Memory: instance fields are only known when they are read-only. Read-only fields are set by the constructor,
	// and objects are at least as variable as the arguments of their constructor.
	b.On(produce(1, func(instr *bytecode.Instruction, popped []Value) Variability {
		if instr.Field().ReadOnly {
			return Stronger(popped[0].Kind, LocalVariable)
		}
		return ExternVariable
	}), bytecode.ShapeLoadField)
	b.On(produce(0, func(instr *bytecode.Instruction, _ []Value) Variability {
		if instr.Field().ReadOnly {
			return Constant
		}
		return ExternVariable
	}), bytecode.ShapeLoadStaticField)
	b.On(produce(1, fixed(ExternVariable)), bytecode.ShapeLoadFieldAddress)
	b.On(discard(2), bytecode.ShapeStoreField, bytecode.ShapeStoreIndirect)
	b.On(discard(1), bytecode.ShapeStoreStaticField, bytecode.ShapePop)
	b.On(discard(3), bytecode.ShapeStoreElement)
	b.On(produce(2, fixed(ExternVariable)), bytecode.ShapeLoadElement, bytecode.ShapeLoadElementAddress)
	b.On(produce(1, fixed(ExternVariable)), bytecode.ShapeLoadIndirect)
	b.On(produce(1, strongest), bytecode.ShapeArrayLength)

	// Computations
	b.On(produce(2, strongest), bytecode.ShapeBinary, bytecode.ShapeCompare)
	b.On(produce(1, strongest), bytecode.ShapeUnary, bytecode.ShapeConvert, bytecode.ShapeBox)
	b.On(func(_ *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		return pre.Push(pre.At(0))
	}, bytecode.ShapeDup)

	// Control flow
	b.On(d.branch(1), bytecode.ShapeCondBranch1, bytecode.ShapeSwitch)
	b.On(d.branch(2), bytecode.ShapeCondBranch2)
	b.On(func(_ *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		if !d.method.Signature.Returns {
			return pre
		}
		d.observeReturn(pre.At(0))
		return pre.Pop()
	}, bytecode.ShapeReturn)
	b.On(discard(1), bytecode.ShapeThrow)

	// Calls and allocations
	b.On(d.call, bytecode.ShapeCall)
	b.On(func(instr *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		s, _ := state.PopN(pre, bytecode.CallOperandCount(instr))
		if instr.Method().Returns {
			s = s.Push(NewValue(ExternVariable, instr.Index))
		}
		return s
	}, bytecode.ShapeCallIndirect)
	b.On(func(instr *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		s, args := state.PopN(pre, instr.Method().NumParams)
		return s.Push(NewValue(Stronger(append(kinds(args), LocalVariable)...), instr.Index))
	}, bytecode.ShapeNewObject)
	b.On(produce(1, func(_ *bytecode.Instruction, popped []Value) Variability {
		return Stronger(popped[0].Kind, LocalVariable)
	}), bytecode.ShapeNewArray)

	return b.MustBuild()
}

func (d *Domain) branch(n int) transferFunc {
	return func(instr *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
		s, conditions := state.PopN(pre, n)
		d.observeBranch(instr.Index, conditions)
		return s
	}
}

// call pops the operands of the call. The result of a pure callee is as variable as its operands; the result of any
// other callee is external.
func (d *Domain) call(instr *bytecode.Instruction, pre state.State[Value]) state.State[Value] {
	ref := instr.Method()
	s, args := state.PopN(pre, bytecode.CallOperandCount(instr))
	if !ref.Returns {
		return s
	}
	kind := ExternVariable
	if f, ok := d.lookup(ref.ID); ok && f.Pure {
		kind = Stronger(kinds(args)...)
	}
	return s.Push(NewValue(kind, instr.Index))
}
