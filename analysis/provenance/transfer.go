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

package provenance

import (
	"fmt"

	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/state"
	"github.com/awslabs/ar-stackflow/internal/funcutil"
)

type transferFunc = absint.TransferFunc[Sources]

func operandIndex(instr *bytecode.Instruction) int {
	k, _ := instr.IntOperand()
	return k
}

// at returns a transfer function popping n values and pushing the single source built from the instruction
func at(n int, source func(instr *bytecode.Instruction) Source) transferFunc {
	return func(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		s, _ := state.PopN(pre, n)
		return s.Push(NewSources(source(instr)))
	}
}

func discard(n int) transferFunc {
	return func(_ *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		s, _ := state.PopN(pre, n)
		return s
	}
}

func computed(instr *bytecode.Instruction) Source {
	return Source{Kind: Computed, Index: instr.Index}
}

// popArgs pops the n operands of a call and returns them in parameter order
func popArgs(pre state.State[Sources], n int) (state.State[Sources], []Sources) {
	s, args := state.PopN(pre, n)
	funcutil.Reverse(args)
	return s, args
}

func paramEntity(callee bytecode.MethodID, k int) string {
	return fmt.Sprintf("%s#%d", callee, k)
}

//gocyclo:ignore
func (d *Domain) transfers() *absint.TransferTable[Sources] {
	b := absint.NewTransferBuilder[Sources]().Require(absint.MinimumShapes...)

	b.On(func(_ *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] { return pre },
		bytecode.ShapeNop, bytecode.ShapeBranch)
	b.OnOpcode(at(0, func(instr *bytecode.Instruction) Source {
		return Source{Kind: Constant, Index: instr.Index}
	}), bytecode.Ldc)
	b.OnOpcode(at(0, func(instr *bytecode.Instruction) Source {
		str, _ := instr.Operand.(string)
		return Source{Kind: StringLiteral, Index: instr.Index, Name: str}
	}), bytecode.Ldstr)
	b.OnOpcode(at(0, func(*bytecode.Instruction) Source { return Source{Kind: Null} }), bytecode.Ldnull)

	// Locals and arguments
	b.On(func(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		return pre.Push(pre.Local(operandIndex(instr)))
	}, bytecode.ShapeLoadLocal)
	b.On(func(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		return pre.Push(pre.Arg(operandIndex(instr)))
	}, bytecode.ShapeLoadArg)
	b.On(func(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		return pre.Pop().AssignLocal(operandIndex(instr), pre.At(0))
	}, bytecode.ShapeStoreLocal)
	b.On(func(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		return pre.Pop().AssignArg(operandIndex(instr), pre.At(0))
	}, bytecode.ShapeStoreArg)
	b.OnOpcode(at(0, func(instr *bytecode.Instruction) Source {
		return Source{Kind: LocalAddress, Index: operandIndex(instr)}
	}), bytecode.Ldloca)
	b.OnOpcode(at(0, func(instr *bytecode.Instruction) Source {
		return Source{Kind: ArgumentAddress, Index: operandIndex(instr)}
	}), bytecode.Ldarga)

	// Fields
	b.On(d.loadField, bytecode.ShapeLoadField)
	b.On(d.storeField, bytecode.ShapeStoreField)
	b.On(d.loadFieldAddress, bytecode.ShapeLoadFieldAddress)
	b.On(d.loadStaticField, bytecode.ShapeLoadStaticField)
	b.On(d.storeStaticField, bytecode.ShapeStoreStaticField)

	// Arrays and addresses
	b.On(d.loadElement(ArrayElement), bytecode.ShapeLoadElement)
	b.On(d.loadElement(ElementAddress), bytecode.ShapeLoadElementAddress)
	b.On(d.storeElement, bytecode.ShapeStoreElement)
	b.On(at(1, computed), bytecode.ShapeArrayLength)
	b.On(d.loadIndirect, bytecode.ShapeLoadIndirect)
	b.On(d.storeIndirect, bytecode.ShapeStoreIndirect)

	// Computations: conversions keep the sources of their operand
	b.On(at(2, computed), bytecode.ShapeBinary, bytecode.ShapeCompare)
	b.On(at(1, computed), bytecode.ShapeUnary)
	b.On(func(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		d.referenceType(instr, instr.Type())
		return pre
	}, bytecode.ShapeConvert)
	b.On(func(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		d.referenceType(instr, instr.Type())
		return pre.Pop().Push(NewSources(Source{Kind: Box, Index: instr.Index, Name: instr.Type().String()}))
	}, bytecode.ShapeBox)
	b.On(func(_ *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		return pre.Push(pre.At(0))
	}, bytecode.ShapeDup)
	b.On(discard(1), bytecode.ShapePop)

	// Control flow
	b.On(discard(1), bytecode.ShapeCondBranch1, bytecode.ShapeSwitch, bytecode.ShapeThrow)
	b.On(discard(2), bytecode.ShapeCondBranch2)
	b.On(func(_ *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		if !d.method.Signature.Returns {
			return pre
		}
		d.returned, _ = union(d.returned, pre.At(0))
		return pre.Pop()
	}, bytecode.ShapeReturn)

	// Calls and allocations
	b.On(d.call, bytecode.ShapeCall)
	b.On(d.callIndirect, bytecode.ShapeCallIndirect)
	b.On(d.newObject, bytecode.ShapeNewObject)
	b.On(d.newArray, bytecode.ShapeNewArray)

	return b.MustBuild()
}

func (d *Domain) loadField(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	field := instr.Field()
	obj := pre.At(0)
	res := d.derive(Field, obj, field.QualifiedName())
	publish(d.facts, d.facts.FieldsRead, FieldRead{
		Instr:    instr.Index,
		Field:    field.QualifiedName(),
		ReadOnly: field.ReadOnly,
		Object:   obj,
		Result:   res,
	})
	return pre.Pop().Push(res)
}

func (d *Domain) storeField(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	s, popped := state.PopN(pre, 2)
	publish(d.facts, d.facts.FieldsWritten, FieldWrite{
		Instr:  instr.Index,
		Field:  instr.Field().QualifiedName(),
		Object: popped[1],
		Value:  popped[0],
	})
	return s
}

func (d *Domain) loadFieldAddress(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	name := instr.Field().QualifiedName()
	obj := pre.At(0)
	publish(d.facts, d.facts.FieldsReferenced, FieldReference{Instr: instr.Index, Field: name, Object: obj})
	return pre.Pop().Push(d.derive(FieldAddress, obj, name))
}

func (d *Domain) loadStaticField(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	field := instr.Field()
	res := NewSources(Source{Kind: StaticField, Name: field.QualifiedName()})
	publish(d.facts, d.facts.FieldsRead, FieldRead{
		Instr:    instr.Index,
		Field:    field.QualifiedName(),
		Static:   true,
		ReadOnly: field.ReadOnly,
		Result:   res,
	})
	return pre.Push(res)
}

func (d *Domain) storeStaticField(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	publish(d.facts, d.facts.FieldsWritten, FieldWrite{
		Instr:  instr.Index,
		Field:  instr.Field().QualifiedName(),
		Static: true,
		Value:  pre.At(0),
	})
	return pre.Pop()
}

// loadElement pops the index and the array and pushes the element, or its address
func (d *Domain) loadElement(kind SourceKind) transferFunc {
	return func(_ *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
		s, popped := state.PopN(pre, 2)
		return s.Push(d.derive(kind, popped[1], ""))
	}
}

func (d *Domain) storeElement(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	s, popped := state.PopN(pre, 3)
	publish(d.facts, d.facts.Mutations, Mutation{
		Instr:  instr.Index,
		Kind:   ElementStore,
		Target: popped[2],
		Value:  popped[0],
	})
	return s
}

func (d *Domain) loadIndirect(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	addr := pre.At(0)
	res := d.deref(pre, addr)
	publish(d.facts, d.facts.IndirectLoads, IndirectLoad{Instr: instr.Index, Address: addr, Result: res})
	return pre.Pop().Push(res)
}

// storeIndirect pops the value and the address. A store through the address of a local or an argument may update
// it, so the value is added to its sources.
func (d *Domain) storeIndirect(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	s, popped := state.PopN(pre, 2)
	value, addr := popped[0], popped[1]
	addr.Each(func(src Source) bool {
		switch src.Kind {
		case LocalAddress:
			if merged, grew := union(s.Local(src.Index), value); grew {
				s = s.AssignLocal(src.Index, merged)
			}
		case ArgumentAddress:
			if merged, grew := union(s.Arg(src.Index), value); grew {
				s = s.AssignArg(src.Index, merged)
			}
		}
		return false
	})
	publish(d.facts, d.facts.Mutations, Mutation{Instr: instr.Index, Kind: IndirectStore, Target: addr, Value: value})
	return s
}

func (d *Domain) referenceType(instr *bytecode.Instruction, t *bytecode.TypeRef) {
	if t == nil {
		return
	}
	publish(d.facts, d.facts.TypesReferenced, TypeReference{Instr: instr.Index, Type: t.Name, Op: instr.Op})
}

func (d *Domain) bindArgs(instr *bytecode.Instruction, callee bytecode.MethodID, first int, args []Sources) {
	for k, arg := range args {
		publish(d.facts, d.facts.Equivalences, Equivalence{
			Instr:  instr.Index,
			Value:  arg,
			Entity: paramEntity(callee, first+k),
		})
	}
}

func (d *Domain) call(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	ref := instr.Method()
	s, args := popArgs(pre, bytecode.CallOperandCount(instr))
	publish(d.facts, d.facts.Calls, CallSite{Instr: instr.Index, Callee: ref.ID, Args: args})
	d.bindArgs(instr, ref.ID, 0, args)
	if ref.Returns {
		s = s.Push(NewSources(Source{Kind: CallResult, Index: instr.Index, Name: string(ref.ID)}))
	}
	return s
}

// callIndirect pops the function pointer on top of the stack, then the arguments
func (d *Domain) callIndirect(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	ref := instr.Method()
	target := pre.At(0)
	s, args := popArgs(pre.Pop(), bytecode.CallOperandCount(instr)-1)
	publish(d.facts, d.facts.Calls, CallSite{Instr: instr.Index, Callee: ref.ID, Indirect: true, Target: target, Args: args})
	if ref.Returns {
		s = s.Push(NewSources(Source{Kind: CallResult, Index: instr.Index, Name: "*"}))
	}
	return s
}

// newObject pops the arguments of the constructor and pushes the new object. The receiver of the constructor is the
// new object, it is not on the stack.
func (d *Domain) newObject(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	ref := instr.Method()
	s, args := popArgs(pre, ref.NumParams)
	typ := ref.Owner.String()
	publish(d.facts, d.facts.ObjectsConstructed, ObjectConstruction{
		Instr:       instr.Index,
		Type:        typ,
		Constructor: ref.ID,
		Args:        args,
	})
	publish(d.facts, d.facts.Calls, CallSite{Instr: instr.Index, Callee: ref.ID, Args: args})
	d.referenceType(instr, ref.Owner)
	first := 0
	if ref.HasThis {
		first = 1
	}
	d.bindArgs(instr, ref.ID, first, args)
	return s.Push(NewSources(Source{Kind: NewObject, Index: instr.Index, Name: typ}))
}

func (d *Domain) newArray(instr *bytecode.Instruction, pre state.State[Sources]) state.State[Sources] {
	elem := instr.Type().String()
	publish(d.facts, d.facts.ArraysConstructed, ArrayConstruction{Instr: instr.Index, ElementType: elem, Length: pre.At(0)})
	d.referenceType(instr, instr.Type())
	return pre.Pop().Push(NewSources(Source{Kind: NewArray, Index: instr.Index, Name: elem}))
}
