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
	"strings"

	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/facts"
	"github.com/awslabs/ar-stackflow/internal/funcutil"
)

// FieldRead is published when a field is loaded. Object is nil for static fields.
type FieldRead struct {
	Instr    int
	Field    string
	Static   bool
	ReadOnly bool
	Object   Sources
	Result   Sources
}

// FieldWrite is published when a field is stored. Object is nil for static fields.
type FieldWrite struct {
	Instr  int
	Field  string
	Static bool
	Object Sources
	Value  Sources
}

// FieldReference is published when the address of a field is taken
type FieldReference struct {
	Instr  int
	Field  string
	Object Sources
}

// CallSite is published for every call and constructor call. Args are in parameter order, the receiver first.
// Target is the function pointer of indirect calls.
type CallSite struct {
	Instr    int
	Callee   bytecode.MethodID
	Indirect bool
	Target   Sources
	Args     []Sources
}

// ObjectConstruction is published when an object is allocated
type ObjectConstruction struct {
	Instr       int
	Type        string
	Constructor bytecode.MethodID
	Args        []Sources
}

// ArrayConstruction is published when an array is allocated
type ArrayConstruction struct {
	Instr       int
	ElementType string
	Length      Sources
}

// TypeReference is published by the instructions that name a type: casts, type tests, conversions, boxing and
// allocations
type TypeReference struct {
	Instr int
	Type  string
	Op    bytecode.Opcode
}

// MutationKind is the kind of memory write of a Mutation
type MutationKind int

const (
	// ElementStore is a store into an array element
	ElementStore MutationKind = iota
	// IndirectStore is a store through an address
	IndirectStore
)

func (k MutationKind) String() string {
	if k == ElementStore {
		return "element-store"
	}
	return "indirect-store"
}

// Mutation is published for the writes to memory that are not field stores
type Mutation struct {
	Instr  int
	Kind   MutationKind
	Target Sources
	Value  Sources
}

// IndirectLoad is published when a value is loaded through an address
type IndirectLoad struct {
	Instr   int
	Address Sources
	Result  Sources
}

// Equivalence is published when a value of the method is bound to a named entity, e.g. when an operand of a call
// becomes a parameter of the callee
type Equivalence struct {
	Instr  int
	Value  Sources
	Entity string
}

func formatArgs(args []Sources) string {
	return "(" + strings.Join(funcutil.Map(args, Format), ", ") + ")"
}

func (f FieldRead) String() string {
	return fmt.Sprintf("%d: read %s of %s: %s", f.Instr, f.Field, Format(f.Object), Format(f.Result))
}

func (f FieldWrite) String() string {
	return fmt.Sprintf("%d: write %s of %s: %s", f.Instr, f.Field, Format(f.Object), Format(f.Value))
}

func (f FieldReference) String() string {
	return fmt.Sprintf("%d: reference %s of %s", f.Instr, f.Field, Format(f.Object))
}

func (c CallSite) String() string {
	if c.Indirect {
		return fmt.Sprintf("%d: call *%s%s", c.Instr, Format(c.Target), formatArgs(c.Args))
	}
	return fmt.Sprintf("%d: call %s%s", c.Instr, c.Callee, formatArgs(c.Args))
}

func (o ObjectConstruction) String() string {
	return fmt.Sprintf("%d: new %s%s", o.Instr, o.Type, formatArgs(o.Args))
}

func (a ArrayConstruction) String() string {
	return fmt.Sprintf("%d: new %s[%s]", a.Instr, a.ElementType, Format(a.Length))
}

func (t TypeReference) String() string {
	return fmt.Sprintf("%d: %s %s", t.Instr, t.Op, t.Type)
}

func (m Mutation) String() string {
	return fmt.Sprintf("%d: %s into %s: %s", m.Instr, m.Kind, Format(m.Target), Format(m.Value))
}

func (l IndirectLoad) String() string {
	return fmt.Sprintf("%d: load *%s: %s", l.Instr, Format(l.Address), Format(l.Result))
}

func (e Equivalence) String() string {
	return fmt.Sprintf("%d: %s == %s", e.Instr, Format(e.Value), e.Entity)
}

// Facts are the fact streams of the provenance analysis of one method, one stream per category.
// Each fact is published once: a fact equal to a fact already published is dropped. Facts are published in the
// order the instructions are visited; a revisit publishes a new fact when the sources involved have grown.
type Facts struct {
	Method             bytecode.MethodID
	FieldsRead         *facts.Stream[FieldRead]
	FieldsWritten      *facts.Stream[FieldWrite]
	FieldsReferenced   *facts.Stream[FieldReference]
	Calls              *facts.Stream[CallSite]
	ObjectsConstructed *facts.Stream[ObjectConstruction]
	ArraysConstructed  *facts.Stream[ArrayConstruction]
	TypesReferenced    *facts.Stream[TypeReference]
	Mutations          *facts.Stream[Mutation]
	IndirectLoads      *facts.Stream[IndirectLoad]
	Equivalences       *facts.Stream[Equivalence]

	seen map[string]bool
}

// NewFacts returns the empty fact streams of method id
func NewFacts(id bytecode.MethodID) *Facts {
	name := func(category string) string { return string(id) + "/" + category }
	return &Facts{
		Method:             id,
		FieldsRead:         facts.NewStream[FieldRead](name("fields-read")),
		FieldsWritten:      facts.NewStream[FieldWrite](name("fields-written")),
		FieldsReferenced:   facts.NewStream[FieldReference](name("fields-referenced")),
		Calls:              facts.NewStream[CallSite](name("calls")),
		ObjectsConstructed: facts.NewStream[ObjectConstruction](name("objects-constructed")),
		ArraysConstructed:  facts.NewStream[ArrayConstruction](name("arrays-constructed")),
		TypesReferenced:    facts.NewStream[TypeReference](name("types-referenced")),
		Mutations:          facts.NewStream[Mutation](name("mutations")),
		IndirectLoads:      facts.NewStream[IndirectLoad](name("indirect-loads")),
		Equivalences:       facts.NewStream[Equivalence](name("equivalences")),
		seen:               map[string]bool{},
	}
}

// publish publishes fact to s unless an equal fact was published before
func publish[T fmt.Stringer](f *Facts, s *facts.Stream[T], fact T) {
	key := s.Name() + "|" + fact.String()
	if f.seen[key] {
		return
	}
	f.seen[key] = true
	s.Publish(fact)
}

// Complete completes every stream with err
func (f *Facts) Complete(err error) {
	f.FieldsRead.Complete(err)
	f.FieldsWritten.Complete(err)
	f.FieldsReferenced.Complete(err)
	f.Calls.Complete(err)
	f.ObjectsConstructed.Complete(err)
	f.ArraysConstructed.Complete(err)
	f.TypesReferenced.Complete(err)
	f.Mutations.Complete(err)
	f.IndirectLoads.Complete(err)
	f.Equivalences.Complete(err)
}
