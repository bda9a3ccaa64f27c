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
	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/state"
)

// Domain is the provenance domain of one method. It publishes its facts to the streams of Facts and completes them
// when the run ends; a Domain is used for a single run.
type Domain struct {
	method   *bytecode.Method
	maxDepth int
	facts    *Facts
	table    *absint.TransferTable[Sources]

	// returned is the union of the values returned by the method
	returned Sources
}

// NewDomain returns the provenance domain of m. Derived sources are nested at most maxDepth times.
func NewDomain(m *bytecode.Method, maxDepth int) *Domain {
	if maxDepth < 1 {
		maxDepth = 1
	}
	d := &Domain{method: m, maxDepth: maxDepth, facts: NewFacts(m.ID), returned: NewSources()}
	d.table = d.transfers()
	return d
}

// Facts returns the fact streams the domain publishes to
func (d *Domain) Facts() *Facts {
	return d.facts
}

// InitialState returns the state where each argument is its own source and locals have no source
func (d *Domain) InitialState(sig bytecode.Signature) state.State[Sources] {
	return state.Initial(sig.NumArgs,
		func(i int) Sources { return NewSources(Source{Kind: Argument, Index: i}) },
		sig.NumLocals,
		func(int) Sources { return NewSources() })
}

// Merge returns the slot by slot union of the states
func (d *Domain) Merge(a, b state.State[Sources]) (state.State[Sources], bool) {
	return absint.MergePointwise(a, b, union)
}

// Transfers returns the transfer functions of the domain
func (d *Domain) Transfers() *absint.TransferTable[Sources] {
	return d.table
}

// Complete completes the fact streams
func (d *Domain) Complete(err error) {
	d.facts.Complete(err)
}

// derive returns the sources of kind derived from every source of s
func (d *Domain) derive(kind SourceKind, s Sources, name string) Sources {
	res := NewSources()
	s.Each(func(src Source) bool {
		res.Add(Derive(kind, src, name, d.maxDepth))
		return false
	})
	return res
}

// deref returns the sources of the values loaded through the addresses in s. The address of a local or an argument
// loads its current sources; the address of a field or an element loads the field or the element.
func (d *Domain) deref(pre state.State[Sources], s Sources) Sources {
	res := NewSources()
	s.Each(func(src Source) bool {
		switch src.Kind {
		case LocalAddress:
			res = res.Union(pre.Local(src.Index))
		case ArgumentAddress:
			res = res.Union(pre.Arg(src.Index))
		case FieldAddress:
			res.Add(Source{Kind: Field, Name: src.Name, Base: src.Base, Depth: src.Depth})
		case ElementAddress:
			res.Add(Source{Kind: ArrayElement, Base: src.Base, Depth: src.Depth})
		default:
			res.Add(Derive(Indirect, src, "", d.maxDepth))
		}
		return false
	})
	return res
}
