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

// Package provenance implements an abstract domain tracking where the values of a method come from: arguments,
// fields, array elements, allocations, literals, call results. While the engine propagates states, the domain
// publishes facts about the memory accesses, calls and allocations of the method to a set of fact streams.
package provenance

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"
)

// SourceKind is the kind of origin of a value
type SourceKind int

const (
	Argument SourceKind = iota
	LocalAddress
	ArgumentAddress
	Field
	StaticField
	FieldAddress
	ArrayElement
	ElementAddress
	Box
	StringLiteral
	Constant
	NewObject
	NewArray
	CallResult
	Computed
	Indirect
	Null
)

var sourceKindNames = [...]string{
	Argument: "argument", LocalAddress: "local-address", ArgumentAddress: "argument-address",
	Field: "field", StaticField: "static-field", FieldAddress: "field-address",
	ArrayElement: "array-element", ElementAddress: "element-address", Box: "box",
	StringLiteral: "string", Constant: "constant", NewObject: "new-object", NewArray: "new-array",
	CallResult: "call-result", Computed: "computed", Indirect: "indirect", Null: "null",
}

func (k SourceKind) String() string {
	if int(k) < len(sourceKindNames) {
		return sourceKindNames[k]
	}
	return fmt.Sprintf("source-kind(%d)", int(k))
}

// Source is an abstract origin of values.
//
// Index is the argument or local index for Argument, LocalAddress and ArgumentAddress, and the index of the
// instruction for the sources created at an instruction (literals, allocations, boxes, call results, computations).
// Name is the qualified field name, the string literal, the allocated type or the callee.
// Derived sources (fields, elements, addresses and indirections) have the key of the source they derive from in
// Base, and their nesting in Depth. Beyond the maximum depth, Base is "*" and stands for any source.
type Source struct {
	Kind  SourceKind
	Index int
	Name  string
	Base  string
	Depth int
}

// AnyBase is the base of derived sources beyond the maximum depth
const AnyBase = "*"

// Key returns a readable unique representation of the source
func (s Source) Key() string {
	switch s.Kind {
	case Argument:
		return fmt.Sprintf("arg%d", s.Index)
	case LocalAddress:
		return fmt.Sprintf("&local%d", s.Index)
	case ArgumentAddress:
		return fmt.Sprintf("&arg%d", s.Index)
	case Field:
		return fmt.Sprintf("%s.%s", s.Base, s.Name)
	case StaticField:
		return s.Name
	case FieldAddress:
		return fmt.Sprintf("&%s.%s", s.Base, s.Name)
	case ArrayElement:
		return fmt.Sprintf("%s[]", s.Base)
	case ElementAddress:
		return fmt.Sprintf("&%s[]", s.Base)
	case Box:
		return fmt.Sprintf("box@%d", s.Index)
	case StringLiteral:
		return fmt.Sprintf("%q", s.Name)
	case Constant:
		return fmt.Sprintf("const@%d", s.Index)
	case NewObject:
		return fmt.Sprintf("new %s@%d", s.Name, s.Index)
	case NewArray:
		return fmt.Sprintf("new %s[]@%d", s.Name, s.Index)
	case CallResult:
		return fmt.Sprintf("%s()@%d", s.Name, s.Index)
	case Computed:
		return fmt.Sprintf("op@%d", s.Index)
	case Indirect:
		return fmt.Sprintf("*%s", s.Base)
	case Null:
		return "null"
	default:
		return fmt.Sprintf("%s(%d, %s, %s)", s.Kind, s.Index, s.Name, s.Base)
	}
}

func (s Source) String() string {
	return s.Key()
}

// Derive returns the source of kind derived from s. maxDepth bounds the nesting of derived sources.
func Derive(kind SourceKind, base Source, name string, maxDepth int) Source {
	depth := base.Depth + 1
	if depth > maxDepth {
		return Source{Kind: kind, Name: name, Base: AnyBase, Depth: maxDepth}
	}
	return Source{Kind: kind, Name: name, Base: base.Key(), Depth: depth}
}

// Sources is a set of sources, the element of the domain. Sets held by states are never modified.
type Sources = mapset.Set[Source]

// NewSources returns the set of the sources
func NewSources(srcs ...Source) Sources {
	return mapset.NewThreadUnsafeSet(srcs...)
}

// Keys returns the sorted keys of the sources
func Keys(s Sources) []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, s.Cardinality())
	s.Each(func(src Source) bool {
		keys = append(keys, src.Key())
		return false
	})
	slices.Sort(keys)
	return keys
}

// Format renders the sources in a deterministic order
func Format(s Sources) string {
	return "{" + strings.Join(Keys(s), ", ") + "}"
}

// union returns the union of the sets and true if it is larger than a
func union(a, b Sources) (Sources, bool) {
	if b.IsSubset(a) {
		return a, false
	}
	return a.Union(b), true
}
