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

// Package variability implements an abstract domain classifying how much runtime input can influence each value of a
// method: compile-time constants, values that only depend on local computations, and values that depend on the
// outside world (arguments, memory, unknown callees).
//
// Each value also carries its reaching definitions, the instructions that defined it. When a constant reaches a
// point through several definitions, it stays constant only if the choice between the definitions is itself fixed at
// compile time: every conditional branch deciding between them must have a constant condition.
package variability

import (
	"fmt"
	"strings"

	"golang.org/x/tools/container/intsets"
)

// Variability is the label of the three-point lattice Constant < LocalVariable < ExternVariable
type Variability int

const (
	// Constant values are known at compile time
	Constant Variability = iota
	// LocalVariable values depend on the control flow or allocations of the method, but not on its inputs
	LocalVariable
	// ExternVariable values depend on arguments, memory or unknown code
	ExternVariable
)

func (v Variability) String() string {
	switch v {
	case Constant:
		return "constant"
	case LocalVariable:
		return "local"
	case ExternVariable:
		return "extern"
	default:
		return fmt.Sprintf("variability(%d)", int(v))
	}
}

// Stronger returns the least upper bound of the labels
func Stronger(labels ...Variability) Variability {
	res := Constant
	for _, l := range labels {
		if l > res {
			res = l
		}
	}
	return res
}

// EntryDef is the reaching definition of the values a method starts with
const EntryDef = -1

// Value is an element of the domain. Values are immutable: Defs must not be modified once the value is built.
type Value struct {
	Kind Variability
	// Defs are the indexes of the instructions defining the value; EntryDef for the method entry
	Defs *intsets.Sparse
}

// NewValue returns a value of kind with the given reaching definitions
func NewValue(kind Variability, defs ...int) Value {
	s := &intsets.Sparse{}
	for _, d := range defs {
		s.Insert(d)
	}
	return Value{Kind: kind, Defs: s}
}

// DefList returns the reaching definitions in increasing order
func (v Value) DefList() []int {
	if v.Defs == nil {
		return nil
	}
	return v.Defs.AppendTo(nil)
}

// NumDefs returns the number of reaching definitions
func (v Value) NumDefs() int {
	if v.Defs == nil {
		return 0
	}
	return v.Defs.Len()
}

// Redefine returns the value with the same kind, defined at instruction i
func (v Value) Redefine(i int) Value {
	return NewValue(v.Kind, i)
}

// Equal returns true if both values have the same kind and the same reaching definitions
func (v Value) Equal(w Value) bool {
	if v.Kind != w.Kind {
		return false
	}
	if v.NumDefs() == 0 || w.NumDefs() == 0 {
		return v.NumDefs() == w.NumDefs()
	}
	return v.Defs.Equals(w.Defs)
}

func (v Value) String() string {
	defs := v.DefList()
	parts := make([]string, len(defs))
	for i, d := range defs {
		if d == EntryDef {
			parts[i] = "entry"
		} else {
			parts[i] = fmt.Sprintf("%d", d)
		}
	}
	return fmt.Sprintf("%s{%s}", v.Kind, strings.Join(parts, ","))
}

// unionDefs returns a new set with the definitions of both values
func unionDefs(a, b Value) *intsets.Sparse {
	res := &intsets.Sparse{}
	if a.Defs != nil {
		res.Copy(a.Defs)
	}
	if b.Defs != nil {
		res.UnionWith(b.Defs)
	}
	return res
}
