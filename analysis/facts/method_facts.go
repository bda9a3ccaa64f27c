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

package facts

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-stackflow/analysis/bytecode"
)

// MethodFacts summarizes the effects of a method body
type MethodFacts struct {
	Method bytecode.MethodID

	// FieldsRead, FieldsWritten and FieldsReferenced are sorted qualified field names. A field is referenced when
	// its address is taken.
	FieldsRead       []string
	FieldsWritten    []string
	FieldsReferenced []string

	// Callees are the sorted ids of the methods called directly or constructed
	Callees []bytecode.MethodID

	// HasIndirectCalls is true if the method calls through a function pointer
	HasIndirectCalls bool

	// MutatesMemory is true if the method writes to a field, an array element, a static field or through an address
	MutatesMemory bool

	// ReadsMutableStatics is true if the method reads a static field that is not read-only
	ReadsMutableStatics bool

	// ConstructsObjects is true if the method allocates objects or arrays
	ConstructsObjects bool

	// Pure is true when the method and all its transitive callees are side-effect free. It is computed over the call
	// graph, see driver.AnalyzeProgram.
	Pure bool
}

// IsSideEffectFree returns true if the method body, ignoring its callees, only depends on its arguments and does
// not write to memory
func (f *MethodFacts) IsSideEffectFree() bool {
	return !f.MutatesMemory && !f.HasIndirectCalls && !f.ReadsMutableStatics
}

func (f *MethodFacts) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: pure=%v", f.Method, f.Pure)
	if len(f.FieldsRead) > 0 {
		fmt.Fprintf(&b, " reads=%v", f.FieldsRead)
	}
	if len(f.FieldsWritten) > 0 {
		fmt.Fprintf(&b, " writes=%v", f.FieldsWritten)
	}
	if len(f.Callees) > 0 {
		fmt.Fprintf(&b, " calls=%v", f.Callees)
	}
	if f.MutatesMemory {
		b.WriteString(" mutates")
	}
	if f.HasIndirectCalls {
		b.WriteString(" indirect")
	}
	return b.String()
}

// Lookup returns the facts of a method, and false if the facts are unknown
type Lookup func(id bytecode.MethodID) (*MethodFacts, bool)

// NoFacts is the Lookup that knows nothing
func NoFacts(bytecode.MethodID) (*MethodFacts, bool) {
	return nil, false
}
