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

// Package rendering writes representations of the analyzed programs: graphviz call graphs and control-flow graphs,
// and listings of methods annotated with their abstract states.
package rendering

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/driver"
	"github.com/awslabs/ar-stackflow/analysis/state"
	"github.com/awslabs/ar-stackflow/analysis/variability"
	"github.com/cockroachdb/errors"
)

// nodeColor colors the methods of the call graph
// - pure methods are green
// - methods whose analysis failed are red
// - methods outside of the program are grey
func nodeColor(res *driver.Results, id bytecode.MethodID) string {
	if r, ok := res.Methods[id]; ok {
		if r.Facts.Pure {
			return " [color=green]"
		}
		return ""
	}
	if _, failed := res.Failed[id]; failed {
		return " [color=red]"
	}
	return " [color=grey]"
}

// errWriter records the first error of a sequence of writes
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	if _, err := fmt.Fprintf(e.w, format, args...); err != nil {
		e.err = errors.Wrap(err, "error while writing graph")
	}
}

// WriteCallGraph writes a graphviz representation of the call graph of the analyzed methods to w
func WriteCallGraph(res *driver.Results, w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("digraph callgraph {\n")
	seen := map[bytecode.MethodID]bool{}
	node := func(id bytecode.MethodID) {
		if !seen[id] {
			seen[id] = true
			ew.printf("  %q%s;\n", id, nodeColor(res, id))
		}
	}
	for _, id := range res.IDs() {
		node(id)
		for _, callee := range res.Methods[id].Facts.Callees {
			node(callee)
			ew.printf("  %q -> %q;\n", id, callee)
		}
	}
	for id := range res.Failed {
		node(id)
	}
	ew.printf("}\n")
	return ew.err
}

func branchColor(res *variability.Result, i int) string {
	kind, ok := res.Branches[i]
	if !ok {
		return ""
	}
	switch kind {
	case variability.Deterministic:
		return ", color=green"
	case variability.Nondeterministic:
		return ", color=red"
	default:
		return ", color=grey"
	}
}

// WriteMethodGraph writes a graphviz representation of the control-flow graph of m to w. If res is not nil, the
// conditional branches are colored by their kind and unreached instructions are dashed.
func WriteMethodGraph(m *bytecode.Method, res *variability.Result, w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("digraph %q {\n", m.ID)
	for _, instr := range m.Instructions() {
		attrs := ""
		if res != nil {
			attrs = branchColor(res, instr.Index)
			if !res.States.Reached(instr.Index) {
				attrs += ", style=dashed"
			}
		}
		ew.printf("  %d [label=%q%s];\n", instr.Index, instr.String(), attrs)
	}
	ew.printf("  %d [label=\"exit\", shape=doublecircle];\n", m.Exit().Index)
	for _, instr := range m.Instructions() {
		for _, s := range m.SuccessorIndexes(instr.Index) {
			ew.printf("  %d -> %d;\n", instr.Index, s)
		}
	}
	ew.printf("}\n")
	return ew.err
}

// WriteAnnotated writes the instructions of the method of states, each followed by the state after it
func WriteAnnotated[E any](states *absint.States[E], format func(E) string, w io.Writer) error {
	ew := &errWriter{w: w}
	m := states.Method()
	ew.printf("%s\n", m.ID)
	ew.printf("  entry: %s\n", state.Format(states.Initial(), format))
	for _, instr := range m.Instructions() {
		ew.printf("  %s\n", instr)
		if s, ok := states.Get(instr.Index).Get(); ok {
			ew.printf("      %s\n", state.Format(s, format))
		} else {
			ew.printf("      unreached\n")
		}
	}
	return ew.err
}

// GraphvizToFile creates filename and writes to it with write
func GraphvizToFile(filename string, write func(w io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "could not create file")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "could not write file")
}
