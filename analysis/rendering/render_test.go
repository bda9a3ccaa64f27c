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

package rendering

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/config"
	"github.com/awslabs/ar-stackflow/analysis/driver"
	"github.com/awslabs/ar-stackflow/analysis/provenance"
)

const program = `
externs:
  - {id: Lib.log, params: 1}
methods:
  - id: Math.abs
    params: 1
    returns: true
    code: [ldarg 0, ldc 0, blt 5, ldarg 0, ret, ldarg 0, neg, ret]
  - id: Main.run
    params: 1
    returns: true
    code: [ldarg 0, call Lib.log, ldarg 0, call Math.abs, ret]
`

func analyze(t *testing.T) *driver.Results {
	prog, err := bytecode.ParseProgram("program", []byte(program))
	if err != nil {
		t.Fatalf("could not parse program: %v", err)
	}
	eng := absint.NewEngine(config.NewDefault())
	eng.Logger.SetAllOutput(io.Discard)
	res, err := driver.AnalyzeProgram(context.Background(), eng, prog)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return res
}

func expectLines(t *testing.T, out string, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if !strings.Contains(out, l) {
			t.Errorf("expected %q in output:\n%s", l, out)
		}
	}
}

func TestWriteCallGraph(t *testing.T) {
	res := analyze(t)
	var b strings.Builder
	if err := WriteCallGraph(res, &b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectLines(t, b.String(),
		"digraph callgraph {",
		`"Math.abs" [color=green];`,
		`"Lib.log" [color=grey];`,
		`"Main.run" -> "Lib.log";`,
		`"Main.run" -> "Math.abs";`,
	)
	if strings.Contains(b.String(), `"Main.run" [color=green]`) {
		t.Errorf("a method calling an unknown method is not pure")
	}
}

func TestWriteMethodGraph(t *testing.T) {
	res := analyze(t)
	abs := res.Methods["Math.abs"]
	var b strings.Builder
	if err := WriteMethodGraph(abs.Variability.States.Method(), abs.Variability, &b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectLines(t, b.String(),
		`digraph "Math.abs" {`,
		`2 [label="2: blt 5", color=red];`,
		`8 [label="exit", shape=doublecircle];`,
		"2 -> 3;",
		"2 -> 5;",
		"7 -> 8;",
	)
}

func TestWriteAnnotated(t *testing.T) {
	res := analyze(t)
	var b strings.Builder
	if err := WriteAnnotated(res.Methods["Main.run"].Provenance.States, provenance.Format, &b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectLines(t, b.String(),
		"Main.run",
		"entry: stack: [] locals: [] args: [{arg0}]",
		"3: call Math.abs",
		"stack: [{Math.abs()@3}] locals: [] args: [{arg0}]",
	)
}

func TestGraphvizToFile(t *testing.T) {
	res := analyze(t)
	filename := filepath.Join(t.TempDir(), "callgraph.dot")
	err := GraphvizToFile(filename, func(w io.Writer) error { return WriteCallGraph(res, w) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("could not read output: %v", err)
	}
	expectLines(t, string(b), "digraph callgraph {", "}")
}
