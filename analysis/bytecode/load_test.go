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

import (
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/exp/slices"
)

func TestLoadProgram(t *testing.T) {
	prog, err := LoadProgram(filepath.Join("testdata", "program.yaml"))
	if err != nil {
		t.Fatalf("failed to load program: %v", err)
	}
	if prog.Len() != 3 {
		t.Fatalf("expected 3 methods, got %d", prog.Len())
	}
	ids := make([]MethodID, 0, prog.Len())
	for _, m := range prog.Methods() {
		ids = append(ids, m.ID)
	}
	if !slices.Equal(ids, []MethodID{"Counter.next", "Point..ctor", "Main.run"}) {
		t.Errorf("expected the methods in file order, got %v", ids)
	}

	ctor, _ := prog.Method("Point..ctor")
	if sig := ctor.Signature; sig.NumArgs != 3 || !sig.HasThis || sig.Returns {
		t.Errorf("unexpected constructor signature %+v", sig)
	}
	if f := ctor.Instr(2).Field(); f == nil || f.QualifiedName() != "Point.X" || f.Static {
		t.Errorf("expected an implicit instance field, got %v", f)
	}

	next, _ := prog.Method("Counter.next")
	if f := next.Instr(0).Field(); !f.Static || f.ReadOnly || f.Type.String() != "int" {
		t.Errorf("expected the declared static field, got %+v", f)
	}
	if f := next.Instr(4).Field(); f != next.Instr(0).Field() {
		t.Errorf("expected field references to be shared")
	}

	run, _ := prog.Method("Main.run")
	if run.Signature.NumArgs != 1 || run.Signature.NumLocals != 2 {
		t.Errorf("unexpected signature %+v", run.Signature)
	}
	if succs := run.SuccessorIndexes(1); !slices.Equal(succs, []int{2, 3, 5}) {
		t.Errorf("unexpected switch successors %v", succs)
	}
	if s, _ := run.Instr(3).Operand.(string); s != "three" {
		t.Errorf("expected the string literal, got %v", run.Instr(3).Operand)
	}
	if c, _ := run.Instr(5).Operand.(Constant); c.Value != 2.5 {
		t.Errorf("expected a float constant, got %v", run.Instr(5).Operand)
	}
	newobj := run.Instr(11).Method()
	if newobj == nil || newobj.Owner.String() != "Point" || newobj.NumParams != 2 {
		t.Errorf("unexpected constructor reference %v", newobj)
	}
	if ref := run.Instr(14).Method(); ref == nil || ref.ID != "Lib.log" || ref.Returns {
		t.Errorf("expected the extern method, got %v", ref)
	}
	if typ := run.Instr(16).Type(); typ == nil || typ != run.Instr(11).Method().Owner {
		t.Errorf("expected type references to be shared")
	}
	if f := run.Instr(20).Field(); !f.ReadOnly {
		t.Errorf("expected a read-only static field")
	}
}

func TestLoadProgramErrors(t *testing.T) {
	if _, err := LoadProgram(filepath.Join("testdata", "invalid.yaml")); err == nil ||
		!strings.Contains(err.Error(), "unknown method Unknown.method") {
		t.Errorf("expected an unknown method error, got %v", err)
	}
	if _, err := LoadProgram(filepath.Join("testdata", "missing.yaml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
	for _, test := range []struct {
		name string
		src  string
	}{
		{"unknown opcode", "methods: [{id: m, code: [frob]}]"},
		{"missing operand", "methods: [{id: m, locals: 1, code: [ldloc]}]"},
		{"unexpected operand", "methods: [{id: m, code: [add 1]}]"},
		{"unquoted string", "methods: [{id: m, code: [ldstr abc]}]"},
		{"bad target", "methods: [{id: m, code: [br 4]}]"},
		{"duplicate method", "methods: [{id: m, code: [ret]}, {id: m, code: [ret]}]"},
		{"unknown key", "methods: [{id: m, cod: [ret]}]"},
	} {
		if _, err := ParseProgram(test.name, []byte(test.src)); err == nil {
			t.Errorf("%s: expected an error", test.name)
		}
	}
}

func TestParseOpcode(t *testing.T) {
	for op := Opcode(0); op < numOpcodes; op++ {
		if parsed, ok := ParseOpcode(op.String()); !ok || parsed != op {
			t.Errorf("could not parse %s", op)
		}
	}
	if _, ok := ParseOpcode("opcode(200)"); ok {
		t.Errorf("expected invalid opcodes not to parse")
	}
}

func TestSplitQualified(t *testing.T) {
	for _, c := range []struct{ name, owner, member string }{
		{"Math.add", "Math", "add"},
		{"Point..ctor", "Point", ".ctor"},
		{"Config..cctor", "Config", ".cctor"},
		{"System.Text.Builder.Append", "System.Text.Builder", "Append"},
		{"global", "", "global"},
	} {
		if owner, member := splitQualified(c.name); owner != c.owner || member != c.member {
			t.Errorf("%s: expected %q and %q, got %q and %q", c.name, c.owner, c.member, owner, member)
		}
	}
}

func TestConstructorOwner(t *testing.T) {
	prog, err := ParseProgram("ctor", []byte(`
methods:
  - id: Point..ctor
    params: 1
    this: true
    code: [ret]
  - id: Main.make
    returns: true
    code: [ldc 1, newobj Point..ctor, ldc 2, newarr Point, pop, ret]
`))
	if err != nil {
		t.Fatalf("failed to parse program: %v", err)
	}
	factory, _ := prog.Method("Main.make")
	ctor := factory.Instr(1).Method()
	if ctor.Owner.String() != "Point" {
		t.Errorf("expected the constructor to belong to Point, got %s", ctor.Owner)
	}
	if factory.Instr(3).Type() != ctor.Owner {
		t.Errorf("expected newarr and newobj to share the type reference of Point")
	}
}
