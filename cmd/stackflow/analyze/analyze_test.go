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

package analyze

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/config"
	"github.com/awslabs/ar-stackflow/analysis/driver"
	"github.com/awslabs/ar-stackflow/internal/formatutil"
	"gopkg.in/yaml.v3"
)

const program = `
fields:
  Counter.count: {static: true}
methods:
  - id: Math.abs
    params: 1
    returns: true
    code: [ldarg 0, ldc 0, blt 5, ldarg 0, ret, ldarg 0, neg, ret]
  - id: Counter.bump
    code: [ldsfld Counter.count, ldc 1, add, stsfld Counter.count, ret]
  - id: Bad.underflow
    code: [pop, ret]
`

func results(t *testing.T) *driver.Results {
	prog, err := bytecode.ParseProgram("program", []byte(program))
	if err != nil {
		t.Fatalf("could not parse program: %v", err)
	}
	cfg := config.NewDefault()
	cfg.SkipFailedMethods = true
	eng := absint.NewEngine(cfg)
	eng.Logger.SetAllOutput(io.Discard)
	res, err := driver.AnalyzeProgram(context.Background(), eng, prog)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return res
}

func TestNewReport(t *testing.T) {
	report := NewReport(results(t), nil)
	if len(report) != 3 {
		t.Fatalf("expected 3 methods in the report, got %d", len(report))
	}
	abs := report["Math.abs"]
	if !*abs.Pure || *abs.Mutates {
		t.Errorf("expected Math.abs to be pure")
	}
	if abs.Return != "extern" || abs.Branches[2] != "nondeterministic" {
		t.Errorf("unexpected report for Math.abs: %+v", abs)
	}
	bump := report["Counter.bump"]
	if *bump.Pure || !*bump.Mutates || len(bump.Writes) != 1 || bump.Writes[0] != "Counter.count" {
		t.Errorf("unexpected report for Counter.bump: %+v", bump)
	}
	if bad := report["Bad.underflow"]; !bad.Fails || bad.Error == "" {
		t.Errorf("expected Bad.underflow to fail, got %+v", bad)
	}
}

func TestNewReportSelectsMethods(t *testing.T) {
	report := NewReport(results(t), []string{"Counter.bump", "Bad.underflow"})
	if _, ok := report["Math.abs"]; ok || len(report) != 2 {
		t.Errorf("expected only the selected methods, got %v", report)
	}
}

func TestWriteYAML(t *testing.T) {
	report := NewReport(results(t), []string{"Math.abs"})
	var b strings.Builder
	if err := report.WriteYAML(&b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]map[string]any
	if err := yaml.Unmarshal([]byte(b.String()), &decoded); err != nil {
		t.Fatalf("report is not valid yaml: %v\n%s", err, b.String())
	}
	abs, ok := decoded["Math.abs"]
	if !ok {
		t.Fatalf("expected Math.abs in report:\n%s", b.String())
	}
	if abs["pure"] != true || abs["return"] != "extern" {
		t.Errorf("unexpected yaml report for Math.abs: %v", abs)
	}
}

func TestWriteText(t *testing.T) {
	formatutil.SetColors(false)
	var b strings.Builder
	if err := NewReport(results(t), nil).WriteText(&b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := b.String()
	for _, line := range []string{
		"Bad.underflow failed",
		"Counter.bump impure",
		"    writes: Counter.count",
		"Math.abs pure",
		"    returns: extern",
		"    branch 2: nondeterministic",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("expected %q in output:\n%s", line, out)
		}
	}
	if strings.Index(out, "Bad.underflow") > strings.Index(out, "Math.abs") {
		t.Errorf("expected methods in sorted order:\n%s", out)
	}
}
