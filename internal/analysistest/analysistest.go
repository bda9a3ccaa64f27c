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

// Package analysistest loads the test programs of the analyses. A test program is a directory containing a
// program.yaml (see bytecode.LoadProgram), an optional config.yaml and an optional expect.yaml listing the expected
// results per method.
package analysistest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/config"
	"github.com/awslabs/ar-stackflow/internal/funcutil"
	"gopkg.in/yaml.v3"
)

// Expectation are the expected results of the analyses of one method. Unset fields are not checked.
type Expectation struct {
	// Fails is true if the analysis of the method is expected to fail
	Fails bool `yaml:"fails"`

	// Pure and Mutates are the expected purity and memory effects of the method
	Pure    *bool `yaml:"pure"`
	Mutates *bool `yaml:"mutates"`

	// Return is the expected variability of the returned value
	Return string `yaml:"return"`

	// Branches maps conditional branches to their expected kind
	Branches map[int]string `yaml:"branches"`

	// Reads, Writes and Callees are the expected fields read and written, and methods called, in any order
	Reads   []string `yaml:"reads"`
	Writes  []string `yaml:"writes"`
	Callees []string `yaml:"callees"`
}

// Test is a loaded test program
type Test struct {
	Name     string
	Program  *bytecode.Program
	Config   *config.Config
	Expected map[bytecode.MethodID]Expectation
}

// IDs returns the sorted ids of the methods with expectations
func (t *Test) IDs() []bytecode.MethodID {
	return funcutil.SortedKeys(t.Expected)
}

// LoadTest loads the test program in dir. Logs of the loaded configuration are discarded unless verbose is set.
func LoadTest(t *testing.T, dir string, verbose bool) *Test {
	t.Helper()
	prog, err := bytecode.LoadProgram(filepath.Join(dir, "program.yaml"))
	if err != nil {
		t.Fatalf("error loading program: %v", err)
	}
	cfg := config.NewDefault()
	configFile := filepath.Join(dir, "config.yaml")
	if exists(configFile) {
		config.SetGlobalConfig(configFile)
		cfg, err = config.LoadGlobal()
		if err != nil {
			t.Fatalf("error loading config: %v", err)
		}
	}
	if !verbose {
		cfg.LogLevel = int(config.ErrLevel)
	}
	test := &Test{Name: filepath.Base(dir), Program: prog, Config: cfg, Expected: map[bytecode.MethodID]Expectation{}}
	expectFile := filepath.Join(dir, "expect.yaml")
	if exists(expectFile) {
		b, err := os.ReadFile(expectFile)
		if err != nil {
			t.Fatalf("error reading expectations: %v", err)
		}
		if err := yaml.Unmarshal(b, &test.Expected); err != nil {
			t.Fatalf("error parsing expectations: %v", err)
		}
	}
	for id := range test.Expected {
		if _, ok := prog.Method(id); !ok {
			t.Fatalf("expectation for %s, which is not in the program", id)
		}
	}
	return test
}

// Dirs returns the sorted subdirectories of root containing a program.yaml
func Dirs(t *testing.T, root string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(root, "*", "program.yaml"))
	if err != nil {
		t.Fatalf("error listing test programs: %v", err)
	}
	return funcutil.Map(matches, filepath.Dir)
}

func exists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
