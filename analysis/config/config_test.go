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

package config

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

//go:embed testdata
var testfsys embed.FS

func loadFromTestDir(filename string) (string, *Config, error) {
	filename = filepath.Join("testdata", filename)
	b, err := testfsys.ReadFile(filename)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file %v: %v", filename, err)
	}
	config, err := LoadFromBytes(filename, b)
	if err != nil {
		return filename, nil, fmt.Errorf("failed to load file %v: %v", filename, err)
	}
	return filename, config, err
}

func testLoadOneFile(t *testing.T, filename string, expected Config) {
	configFileName, config, err := loadFromTestDir(filename)
	if err != nil {
		t.Fatalf("Error loading %q: %v", configFileName, err)
	}
	c1, err1 := yaml.Marshal(config)
	c2, err2 := yaml.Marshal(expected)
	if err1 != nil {
		t.Errorf("Error marshalling %v", config)
	}
	if err2 != nil {
		t.Errorf("Error marshalling %v", expected)
	}
	if string(c1) != string(c2) {
		t.Errorf("Error in %q:\n%q is not\n%q\n", filename, c1, c2)
	}
}

func TestLoadFull(t *testing.T) {
	expected := NewDefault()
	expected.LogLevel = int(TraceLevel)
	expected.CheckStackArity = false
	expected.MaxDeltaChain = 16
	expected.MaxVisits = 200
	expected.MaxAccessPathDepth = 2
	expected.Parallelism = 8
	expected.FactCacheSize = 32
	expected.SkipFailedMethods = true
	testLoadOneFile(t, "full.yaml", *expected)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	expected := NewDefault()
	expected.MaxVisits = 50
	testLoadOneFile(t, "partial.yaml", *expected)
}

func TestLoadEmpty(t *testing.T) {
	testLoadOneFile(t, "empty.yaml", *NewDefault())
}

func TestLoadInvalid(t *testing.T) {
	_, _, err := loadFromTestDir("invalid.yaml")
	if err == nil {
		t.Fatalf("expected an error when loading invalid.yaml")
	}
	if !strings.Contains(err.Error(), "could not unmarshal") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "does-not-exist.yaml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestRelPath(t *testing.T) {
	name, config, err := loadFromTestDir("full.yaml")
	if err != nil {
		t.Fatalf("Error loading %q: %v", name, err)
	}
	if p := config.RelPath("other.yaml"); p != "testdata/other.yaml" {
		t.Errorf("expected testdata/other.yaml, got %s", p)
	}
}

func TestLimits(t *testing.T) {
	c := NewDefault()
	c.MaxVisits = 3
	if c.ExceedsMaxVisits(3) {
		t.Errorf("3 visits should not exceed a limit of 3")
	}
	if !c.ExceedsMaxVisits(4) {
		t.Errorf("4 visits should exceed a limit of 3")
	}
	c.MaxVisits = 0
	if c.ExceedsMaxVisits(1 << 20) {
		t.Errorf("a limit of 0 should be ignored")
	}
	c.MaxDeltaChain = 0
	if c.ShouldFlatten(1000) {
		t.Errorf("a max delta chain of 0 should disable flattening")
	}
	c.MaxDeltaChain = 4
	if !c.ShouldFlatten(5) || c.ShouldFlatten(4) {
		t.Errorf("flattening threshold is not respected")
	}
}

func TestLogGroupLevels(t *testing.T) {
	c := NewDefault()
	c.LogLevel = int(WarnLevel)
	l := NewLogGroup(c)
	var buf bytes.Buffer
	l.SetAllOutput(&buf)
	l.SetAllFlags(0)
	l.Infof("hidden")
	l.Debugf("hidden")
	l.Warnf("shown %d", 1)
	l.Errorf("shown %d", 2)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level should not be printed: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 1") || !strings.Contains(out, "[ERROR] shown 2") {
		t.Errorf("expected warning and error messages, got %q", out)
	}
	if l.LogsTrace() {
		t.Errorf("warn level should not log traces")
	}
}
