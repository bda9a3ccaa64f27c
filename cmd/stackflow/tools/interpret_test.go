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

package tools

import (
	"strings"
	"testing"
)

func validateHint(t *testing.T, errorMsg string, containedHint string) {
	hint := HintForErrorMessage(errorMsg)
	if !strings.Contains(hint, containedHint) {
		t.Fatalf("incorrect hint %q; check and update error message if necessary", hint)
	}
}

func TestHintForFlagAfterFiles(t *testing.T) {
	errorMsg := "error: could not load program -v: could not read program file: open -v: no such file or directory"
	containedHint := "all command line flags should be before the path"
	validateHint(t, errorMsg, containedHint)
}

func TestHintForUnknownMethod(t *testing.T) {
	errorMsg := "error: could not load program p.yaml: method Main.run: instruction 3: unknown method Lib.log, " +
		"declare it in externs"
	containedHint := "declare Lib.log in the externs"
	validateHint(t, errorMsg, containedHint)
}

func TestHintForFailedLoadProgram(t *testing.T) {
	errorMsg := "error: could not load program p.yaml: yaml: line 3: did not find expected key"
	containedHint := "you have provided the right arguments for an analyzer to load a program file"
	validateHint(t, errorMsg, containedHint)
}

func TestHintForMalformedMethod(t *testing.T) {
	errorMsg := "error: method Bad.underflow: cannot pop 2 elements from a stack of depth 1"
	containedHint := "skip-failed-methods"
	validateHint(t, errorMsg, containedHint)
}

func TestNoHint(t *testing.T) {
	if hint := HintForErrorMessage("context canceled"); hint != "" {
		t.Errorf("expected no hint, got %q", hint)
	}
}
