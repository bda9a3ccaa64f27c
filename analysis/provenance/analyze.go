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

package provenance

import (
	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/facts"
)

// Result is the result of the provenance analysis of a method
type Result struct {
	// States are the states after each instruction
	States *absint.States[Sources]

	// Facts are the completed fact streams
	Facts *Facts

	// Summary aggregates the facts. Pure is not set: it depends on the callees, see driver.AnalyzeProgram.
	Summary *facts.MethodFacts

	// Returned are the sources of the values returned by the method
	Returned Sources
}

// Analyze computes the provenance of the values of m and the facts of its body. Derived sources are bounded by the
// max-access-path-depth option of the engine's configuration.
func Analyze(eng *absint.Engine, m *bytecode.Method) (*Result, error) {
	eng = eng.WithDefaults()
	d := NewDomain(m, eng.Config.MaxAccessPathDepth)
	summary := Summarize(d.Facts())
	states, err := absint.Run[Sources](eng, m, d)
	if err != nil {
		return nil, err
	}
	mf, err := summary.Wait()
	if err != nil {
		return nil, err
	}
	eng.Logger.Debugf("provenance of %s: %s", m.ID, mf)
	return &Result{States: states, Facts: d.Facts(), Summary: mf, Returned: d.returned}, nil
}
