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

// Package driver analyzes all the methods of a program. The provenance analysis of every method produces the facts
// of its body; purity is then computed over the strongly connected components of the call graph, and the
// variability analysis of every method runs with the facts of its callees.
package driver

import (
	"context"
	"sync"

	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/facts"
	"github.com/awslabs/ar-stackflow/analysis/provenance"
	"github.com/awslabs/ar-stackflow/analysis/variability"
	"github.com/awslabs/ar-stackflow/internal/funcutil"
	"github.com/awslabs/ar-stackflow/internal/graphutil"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// MethodResult holds the results of the analyses of one method
type MethodResult struct {
	Provenance  *provenance.Result
	Variability *variability.Result
	// Facts are the facts of the method, with purity set
	Facts *facts.MethodFacts
}

// Results are the results of AnalyzeProgram
type Results struct {
	// Methods maps the methods that were analyzed successfully to their results
	Methods map[bytecode.MethodID]*MethodResult

	// Failed maps the methods whose analysis failed to the error, when failed methods are skipped
	Failed map[bytecode.MethodID]error

	// Components are the strongly connected components of the call graph, callees first
	Components [][]bytecode.MethodID

	// Universe caches the facts of the analyzed methods
	Universe *facts.Universe
}

// IDs returns the sorted identifiers of the methods analyzed successfully
func (r *Results) IDs() []bytecode.MethodID {
	return funcutil.SortedKeys(r.Methods)
}

// Pure returns the ids of the pure methods, sorted
func (r *Results) Pure() []bytecode.MethodID {
	pure := map[bytecode.MethodID]bool{}
	for id, res := range r.Methods {
		pure[id] = res.Facts.Pure
	}
	return funcutil.SetToOrderedSlice(pure)
}

// collector stores the results of the parallel analyses
type collector[T any] struct {
	mu     sync.Mutex
	values map[bytecode.MethodID]T
	failed map[bytecode.MethodID]error
}

func newCollector[T any]() *collector[T] {
	return &collector[T]{values: map[bytecode.MethodID]T{}, failed: map[bytecode.MethodID]error{}}
}

// forEachMethod runs analyze on every method with at most parallelism analyses at once. When skip is true, failures
// are recorded and the other methods are still analyzed; otherwise the first failure cancels the remaining analyses.
func forEachMethod[T any](ctx context.Context, eng *absint.Engine, methods []*bytecode.Method, phase string,
	analyze func(m *bytecode.Method) (T, error)) (*collector[T], error) {
	c := newCollector[T]()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, eng.Config.Parallelism))
	for _, m := range methods {
		m := m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := analyze(m)
			c.mu.Lock()
			defer c.mu.Unlock()
			if err != nil {
				if !eng.Config.SkipFailedMethods {
					return errors.Wrapf(err, "method %s", m.ID)
				}
				eng.Logger.Warnf("%s of method %s failed, skipping: %v", phase, m.ID, err)
				c.failed[m.ID] = err
				return nil
			}
			c.values[m.ID] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

// AnalyzeProgram analyzes every method of the program in two phases, each running methods in parallel:
//   - the provenance analysis computes the facts of each method body;
//   - the variability analysis uses the facts of the callees, with purity computed over the call graph.
//
// A method whose analysis fails makes AnalyzeProgram fail, unless the skip-failed-methods option is set. A failed
// method has no facts: its callers are not pure.
func AnalyzeProgram(ctx context.Context, eng *absint.Engine, prog *bytecode.Program) (*Results, error) {
	eng = eng.WithDefaults()
	methods := prog.Methods()
	eng.Logger.Infof("analyzing %d methods", len(methods))

	prov, err := forEachMethod(ctx, eng, methods, "provenance", func(m *bytecode.Method) (*provenance.Result, error) {
		return provenance.Analyze(eng, m)
	})
	if err != nil {
		return nil, err
	}
	known := make(map[bytecode.MethodID]*facts.MethodFacts, len(prov.values))
	for id, res := range prov.values {
		known[id] = res.Summary
	}
	components := ComputePurity(known)

	lookup := func(id bytecode.MethodID) (*facts.MethodFacts, bool) {
		f, ok := known[id]
		return f, ok
	}
	universe, err := facts.NewUniverse(eng.Config.FactCacheSize, lookup)
	if err != nil {
		return nil, err
	}
	for _, id := range funcutil.SortedKeys(known) {
		universe.Add(known[id])
	}

	analyzable := make([]*bytecode.Method, 0, len(known))
	for _, m := range methods {
		if _, ok := known[m.ID]; ok {
			analyzable = append(analyzable, m)
		}
	}
	vars, err := forEachMethod(ctx, eng, analyzable, "variability", func(m *bytecode.Method) (*variability.Result, error) {
		return variability.Analyze(eng, m, universe.Lookup())
	})
	if err != nil {
		return nil, err
	}

	res := &Results{
		Methods:    make(map[bytecode.MethodID]*MethodResult, len(vars.values)),
		Failed:     map[bytecode.MethodID]error{},
		Components: components,
		Universe:   universe,
	}
	for _, failed := range []map[bytecode.MethodID]error{prov.failed, vars.failed} {
		for id, err := range failed {
			res.Failed[id] = err
		}
	}
	for id, v := range vars.values {
		res.Methods[id] = &MethodResult{Provenance: prov.values[id], Variability: v, Facts: known[id]}
	}
	eng.Logger.Infof("analyzed %d methods, %d pure, %d failed", len(res.Methods), len(res.Pure()), len(res.Failed))
	return res, nil
}

// ComputePurity sets the Pure flag of the facts. A method is pure when its body is side-effect free and all the
// methods it calls are pure; methods calling each other are pure together or not at all. Methods without facts are
// not pure. The strongly connected components of the call graph are returned, callees first.
func ComputePurity(known map[bytecode.MethodID]*facts.MethodFacts) [][]bytecode.MethodID {
	callees := func(id bytecode.MethodID) []bytecode.MethodID {
		if f, ok := known[id]; ok {
			return f.Callees
		}
		return nil
	}
	components := graphutil.StronglyConnectedComponents(funcutil.SortedKeys(known), callees)
	pure := map[bytecode.MethodID]bool{}
	for _, component := range components {
		members := make(map[bytecode.MethodID]bool, len(component))
		for _, id := range component {
			members[id] = true
		}
		ok := funcutil.All(component, func(id bytecode.MethodID) bool {
			f, found := known[id]
			return found && f.IsSideEffectFree() && funcutil.All(f.Callees, func(c bytecode.MethodID) bool {
				return members[c] || pure[c]
			})
		})
		for _, id := range component {
			pure[id] = ok
			if f, found := known[id]; found {
				f.Pure = ok
			}
		}
	}
	return components
}
