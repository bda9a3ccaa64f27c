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
	"io"
	"testing"

	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/config"
	"github.com/awslabs/ar-stackflow/analysis/state"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"
)

var (
	typeT  = &bytecode.TypeRef{Name: "T"}
	fieldF = &bytecode.FieldRef{Owner: typeT, Name: "F"}
	fieldN = &bytecode.FieldRef{Owner: typeT, Name: "N"}
)

func testEngine(maxDepth int) *absint.Engine {
	cfg := config.NewDefault()
	if maxDepth > 0 {
		cfg.MaxAccessPathDepth = maxDepth
	}
	eng := absint.NewEngine(cfg)
	eng.Logger.SetAllOutput(io.Discard)
	return eng
}

func analyze(t *testing.T, m *bytecode.Method, maxDepth int) *Result {
	t.Helper()
	res, err := Analyze(testEngine(maxDepth), m)
	if err != nil {
		t.Fatalf("analysis of %s failed: %v", m.ID, err)
	}
	return res
}

func expectKeys(t *testing.T, what string, s Sources, keys ...string) {
	t.Helper()
	if got := Keys(s); !slices.Equal(got, keys) {
		t.Errorf("%s: expected %v, got %v", what, keys, got)
	}
}

func TestFieldWriteThenRead(t *testing.T) {
	m := bytecode.MustMethod("setThenGet", bytecode.Signature{NumArgs: 2, HasThis: true, Returns: true},
		bytecode.I(bytecode.Ldarg, 0),
		bytecode.I(bytecode.Ldarg, 1),
		bytecode.I(bytecode.Stfld, fieldF),
		bytecode.I(bytecode.Ldarg, 0),
		bytecode.I(bytecode.Ldfld, fieldF),
		bytecode.I(bytecode.Ret),
	)
	res := analyze(t, m, 0)

	writes := res.Facts.FieldsWritten.Facts()
	if len(writes) != 1 {
		t.Fatalf("expected one field write, got %v", writes)
	}
	if w := writes[0]; w.Instr != 2 || w.Field != "T.F" || w.Static {
		t.Errorf("unexpected field write %s", w)
	}
	expectKeys(t, "written object", writes[0].Object, "arg0")
	expectKeys(t, "written value", writes[0].Value, "arg1")

	reads := res.Facts.FieldsRead.Facts()
	if len(reads) != 1 {
		t.Fatalf("expected one field read, got %v", reads)
	}
	expected := Source{Kind: Field, Name: "T.F", Base: "arg0", Depth: 1}
	if r := reads[0]; r.Instr != 4 || r.Result.Cardinality() != 1 || !r.Result.Contains(expected) {
		t.Errorf("unexpected field read %s", r)
	}
	expectKeys(t, "returned", res.Returned, "arg0.T.F")

	if !res.Facts.FieldsRead.Completed() || !res.Facts.Equivalences.Completed() {
		t.Errorf("expected the streams to be complete")
	}
	if res.Facts.FieldsRead.Err() != nil {
		t.Errorf("expected the streams to complete without error")
	}
	sum := res.Summary
	if !slices.Equal(sum.FieldsRead, []string{"T.F"}) || !slices.Equal(sum.FieldsWritten, []string{"T.F"}) {
		t.Errorf("unexpected fields in summary %s", sum)
	}
	if !sum.MutatesMemory || sum.IsSideEffectFree() {
		t.Errorf("writing a field of an argument mutates memory")
	}
}

func TestAccessPathDepth(t *testing.T) {
	m := bytecode.MustMethod("chain", bytecode.Signature{NumArgs: 1, Returns: true},
		bytecode.I(bytecode.Ldarg, 0),
		bytecode.I(bytecode.Ldfld, fieldF),
		bytecode.I(bytecode.Ldfld, fieldF),
		bytecode.I(bytecode.Ldfld, fieldF),
		bytecode.I(bytecode.Ret),
	)
	res := analyze(t, m, 2)
	expectKeys(t, "depth 1", res.States.At(1).At(0), "arg0.T.F")
	expectKeys(t, "depth 2", res.States.At(2).At(0), "arg0.T.F.T.F")
	expectKeys(t, "beyond the limit", res.Returned, "*.T.F")
	res.Returned.Each(func(s Source) bool {
		if s.Depth != 2 || s.Base != AnyBase {
			t.Errorf("expected a source of depth 2 with any base, got %+v", s)
		}
		return false
	})
}

func TestLoopOverAccessPathsTerminates(t *testing.T) {
	m := bytecode.MustMethod("walk", bytecode.Signature{NumArgs: 1, NumLocals: 1},
		bytecode.I(bytecode.Ldarg, 0),      // 0
		bytecode.I(bytecode.Stloc, 0),      // 1
		bytecode.I(bytecode.Ldloc, 0),      // 2
		bytecode.I(bytecode.Ldfld, fieldN), // 3
		bytecode.I(bytecode.Stloc, 0),      // 4
		bytecode.I(bytecode.Ldloc, 0),      // 5
		bytecode.I(bytecode.Brtrue, 2),     // 6
		bytecode.I(bytecode.Ret),           // 7
	)
	res := analyze(t, m, 2)
	expectKeys(t, "local in loop", res.States.At(4).Local(0), "*.T.N", "arg0.T.N", "arg0.T.N.T.N")
	expectKeys(t, "local at loop header", res.States.At(2).Local(0), "*.T.N", "arg0", "arg0.T.N", "arg0.T.N.T.N")
	if !res.States.Reached(7) {
		t.Errorf("expected the return to be reached")
	}
}

func TestLoadIndirect(t *testing.T) {
	local := bytecode.MustMethod("throughLocal", bytecode.Signature{NumArgs: 1, NumLocals: 1, Returns: true},
		bytecode.I(bytecode.Ldarg, 0),
		bytecode.I(bytecode.Stloc, 0),
		bytecode.I(bytecode.Ldloca, 0),
		bytecode.I(bytecode.Ldind),
		bytecode.I(bytecode.Ret),
	)
	res := analyze(t, local, 0)
	expectKeys(t, "through a local address", res.Returned, "arg0")
	loads := res.Facts.IndirectLoads.Facts()
	if len(loads) != 1 {
		t.Fatalf("expected one indirect load, got %v", loads)
	}
	expectKeys(t, "address", loads[0].Address, "&local0")

	field := bytecode.MustMethod("throughField", bytecode.Signature{NumArgs: 1, Returns: true},
		bytecode.I(bytecode.Ldarg, 0),
		bytecode.I(bytecode.Ldflda, fieldF),
		bytecode.I(bytecode.Ldind),
		bytecode.I(bytecode.Ret),
	)
	res = analyze(t, field, 0)
	expectKeys(t, "through a field address", res.Returned, "arg0.T.F")
	if !slices.Equal(res.Summary.FieldsReferenced, []string{"T.F"}) {
		t.Errorf("expected the field to be referenced, got %v", res.Summary.FieldsReferenced)
	}

	unknown := bytecode.MustMethod("throughArg", bytecode.Signature{NumArgs: 1, Returns: true},
		bytecode.I(bytecode.Ldarg, 0),
		bytecode.I(bytecode.Ldind),
		bytecode.I(bytecode.Ret),
	)
	res = analyze(t, unknown, 0)
	expectKeys(t, "through an unknown address", res.Returned, "*arg0")
}

func TestStoreIndirectToLocal(t *testing.T) {
	m := bytecode.MustMethod("storeToLocal", bytecode.Signature{NumLocals: 1, Returns: true},
		bytecode.I(bytecode.Ldloca, 0),
		bytecode.I(bytecode.Ldstr, "s"),
		bytecode.I(bytecode.Stind),
		bytecode.I(bytecode.Ldloc, 0),
		bytecode.I(bytecode.Ret),
	)
	res := analyze(t, m, 0)
	expectKeys(t, "returned", res.Returned, `"s"`)
	mutations := res.Facts.Mutations.Facts()
	if len(mutations) != 1 || mutations[0].Kind != IndirectStore {
		t.Fatalf("expected one indirect store, got %v", mutations)
	}
	if res.Summary.MutatesMemory {
		t.Errorf("a store to a local does not mutate memory")
	}
}

func TestCallsAndAllocations(t *testing.T) {
	callee := &bytecode.MethodRef{ID: "C.m", NumParams: 1, HasThis: true, Returns: true}
	ctor := &bytecode.MethodRef{ID: "T..ctor", NumParams: 1, HasThis: true, Owner: typeT}
	m := bytecode.MustMethod("allocate", bytecode.Signature{NumArgs: 1, NumLocals: 1},
		bytecode.I(bytecode.Ldarg, 0),                         // 0
		bytecode.I(bytecode.Ldc, bytecode.Constant{Value: 1}), // 1
		bytecode.I(bytecode.Call, callee),                     // 2
		bytecode.I(bytecode.Newobj, ctor),                     // 3
		bytecode.I(bytecode.Stloc, 0),                         // 4
		bytecode.I(bytecode.Ldc, bytecode.Constant{Value: 3}), // 5
		bytecode.I(bytecode.Newarr, typeT),                    // 6
		bytecode.I(bytecode.Ldc, bytecode.Constant{Value: 0}), // 7
		bytecode.I(bytecode.Ldloc, 0),                         // 8
		bytecode.I(bytecode.Stelem),                           // 9
		bytecode.I(bytecode.Ret),                              // 10
	)
	res := analyze(t, m, 0)

	calls := res.Facts.Calls.Facts()
	if len(calls) != 2 {
		t.Fatalf("expected two call sites, got %v", calls)
	}
	if calls[0].Callee != "C.m" || len(calls[0].Args) != 2 {
		t.Fatalf("unexpected call %s", calls[0])
	}
	expectKeys(t, "receiver", calls[0].Args[0], "arg0")
	expectKeys(t, "argument", calls[0].Args[1], "const@1")
	if calls[1].Callee != "T..ctor" || len(calls[1].Args) != 1 {
		t.Fatalf("unexpected constructor call %s", calls[1])
	}
	expectKeys(t, "constructor argument", calls[1].Args[0], "C.m()@2")

	var entities []string
	for _, e := range res.Facts.Equivalences.Facts() {
		entities = append(entities, e.Entity)
	}
	if !slices.Equal(entities, []string{"C.m#0", "C.m#1", "T..ctor#1"}) {
		t.Errorf("unexpected equivalences %v", entities)
	}
	expectKeys(t, "object", res.States.At(4).Local(0), "new T@3")

	mutations := res.Facts.Mutations.Facts()
	if len(mutations) != 1 || mutations[0].Kind != ElementStore {
		t.Fatalf("expected one element store, got %v", mutations)
	}
	expectKeys(t, "array", mutations[0].Target, "new T[]@6")
	if n := res.Facts.TypesReferenced.Len(); n != 2 {
		t.Errorf("expected two type references, got %d", n)
	}
	if n := res.Facts.ArraysConstructed.Len(); n != 1 {
		t.Errorf("expected one array construction, got %d", n)
	}

	sum := res.Summary
	if !slices.Equal(sum.Callees, []bytecode.MethodID{"C.m", "T..ctor"}) {
		t.Errorf("unexpected callees %v", sum.Callees)
	}
	if !sum.ConstructsObjects || sum.MutatesMemory || sum.HasIndirectCalls {
		t.Errorf("unexpected summary %s", sum)
	}
}

func TestIndirectCall(t *testing.T) {
	ref := &bytecode.MethodRef{ID: "fn(int)int", NumParams: 1, Returns: true}
	m := bytecode.MustMethod("apply", bytecode.Signature{NumArgs: 2, Returns: true},
		bytecode.I(bytecode.Ldarg, 0),
		bytecode.I(bytecode.Ldarg, 1),
		bytecode.I(bytecode.Calli, ref),
		bytecode.I(bytecode.Ret),
	)
	res := analyze(t, m, 0)
	calls := res.Facts.Calls.Facts()
	if len(calls) != 1 || !calls[0].Indirect || len(calls[0].Args) != 1 {
		t.Fatalf("unexpected calls %v", calls)
	}
	expectKeys(t, "target", calls[0].Target, "arg1")
	expectKeys(t, "argument", calls[0].Args[0], "arg0")
	expectKeys(t, "returned", res.Returned, "*()@2")
	if !res.Summary.HasIndirectCalls || len(res.Summary.Callees) != 0 {
		t.Errorf("unexpected summary %s", res.Summary)
	}
}

func TestFactsArePublishedOnce(t *testing.T) {
	m := bytecode.MustMethod("loop", bytecode.Signature{NumArgs: 2, NumLocals: 1},
		bytecode.I(bytecode.Ldarg, 0),      // 0
		bytecode.I(bytecode.Ldfld, fieldF), // 1
		bytecode.I(bytecode.Pop),           // 2
		bytecode.I(bytecode.Ldarg, 1),      // 3
		bytecode.I(bytecode.Stloc, 0),      // 4
		bytecode.I(bytecode.Ldarg, 1),      // 5
		bytecode.I(bytecode.Brtrue, 0),     // 6
		bytecode.I(bytecode.Ret),           // 7
	)
	res := analyze(t, m, 0)
	if v := res.States.Visits(1); v != 2 {
		t.Errorf("expected the field read to be visited twice, got %d", v)
	}
	if n := res.Facts.FieldsRead.Len(); n != 1 {
		t.Errorf("expected the field read to be published once, got %d", n)
	}
}

func TestStaticFields(t *testing.T) {
	static := &bytecode.FieldRef{Owner: typeT, Name: "S", Static: true}
	frozen := &bytecode.FieldRef{Owner: typeT, Name: "K", Static: true, ReadOnly: true}
	m := bytecode.MustMethod("statics", bytecode.Signature{Returns: true},
		bytecode.I(bytecode.Ldsfld, frozen),
		bytecode.I(bytecode.Ret),
	)
	res := analyze(t, m, 0)
	expectKeys(t, "returned", res.Returned, "T.K")
	if !res.Summary.IsSideEffectFree() {
		t.Errorf("reading a read-only static is side-effect free")
	}

	m = bytecode.MustMethod("bump", bytecode.Signature{},
		bytecode.I(bytecode.Ldsfld, static),
		bytecode.I(bytecode.Ldc, bytecode.Constant{Value: 1}),
		bytecode.I(bytecode.Add),
		bytecode.I(bytecode.Stsfld, static),
		bytecode.I(bytecode.Ret),
	)
	res = analyze(t, m, 0)
	writes := res.Facts.FieldsWritten.Facts()
	if len(writes) != 1 || !writes[0].Static || writes[0].Object != nil {
		t.Fatalf("unexpected writes %v", writes)
	}
	expectKeys(t, "written value", writes[0].Value, "op@2")
	if !res.Summary.ReadsMutableStatics || !res.Summary.MutatesMemory {
		t.Errorf("unexpected summary %s", res.Summary)
	}
}

func TestSummarizeReplaysAndFails(t *testing.T) {
	fs := NewFacts("m")
	fs.Calls.Publish(CallSite{Instr: 0, Callee: "a"})
	fs.Calls.Publish(CallSite{Instr: 1, Callee: "a"})
	s := Summarize(fs)
	fs.Calls.Publish(CallSite{Instr: 2, Callee: "b"})
	fs.Complete(nil)
	mf, err := s.Wait()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !slices.Equal(mf.Callees, []bytecode.MethodID{"a", "b"}) {
		t.Errorf("expected the callees published before and after the subscription, got %v", mf.Callees)
	}

	fs = NewFacts("m")
	s = Summarize(fs)
	failure := errors.New("failed")
	fs.Complete(failure)
	if _, err := s.Wait(); !errors.Is(err, failure) {
		t.Errorf("expected the completion error, got %v", err)
	}
}

func TestAnalyzeFailureCompletesStreams(t *testing.T) {
	m := bytecode.MustMethod("underflow", bytecode.Signature{},
		bytecode.I(bytecode.Pop),
		bytecode.I(bytecode.Ret),
	)
	d := NewDomain(m, 3)
	_, err := absint.Run[Sources](testEngine(0), m, d)
	if err == nil || !errors.HasAssertionFailure(err) {
		t.Fatalf("expected an assertion failure, got %v", err)
	}
	if !d.Facts().Mutations.Completed() || d.Facts().Mutations.Err() == nil {
		t.Errorf("expected the streams to complete with the error")
	}
}

func TestMergeLaws(t *testing.T) {
	m := bytecode.MustMethod("setThenGet", bytecode.Signature{NumArgs: 2, NumLocals: 1, HasThis: true, Returns: true},
		bytecode.I(bytecode.Ldarg, 0),
		bytecode.I(bytecode.Ldarg, 1),
		bytecode.I(bytecode.Stfld, fieldF),
		bytecode.I(bytecode.Ldarg, 0),
		bytecode.I(bytecode.Ldfld, fieldF),
		bytecode.I(bytecode.Ret),
	)
	d := NewDomain(m, 3)
	a := NewSources(Source{Kind: Argument, Index: 0})
	b := NewSources(Source{Kind: Null}, Source{Kind: Constant, Index: 4})
	states := []state.State[Sources]{
		state.NewFlat([]Sources{a}, []Sources{NewSources()}, []Sources{a, b}),
		state.NewFlat([]Sources{b}, []Sources{a}, []Sources{b, b}),
		state.NewFlat([]Sources{a.Union(b)}, []Sources{b}, []Sources{NewSources(), a}),
		state.NewFlat(nil, []Sources{a}, []Sources{a, a}),
	}
	eq := func(x, y Sources) bool { return x.Equal(y) }
	if err := absint.CheckMergeLaws[Sources](d, eq, states...); err != nil {
		t.Error(err)
	}
}

func TestSourceKeys(t *testing.T) {
	for _, test := range []struct {
		src Source
		key string
	}{
		{Source{Kind: Argument, Index: 2}, "arg2"},
		{Source{Kind: LocalAddress, Index: 1}, "&local1"},
		{Source{Kind: ArgumentAddress}, "&arg0"},
		{Source{Kind: FieldAddress, Base: "arg0", Name: "T.F"}, "&arg0.T.F"},
		{Source{Kind: ElementAddress, Base: "arg1"}, "&arg1[]"},
		{Source{Kind: ArrayElement, Base: "arg1"}, "arg1[]"},
		{Source{Kind: Box, Index: 3}, "box@3"},
		{Source{Kind: StringLiteral, Name: "x"}, `"x"`},
		{Source{Kind: NewArray, Index: 4, Name: "int"}, "new int[]@4"},
		{Source{Kind: Null}, "null"},
	} {
		if k := test.src.Key(); k != test.key {
			t.Errorf("expected %q, got %q", test.key, k)
		}
	}
	deep := Derive(Field, Source{Kind: Field, Base: "arg0", Name: "T.F", Depth: 3}, "T.G", 3)
	if deep.Base != AnyBase || deep.Depth != 3 || deep.Key() != "*.T.G" {
		t.Errorf("unexpected derived source %+v", deep)
	}
}
