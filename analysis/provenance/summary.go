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
	"sync"

	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/facts"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"
)

// Summary aggregates the fact streams of a method into its MethodFacts. The aggregate is final once every stream
// has completed.
type Summary struct {
	method bytecode.MethodID
	wg     sync.WaitGroup

	mu                  sync.Mutex
	err                 error
	mutates             bool
	readsMutableStatics bool
	indirect            bool
	constructs          bool

	fieldsRead       mapset.Set[string]
	fieldsWritten    mapset.Set[string]
	fieldsReferenced mapset.Set[string]
	callees          mapset.Set[bytecode.MethodID]
}

// frameLocal returns true if writing through any of the sources only affects memory owned by the method: its
// locals and arguments, and the objects it allocated
func frameLocal(target Sources) bool {
	local := true
	target.Each(func(src Source) bool {
		switch src.Kind {
		case LocalAddress, ArgumentAddress, NewObject, NewArray, Null:
			return false
		}
		local = false
		return true
	})
	return local
}

// listen subscribes fact to stream; the summary waits for the completion of the stream
func listen[T any](s *Summary, stream *facts.Stream[T], fact func(T)) {
	s.wg.Add(1)
	stream.Subscribe(facts.ListenerFuncs[T]{
		Fact: fact,
		Done: func(err error) {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
			s.wg.Done()
		},
	}, facts.Replay)
}

// Summarize subscribes to the streams of fs. Facts published before the call are replayed.
func Summarize(fs *Facts) *Summary {
	s := &Summary{
		method:           fs.Method,
		fieldsRead:       mapset.NewSet[string](),
		fieldsWritten:    mapset.NewSet[string](),
		fieldsReferenced: mapset.NewSet[string](),
		callees:          mapset.NewSet[bytecode.MethodID](),
	}
	set := func(flag *bool) {
		s.mu.Lock()
		*flag = true
		s.mu.Unlock()
	}
	listen(s, fs.FieldsRead, func(f FieldRead) {
		s.fieldsRead.Add(f.Field)
		if f.Static && !f.ReadOnly {
			set(&s.readsMutableStatics)
		}
	})
	listen(s, fs.FieldsWritten, func(f FieldWrite) {
		s.fieldsWritten.Add(f.Field)
		if f.Static || !frameLocal(f.Object) {
			set(&s.mutates)
		}
	})
	listen(s, fs.FieldsReferenced, func(f FieldReference) {
		s.fieldsReferenced.Add(f.Field)
	})
	listen(s, fs.Calls, func(c CallSite) {
		if c.Indirect {
			set(&s.indirect)
			return
		}
		s.callees.Add(c.Callee)
	})
	listen(s, fs.ObjectsConstructed, func(ObjectConstruction) { set(&s.constructs) })
	listen(s, fs.ArraysConstructed, func(ArrayConstruction) { set(&s.constructs) })
	listen(s, fs.TypesReferenced, nil)
	listen(s, fs.Mutations, func(m Mutation) {
		if !frameLocal(m.Target) {
			set(&s.mutates)
		}
	})
	listen(s, fs.IndirectLoads, nil)
	listen(s, fs.Equivalences, nil)
	return s
}

func sorted[T string | bytecode.MethodID](s mapset.Set[T]) []T {
	res := s.ToSlice()
	slices.Sort(res)
	return res
}

// Wait blocks until every stream has completed and returns the facts of the method. If a stream completed with an
// error, the error is returned and the facts are nil.
func (s *Summary) Wait() (*facts.MethodFacts, error) {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &facts.MethodFacts{
		Method:              s.method,
		FieldsRead:          sorted(s.fieldsRead),
		FieldsWritten:       sorted(s.fieldsWritten),
		FieldsReferenced:    sorted(s.fieldsReferenced),
		Callees:             sorted(s.callees),
		HasIndirectCalls:    s.indirect,
		MutatesMemory:       s.mutates,
		ReadsMutableStatics: s.readsMutableStatics,
		ConstructsObjects:   s.constructs,
	}, nil
}
