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

package absint

import (
	"fmt"

	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/config"
	"github.com/awslabs/ar-stackflow/analysis/state"
	"github.com/awslabs/ar-stackflow/internal/formatutil"
	"github.com/awslabs/ar-stackflow/internal/funcutil"
	"github.com/awslabs/ar-stackflow/internal/graphutil"
	"github.com/cockroachdb/errors"
)

// Engine holds the settings shared by all the runs of the fixpoint engine. An Engine can be used by several
// goroutines: runs do not share any state.
type Engine struct {
	// Config controls the arity checks, the flattening of states and the visit limit
	Config *config.Config

	// Logger is the log group of the runs
	Logger *config.LogGroup

	// Arity gives the stack effect of instructions for the arity checks
	Arity bytecode.ArityFunc
}

// NewEngine returns an engine with the settings of cfg, logging to a new log group and using the default arity
// of the instructions
func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	return &Engine{Config: cfg, Logger: config.NewLogGroup(cfg), Arity: bytecode.StackEffect}
}

// WithDefaults returns e if all its fields are set, otherwise a copy of e where missing fields have their default
// value. A nil engine has the default configuration.
func (e *Engine) WithDefaults() *Engine {
	if e == nil {
		return NewEngine(nil)
	}
	if e.Config != nil && e.Logger != nil && e.Arity != nil {
		return e
	}
	c := *e
	if c.Config == nil {
		c.Config = config.NewDefault()
	}
	if c.Logger == nil {
		c.Logger = config.NewLogGroup(c.Config)
	}
	if c.Arity == nil {
		c.Arity = bytecode.StackEffect
	}
	return &c
}

// workItem is a state to propagate through an instruction
type workItem[E any] struct {
	pre   state.State[E]
	instr *bytecode.Instruction
}

// Run computes the fixpoint of domain d over method m. The states returned are the states after each instruction.
//
// Run fails when an instruction has no transfer function (the error matches ErrUnsupportedOpcode) and when a
// contract of the engine is violated (the error is an assertion failure, see errors.HasAssertionFailure): stack
// arity mismatch, merge of states of different shapes, out-of-range accesses in a state, or an instruction visited
// more than the configured limit. No partial result is returned on failure.
//
// If d implements Completer, its Complete method is called exactly once before Run returns.
func Run[E any](eng *Engine, m *bytecode.Method, d Domain[E]) (res *States[E], err error) {
	eng = eng.WithDefaults()
	defer func() {
		if x := recover(); x != nil {
			e, ok := x.(error)
			if !ok || !errors.HasAssertionFailure(e) {
				panic(x)
			}
			res, err = nil, errors.Wrapf(e, "analysis of method %s", m.ID)
		}
		if c, ok := d.(Completer); ok {
			c.Complete(err)
		}
	}()
	return run(eng, m, d)
}

func run[E any](eng *Engine, m *bytecode.Method, d Domain[E]) (*States[E], error) {
	n := m.Len()
	initial := d.InitialState(m.Signature)
	if initial.NumArgs() != m.Signature.NumArgs || initial.NumLocals() != m.Signature.NumLocals {
		return nil, errors.AssertionFailedf("initial state of %s has %d args and %d locals, expected %d and %d",
			m.ID, initial.NumArgs(), initial.NumLocals(), m.Signature.NumArgs, m.Signature.NumLocals)
	}
	res := &States[E]{
		method:  m,
		initial: initial,
		merge:   d.Merge,
		slots:   funcutil.Nones[state.State[E]](n),
		visits:  make([]int, n),
	}
	if n == 0 {
		return res, nil
	}
	table := d.Transfers()
	arity, logger := eng.Arity, eng.Logger
	if logger.Level() >= config.DebugLevel {
		logger.Debugf("analyzing %s (%d instructions, loop headers %v)", m.ID, n, graphutil.LoopHeaders(m))
	}

	// FIFO worklist; head is the index of the next item
	queue := []workItem[E]{{pre: initial, instr: m.Instr(0)}}
	for head := 0; head < len(queue); head++ {
		item := queue[head]
		queue[head] = workItem[E]{}
		instr := item.instr
		i := instr.Index

		res.visits[i]++
		if eng.Config.ExceedsMaxVisits(res.visits[i]) {
			return nil, errors.AssertionFailedf("method %s: instruction %s visited more than %d times",
				m.ID, instr, eng.Config.MaxVisits)
		}

		post, err := table.Lookup(instr.Op).Apply(instr, item.pre)
		if err != nil {
			var unsupported *UnsupportedOpcodeError
			if errors.As(err, &unsupported) {
				unsupported.Method = m.ID
			}
			return nil, err
		}

		if eng.Config.CheckStackArity {
			pop, push := arity(m, instr)
			if delta := post.Depth() - item.pre.Depth(); delta != push-pop {
				return nil, errors.AssertionFailedf("method %s: %s changed the stack depth by %d, expected %d",
					m.ID, instr, delta, push-pop)
			}
		}

		stored, changed := post, true
		if prev, ok := res.slots[i].Get(); ok {
			stored, changed = d.Merge(prev, post)
		}
		if !changed {
			continue
		}
		if eng.Config.ShouldFlatten(state.ChainLength(stored)) {
			stored = state.Flatten(stored)
		}
		res.slots[i] = funcutil.Some(stored)
		if logger.LogsTrace() {
			logger.Tracef("%s %s\n\t%s", formatutil.Faint(m.ID), formatutil.Cyan(instr), state.Format(stored, renderElem[E]))
		}

		for _, succ := range m.Successors(instr) {
			if m.IsExit(succ) {
				continue
			}
			queue = append(queue, workItem[E]{pre: stored, instr: succ})
		}
	}
	logger.Debugf("analyzed %s: %d visits, %d/%d instructions reached", m.ID, res.TotalVisits(), res.ReachedCount(), n)
	return res, nil
}

func renderElem[E any](e E) string {
	return fmt.Sprint(e)
}
