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

// Package facts contains the side-channel outputs of the analyses: streams of facts that listeners subscribe to,
// the per-method aggregate MethodFacts, and the Universe caching facts across methods.
package facts

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Listener receives the facts of a stream, in the order they were published, and then the completion of the
// stream. OnComplete is called exactly once, after every fact.
type Listener[T any] interface {
	OnFact(fact T)
	OnComplete(err error)
}

// ListenerFuncs is a Listener built from functions. Nil functions are ignored.
type ListenerFuncs[T any] struct {
	Fact func(T)
	Done func(error)
}

// OnFact calls Fact
func (l ListenerFuncs[T]) OnFact(fact T) {
	if l.Fact != nil {
		l.Fact(fact)
	}
}

// OnComplete calls Done
func (l ListenerFuncs[T]) OnComplete(err error) {
	if l.Done != nil {
		l.Done(err)
	}
}

// SubscribeMode selects which facts a new listener receives
type SubscribeMode int

const (
	// Replay delivers every fact already published before the new ones
	Replay SubscribeMode = iota
	// OnlyNew delivers only the facts published after the subscription
	OnlyNew
)

type subscription[T any] struct {
	listener Listener[T]
	active   bool
}

// Stream is a stream of facts with multiple listeners. A stream completes exactly once; publishing after completion
// or completing twice is an assertion failure.
//
// Delivery happens on the goroutine that publishes, with the lock of the stream held: listeners must not publish
// to or subscribe to the stream they listen to.
type Stream[T any] struct {
	name      string
	mu        sync.Mutex
	history   []T
	subs      []*subscription[T]
	completed bool
	err       error
	done      chan struct{}
}

// NewStream returns an empty stream. The name is used in error messages.
func NewStream[T any](name string) *Stream[T] {
	return &Stream[T]{name: name, done: make(chan struct{})}
}

// Name returns the name of the stream
func (s *Stream[T]) Name() string {
	return s.name
}

// Subscribe adds a listener to the stream. With Replay, the listener first receives every fact published so far.
// If the stream is already complete, the listener receives the completion immediately.
// The returned function cancels the subscription; no fact is delivered to the listener once it returns.
func (s *Stream[T]) Subscribe(l Listener[T], mode SubscribeMode) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == Replay {
		for _, fact := range s.history {
			l.OnFact(fact)
		}
	}
	if s.completed {
		l.OnComplete(s.err)
		return func() {}
	}
	sub := &subscription[T]{listener: l, active: true}
	s.subs = append(s.subs, sub)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sub.active = false
	}
}

// Publish appends fact to the stream and delivers it to the listeners
func (s *Stream[T]) Publish(fact T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		panic(errors.AssertionFailedf("fact published to completed stream %s", s.name))
	}
	s.history = append(s.history, fact)
	for _, sub := range s.subs {
		if sub.active {
			sub.listener.OnFact(fact)
		}
	}
}

// Complete ends the stream. err is nil when the producer succeeded.
func (s *Stream[T]) Complete(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		panic(errors.AssertionFailedf("stream %s completed twice", s.name))
	}
	s.completed = true
	s.err = err
	for _, sub := range s.subs {
		if sub.active {
			sub.listener.OnComplete(err)
		}
	}
	s.subs = nil
	close(s.done)
}

// Done returns a channel that is closed when the stream completes
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// Completed returns true if the stream has completed
func (s *Stream[T]) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Err returns the error the stream completed with
func (s *Stream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Facts returns a copy of the facts published so far
func (s *Stream[T]) Facts() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]T, len(s.history))
	copy(res, s.history)
	return res
}

// Len returns the number of facts published so far
func (s *Stream[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
