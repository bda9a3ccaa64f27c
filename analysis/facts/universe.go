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

package facts

import (
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru"
)

// Universe is a bounded cache of method facts shared by concurrent analyses.
// On a miss, the facts are computed by the function given to NewUniverse, if any, and cached.
type Universe struct {
	cache   *lru.Cache
	compute Lookup
}

// NewUniverse returns a universe keeping at most size facts. compute may be nil.
func NewUniverse(size int, compute Lookup) (*Universe, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrapf(err, "could not create fact cache of size %d", size)
	}
	return &Universe{cache: cache, compute: compute}, nil
}

// Add caches the facts of f.Method
func (u *Universe) Add(f *MethodFacts) {
	u.cache.Add(f.Method, f)
}

// Get returns the facts of the method, computing them if they are not cached
func (u *Universe) Get(id bytecode.MethodID) (*MethodFacts, bool) {
	if v, ok := u.cache.Get(id); ok {
		return v.(*MethodFacts), true
	}
	if u.compute == nil {
		return nil, false
	}
	f, ok := u.compute(id)
	if !ok {
		return nil, false
	}
	u.cache.Add(id, f)
	return f, true
}

// Contains returns true if the facts of the method are cached, without computing them
func (u *Universe) Contains(id bytecode.MethodID) bool {
	return u.cache.Contains(id)
}

// Len returns the number of cached facts
func (u *Universe) Len() int {
	return u.cache.Len()
}

// Lookup returns the Lookup of the universe
func (u *Universe) Lookup() Lookup {
	return u.Get
}
