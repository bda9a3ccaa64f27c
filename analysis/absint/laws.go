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
	"github.com/awslabs/ar-stackflow/analysis/state"
	"github.com/cockroachdb/errors"
)

// CheckMergeLaws checks the merge of d on every pair of states of the same shape: merge is idempotent, commutative
// up to eq, and returns an upper bound of both operands. It returns the first violation found.
// Domains use it in their tests.
func CheckMergeLaws[E any](d Domain[E], eq func(x, y E) bool, states ...state.State[E]) error {
	for i, a := range states {
		if m, changed := d.Merge(a, a); changed || !state.Equal(m, a, eq) {
			return errors.Newf("merge is not idempotent on state %d: %s", i, state.Format(a, nil))
		}
		for j, b := range states {
			if i == j || !state.SameShape(a, b) {
				continue
			}
			ab, _ := d.Merge(a, b)
			ba, _ := d.Merge(b, a)
			if !state.Equal(ab, ba, eq) {
				return errors.Newf("merge of states %d and %d is not commutative", i, j)
			}
			if _, changed := d.Merge(ab, a); changed {
				return errors.Newf("merge of states %d and %d is not above %d", i, j, i)
			}
			if _, changed := d.Merge(ab, b); changed {
				return errors.Newf("merge of states %d and %d is not above %d", i, j, j)
			}
		}
	}
	return nil
}
