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

/*
Package absint implements a worklist fixpoint engine for the abstract interpretation of stack bytecode.

An analysis is a Domain: an initial state built from the signature of the method, a merge (join) of two states, and
a table of transfer functions indexed by opcode. Run propagates states along the control-flow graph of a method until
no stored state changes, and returns one post-state per reached instruction.

	d := variability.NewDomain(m, lookup)
	states, err := absint.Run[variability.Value](engine, m, d)

The engine is generic in the element type E of the domain: states hold one E per stack slot, local variable and
argument (see package state). Domains must have finite height and a monotone merge for the engine to terminate; the
max-visits option of the configuration turns non-terminating domains into errors.
*/
package absint
