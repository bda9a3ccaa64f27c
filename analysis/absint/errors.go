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
	"github.com/cockroachdb/errors"
)

// ErrUnsupportedOpcode is the cause of every UnsupportedOpcodeError
var ErrUnsupportedOpcode = errors.New("unsupported opcode")

// UnsupportedOpcodeError is returned when the domain has no transfer function for an instruction that the engine
// reached. The run is aborted.
type UnsupportedOpcodeError struct {
	Method bytecode.MethodID
	Instr  *bytecode.Instruction
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("method %s: %s: %v", e.Method, e.Instr, ErrUnsupportedOpcode)
}

func (e *UnsupportedOpcodeError) Unwrap() error {
	return ErrUnsupportedOpcode
}
