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

package bytecode

import (
	"bytes"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// A program file is a yaml document describing the methods of a program:
//
//	fields:
//	  Counter.count: {static: true}
//	externs:
//	  - {id: Lib.log, params: 1}
//	methods:
//	  - id: Math.add
//	    params: 2
//	    returns: true
//	    code:
//	      - ldarg 0
//	      - ldarg 1
//	      - add
//	      - ret
//
// Instructions are written as an opcode and an optional operand. Fields are referenced by their qualified name,
// methods by their id; fields that are not declared are mutable instance fields. Externs declare the methods that
// are called but are not part of the program, and the signatures of indirect calls.
type programFile struct {
	Fields  map[string]fieldDecl `yaml:"fields"`
	Externs []methodDecl         `yaml:"externs"`
	Methods []methodDecl         `yaml:"methods"`
}

type fieldDecl struct {
	Type     string `yaml:"type"`
	Static   bool   `yaml:"static"`
	ReadOnly bool   `yaml:"readonly"`
}

type methodDecl struct {
	ID      string   `yaml:"id"`
	Owner   string   `yaml:"owner"`
	Params  int      `yaml:"params"`
	This    bool     `yaml:"this"`
	Returns bool     `yaml:"returns"`
	Locals  int      `yaml:"locals"`
	Code    []string `yaml:"code"`
}

var opcodesByName = func() map[string]Opcode {
	res := make(map[string]Opcode, NumOpcodes)
	for op := Opcode(0); op < numOpcodes; op++ {
		res[op.String()] = op
	}
	return res
}()

// ParseOpcode returns the opcode with the given name
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[strings.ToLower(name)]
	return op, ok
}

// symbols interns the operands referenced by the instructions of a program
type symbols struct {
	types   map[string]*TypeRef
	fields  map[string]*FieldRef
	methods map[MethodID]*MethodRef
}

// splitQualified splits Owner.Name at the last dot. Constructor names start with a dot: Point..ctor is the member
// .ctor of Point.
func splitQualified(name string) (owner string, member string) {
	k := strings.LastIndex(name, ".")
	if k < 0 {
		return "", name
	}
	if k > 0 && name[k-1] == '.' {
		k--
	}
	return name[:k], name[k+1:]
}

func (s *symbols) typeRef(name string) *TypeRef {
	if t, ok := s.types[name]; ok {
		return t
	}
	t := &TypeRef{Name: name}
	s.types[name] = t
	return t
}

func (s *symbols) field(name string) *FieldRef {
	if f, ok := s.fields[name]; ok {
		return f
	}
	owner, member := splitQualified(name)
	f := &FieldRef{Owner: s.typeRef(owner), Name: member}
	s.fields[name] = f
	return f
}

func (s *symbols) declareMethod(d methodDecl) error {
	if d.ID == "" {
		return errors.New("method without id")
	}
	if d.Params < 0 || d.Locals < 0 {
		return errors.Newf("method %s: negative number of parameters or locals", d.ID)
	}
	id := MethodID(d.ID)
	if _, ok := s.methods[id]; ok {
		return errors.Newf("method %s declared twice", id)
	}
	owner := d.Owner
	if owner == "" {
		owner, _ = splitQualified(d.ID)
	}
	s.methods[id] = &MethodRef{ID: id, NumParams: d.Params, HasThis: d.This, Returns: d.Returns, Owner: s.typeRef(owner)}
	return nil
}

// parseInstruction parses the text of one instruction of a program file.
//
//gocyclo:ignore
func (s *symbols) parseInstruction(text string) (*Instruction, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, errors.New("empty instruction")
	}
	op, ok := ParseOpcode(fields[0])
	if !ok {
		return nil, errors.Newf("unknown opcode %q", fields[0])
	}
	operand := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), fields[0]))
	expectOperand := func() error {
		if operand == "" {
			return errors.Newf("%s expects an operand", op)
		}
		return nil
	}
	switch {
	case op == Ldc:
		if err := expectOperand(); err != nil {
			return nil, err
		}
		return I(op, Constant{Value: parseConstant(operand)}), nil
	case op == Ldstr:
		str, err := strconv.Unquote(operand)
		if err != nil {
			return nil, errors.Wrapf(err, "ldstr expects a quoted string, got %s", operand)
		}
		return I(op, str), nil
	}
	switch op.Shape() {
	case ShapeLoadLocal, ShapeStoreLocal, ShapeLoadArg, ShapeStoreArg, ShapeLoadAddress,
		ShapeBranch, ShapeCondBranch1, ShapeCondBranch2:
		n, err := strconv.Atoi(operand)
		if err != nil {
			return nil, errors.Wrapf(err, "%s expects an integer operand", op)
		}
		return I(op, n), nil
	case ShapeSwitch:
		if err := expectOperand(); err != nil {
			return nil, err
		}
		var targets []int
		for _, t := range strings.Split(operand, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(t))
			if err != nil {
				return nil, errors.Wrapf(err, "switch expects comma separated targets")
			}
			targets = append(targets, n)
		}
		return I(op, targets), nil
	case ShapeLoadField, ShapeStoreField, ShapeLoadFieldAddress, ShapeLoadStaticField, ShapeStoreStaticField:
		if err := expectOperand(); err != nil {
			return nil, err
		}
		return I(op, s.field(operand)), nil
	case ShapeCall, ShapeCallIndirect, ShapeNewObject:
		if err := expectOperand(); err != nil {
			return nil, err
		}
		ref, ok := s.methods[MethodID(operand)]
		if !ok {
			return nil, errors.Newf("unknown method %s, declare it in externs", operand)
		}
		return I(op, ref), nil
	case ShapeConvert, ShapeBox, ShapeNewArray:
		if err := expectOperand(); err != nil {
			return nil, err
		}
		return I(op, s.typeRef(operand)), nil
	}
	if operand != "" {
		return nil, errors.Newf("%s does not take an operand", op)
	}
	return I(op), nil
}

// parseConstant returns the int, float, boolean or string value of text
func parseConstant(text string) any {
	if n, err := strconv.ParseInt(text, 0, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(text); err == nil {
		return b
	}
	return text
}

// LoadProgram reads a program file
func LoadProgram(filename string) (*Program, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not read program file")
	}
	return ParseProgram(filename, b)
}

// ParseProgram parses the yaml program in b. filename is only used in error messages.
func ParseProgram(filename string, b []byte) (*Program, error) {
	var file programFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrapf(err, "could not unmarshal program file %q", filename)
	}
	s := &symbols{types: map[string]*TypeRef{}, fields: map[string]*FieldRef{}, methods: map[MethodID]*MethodRef{}}
	for name, d := range file.Fields {
		owner, member := splitQualified(name)
		f := &FieldRef{Owner: s.typeRef(owner), Name: member, Static: d.Static, ReadOnly: d.ReadOnly}
		if d.Type != "" {
			f.Type = s.typeRef(d.Type)
		}
		s.fields[name] = f
	}
	for _, d := range append(append([]methodDecl{}, file.Externs...), file.Methods...) {
		if err := s.declareMethod(d); err != nil {
			return nil, errors.Wrapf(err, "program file %q", filename)
		}
	}
	prog := NewProgram()
	for _, d := range file.Methods {
		instrs := make([]*Instruction, len(d.Code))
		for k, text := range d.Code {
			instr, err := s.parseInstruction(text)
			if err != nil {
				return nil, errors.Wrapf(err, "program file %q: method %s, instruction %d", filename, d.ID, k)
			}
			instrs[k] = instr
		}
		numArgs := d.Params
		if d.This {
			numArgs++
		}
		sig := Signature{NumArgs: numArgs, NumLocals: d.Locals, HasThis: d.This, Returns: d.Returns}
		m, err := NewMethod(MethodID(d.ID), sig, instrs)
		if err != nil {
			return nil, errors.Wrapf(err, "program file %q", filename)
		}
		prog.Add(m)
	}
	return prog, nil
}
