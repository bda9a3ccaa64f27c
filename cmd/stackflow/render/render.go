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

// Package render implements a tool for rendering the analyzed programs.
// -callgraph Given a path for a .dot file, writes the call graph of the program, colored by purity.
// -cfg Given a path for a .dot file, writes the control-flow graph of the method selected by -method.
// -print prints the abstract states of the method selected by -method, after each instruction.
package render

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/driver"
	"github.com/awslabs/ar-stackflow/analysis/provenance"
	"github.com/awslabs/ar-stackflow/analysis/rendering"
	"github.com/awslabs/ar-stackflow/analysis/variability"
	"github.com/awslabs/ar-stackflow/cmd/stackflow/tools"
	"github.com/awslabs/ar-stackflow/internal/formatutil"
	"github.com/cockroachdb/errors"
)

const usage = `Render the call graph or the control-flow graph of a method, or print its abstract states.
Usage:
  stackflow render [options] <program file(s)>
Examples:
Render the call graph, pure methods in green
  % stackflow render -callgraph cg.dot program.yaml
Render the control-flow graph of a method, branches colored by kind
  % stackflow render -method Main.run -cfg run.dot program.yaml
Print the provenance states of a method
  % stackflow render -method Main.run -print provenance program.yaml
`

// Flags represents the parsed render sub-command flags.
type Flags struct {
	tools.CommonFlags
	callgraphOut string
	cfgOut       string
	method       string
	printStates  string
}

// NewFlags returns the parsed render sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("render")
	callgraphOut := flags.FlagSet.String("callgraph", "", "output file for call graph (no output if not specified)")
	cfgOut := flags.FlagSet.String("cfg", "", "output file for the control-flow graph of -method")
	method := flags.FlagSet.String("method", "", "method to render")
	printStates := flags.FlagSet.String("print", "", "print the states of -method. One of: provenance, variability")
	common, err := flags.Parse(args, usage)
	if err != nil {
		return Flags{}, err
	}
	if (*cfgOut != "" || *printStates != "") && *method == "" {
		return Flags{}, errors.New("-cfg and -print require -method")
	}
	return Flags{
		CommonFlags:  common,
		callgraphOut: *callgraphOut,
		cfgOut:       *cfgOut,
		method:       *method,
		printStates:  *printStates,
	}, nil
}

// Run runs the render tool with flags.
func Run(flags Flags) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, formatutil.Faint("Reading sources")+"\n")
	prog, err := tools.LoadPrograms(flags.FlagSet.Args())
	if err != nil {
		return err
	}
	res, err := driver.AnalyzeProgram(context.Background(), absint.NewEngine(cfg), prog)
	if err != nil {
		return errors.Wrap(err, "analysis failed")
	}

	if flags.callgraphOut != "" {
		fmt.Fprintf(os.Stderr, formatutil.Faint("Writing call graph in "+flags.callgraphOut)+"\n")
		err := rendering.GraphvizToFile(flags.callgraphOut, func(w io.Writer) error {
			return rendering.WriteCallGraph(res, w)
		})
		if err != nil {
			return errors.Wrap(err, "could not print callgraph")
		}
	}
	if flags.method == "" {
		return nil
	}

	id := bytecode.MethodID(flags.method)
	m, ok := prog.Method(id)
	if !ok {
		return errors.Newf("method %s is not in the program", id)
	}
	r, ok := res.Methods[id]
	if !ok {
		return errors.Wrapf(res.Failed[id], "analysis of %s failed", id)
	}

	if flags.cfgOut != "" {
		fmt.Fprintf(os.Stderr, formatutil.Faint("Writing control-flow graph in "+flags.cfgOut)+"\n")
		err := rendering.GraphvizToFile(flags.cfgOut, func(w io.Writer) error {
			return rendering.WriteMethodGraph(m, r.Variability, w)
		})
		if err != nil {
			return errors.Wrap(err, "could not print control-flow graph")
		}
	}

	switch flags.printStates {
	case "":
		return nil
	case "provenance":
		return rendering.WriteAnnotated(r.Provenance.States, provenance.Format, os.Stdout)
	case "variability":
		return rendering.WriteAnnotated(r.Variability.States, variability.Value.String, os.Stdout)
	default:
		return errors.Newf("states %q not recognized", flags.printStates)
	}
}
