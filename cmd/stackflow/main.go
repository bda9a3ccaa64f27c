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

package main

import (
	"fmt"
	"os"

	"github.com/awslabs/ar-stackflow/analysis"
	"github.com/awslabs/ar-stackflow/cmd/stackflow/analyze"
	"github.com/awslabs/ar-stackflow/cmd/stackflow/render"
	"github.com/awslabs/ar-stackflow/cmd/stackflow/tools"
)

const usage = `Stackflow: abstract interpretation of stack bytecode
Usage:
  stackflow [tool] [options] <program file(s)>
Tools:
  - analyze: runs the provenance and variability analyses and prints the facts of every method
  - render: renders the call graph or the control-flow graph of a method, or prints its abstract states
Examples:
  Analyze a program: stackflow analyze -config config.yaml program.yaml
  Render a call graph: stackflow render -callgraph cg.dot program.yaml`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(analysis.Version)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "analyze":
		flags, err := analyze.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := analyze.Run(flags); err != nil {
			errExit(err)
		}
	case "render":
		flags, err := render.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := render.Run(flags); err != nil {
			errExit(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	hint := tools.HintForErrorMessage(err.Error())
	if hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(2)
}
