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

// Package tools contains utility types and functions for the stackflow tool frontends.
package tools

import (
	"flag"
	"fmt"
	"os"

	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/config"
	"github.com/cockroachdb/errors"
)

// UnparsedCommonFlags represents an unparsed CLI sub-command flags.
type UnparsedCommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath *string
	Verbose    *bool
}

// NewUnparsedCommonFlags returns an unparsed flag set with a given name.
// This is useful for creating sub-commands that have the flags -config and -verbose but need other flags in
// addition.
func NewUnparsedCommonFlags(name string) UnparsedCommonFlags {
	cmd := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := cmd.String("config", "", "config file path for analysis")
	verbose := cmd.Bool("verbose", false, "verbose printing on standard error")
	return UnparsedCommonFlags{
		FlagSet:    cmd,
		ConfigPath: configPath,
		Verbose:    verbose,
	}
}

// CommonFlags represents a parsed CLI sub-command flags.
// E.g., for the command `stackflow analyze ...`, "analyze" is the sub-command.
type CommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath string
	Verbose    bool
}

// Parse parses args and returns the common flags.
// Prints cmdUsage along with flag docs as the --help message.
func (f UnparsedCommonFlags) Parse(args []string, cmdUsage string) (CommonFlags, error) {
	SetUsage(f.FlagSet, cmdUsage)
	if err := f.FlagSet.Parse(args); err != nil {
		return CommonFlags{}, fmt.Errorf("failed to parse command %s with args %v: %v", f.FlagSet.Name(), args, err)
	}
	return CommonFlags{
		FlagSet:    f.FlagSet,
		ConfigPath: *f.ConfigPath,
		Verbose:    *f.Verbose,
	}, nil
}

// SetUsage sets cmd's usage (for --help flag) to output the string cmdUsage
// followed by each flag's documentation.
func SetUsage(cmd *flag.FlagSet, cmdUsage string) {
	cmd.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", cmdUsage)
		fmt.Fprintf(os.Stderr, "Options:\n")
		cmd.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  %s: %s (default: %q)\n", f.Name, f.Usage, f.DefValue)
		})
	}
}

// LoadConfig loads the config file from configPath, or returns the default config if configPath is empty.
// verbose raises the log level to the debug level.
func LoadConfig(configPath string, verbose bool) (*config.Config, error) {
	cfg := config.NewDefault()
	if configPath != "" {
		config.SetGlobalConfig(configPath)
		loaded, err := config.LoadGlobal()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configPath)
		}
		cfg = loaded
	}
	if verbose {
		cfg.LogLevel = max(cfg.LogLevel, int(config.DebugLevel))
	}
	return cfg, nil
}

// LoadPrograms loads the program files and merges them into one program. Methods of later files replace methods
// with the same identifier.
func LoadPrograms(filenames []string) (*bytecode.Program, error) {
	if len(filenames) == 0 {
		return nil, errors.New("could not load program: no program file")
	}
	prog := bytecode.NewProgram()
	for _, filename := range filenames {
		p, err := bytecode.LoadProgram(filename)
		if err != nil {
			return nil, errors.Wrapf(err, "could not load program %s", filename)
		}
		for _, m := range p.Methods() {
			prog.Add(m)
		}
	}
	return prog, nil
}
