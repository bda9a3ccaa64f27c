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

// Package analyze implements the analyze tool: it runs the whole-program driver on program files and prints, for
// each method, its memory effects, purity, the variability of its return value and the kind of its branches.
// With -yaml, the report has the format of the expect.yaml files of the test programs.
package analyze

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/awslabs/ar-stackflow/analysis/absint"
	"github.com/awslabs/ar-stackflow/analysis/bytecode"
	"github.com/awslabs/ar-stackflow/analysis/driver"
	"github.com/awslabs/ar-stackflow/analysis/variability"
	"github.com/awslabs/ar-stackflow/cmd/stackflow/tools"
	"github.com/awslabs/ar-stackflow/internal/formatutil"
	"github.com/awslabs/ar-stackflow/internal/funcutil"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Usage of the analyze tool
const Usage = `Analyze program files: provenance facts, purity and variability of every method.
Usage:
  stackflow analyze [options] <program file(s)>
Examples:
  % stackflow analyze -config config.yaml program.yaml
  % stackflow analyze -yaml -method Main.run program.yaml
`

// Flags represents the parsed analyze sub-command flags.
type Flags struct {
	tools.CommonFlags
	yamlOut bool
	methods []string
}

// NewFlags returns the parsed analyze sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("analyze")
	yamlOut := flags.FlagSet.Bool("yaml", false, "print the report in yaml")
	method := flags.FlagSet.String("method", "", "comma separated methods to report (all methods if not specified)")
	common, err := flags.Parse(args, Usage)
	if err != nil {
		return Flags{}, err
	}
	var methods []string
	if *method != "" {
		methods = strings.Split(*method, ",")
	}
	return Flags{CommonFlags: common, yamlOut: *yamlOut, methods: methods}, nil
}

// Run runs the analyze tool with flags.
func Run(flags Flags) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	prog, err := tools.LoadPrograms(flags.FlagSet.Args())
	if err != nil {
		return err
	}
	eng := absint.NewEngine(cfg)
	eng.Logger.Infof(formatutil.Faint("Analyzing %d methods"), prog.Len())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()
	res, err := driver.AnalyzeProgram(ctx, eng, prog)
	if err != nil {
		return errors.Wrap(err, "analysis failed")
	}
	eng.Logger.Infof(formatutil.Faint("Analyzed in %.3f s"), time.Since(start).Seconds())

	report := NewReport(res, flags.methods)
	if flags.yamlOut {
		return report.WriteYAML(os.Stdout)
	}
	return report.WriteText(os.Stdout)
}

// MethodReport is the report of one method. The keys are the keys of analysistest.Expectation.
type MethodReport struct {
	Fails    bool           `yaml:"fails,omitempty"`
	Error    string         `yaml:"error,omitempty"`
	Pure     *bool          `yaml:"pure,omitempty"`
	Mutates  *bool          `yaml:"mutates,omitempty"`
	Return   string         `yaml:"return,omitempty"`
	Branches map[int]string `yaml:"branches,omitempty"`
	Reads    []string       `yaml:"reads,omitempty"`
	Writes   []string       `yaml:"writes,omitempty"`
	Callees  []string       `yaml:"callees,omitempty"`
}

// Report maps method ids to their report
type Report map[bytecode.MethodID]MethodReport

// NewReport builds the report of the methods of res. If methods is not empty, only those methods are reported.
func NewReport(res *driver.Results, methods []string) Report {
	selected := func(id bytecode.MethodID) bool {
		return len(methods) == 0 || funcutil.Contains(methods, string(id))
	}
	report := Report{}
	for id, r := range res.Methods {
		if !selected(id) {
			continue
		}
		pure, mutates := r.Facts.Pure, r.Facts.MutatesMemory
		mr := MethodReport{
			Pure:    &pure,
			Mutates: &mutates,
			Reads:   r.Facts.FieldsRead,
			Writes:  r.Facts.FieldsWritten,
			Callees: funcutil.Map(r.Facts.Callees, func(c bytecode.MethodID) string { return string(c) }),
		}
		mr.Return = funcutil.MapOption(r.Variability.Return, func(v variability.Value) string {
			return v.Kind.String()
		}).ValueOr("")
		if len(r.Variability.Branches) > 0 {
			mr.Branches = map[int]string{}
			for b, kind := range r.Variability.Branches {
				mr.Branches[b] = kind.String()
			}
		}
		report[id] = mr
	}
	for id, err := range res.Failed {
		if selected(id) {
			report[id] = MethodReport{Fails: true, Error: err.Error()}
		}
	}
	return report
}

// WriteYAML writes the report in yaml
func (r Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[bytecode.MethodID]MethodReport(r)); err != nil {
		return errors.Wrap(err, "could not write report")
	}
	return errors.Wrap(enc.Close(), "could not write report")
}

// WriteText writes the report in a human readable form, colored when standard error is a terminal
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder
	for _, id := range funcutil.SortedKeys(r) {
		mr := r[id]
		if mr.Fails {
			fmt.Fprintf(&b, "%s %s\n    %s\n", formatutil.Bold(id), formatutil.Red("failed"), formatutil.Sanitize(mr.Error))
			continue
		}
		purity := formatutil.Yellow("impure")
		if *mr.Pure {
			purity = formatutil.Green("pure")
		}
		fmt.Fprintf(&b, "%s %s\n", formatutil.Bold(id), purity)
		if mr.Return != "" {
			fmt.Fprintf(&b, "    returns: %s\n", formatutil.Cyan(mr.Return))
		}
		for _, branch := range funcutil.SortedKeys(mr.Branches) {
			fmt.Fprintf(&b, "    branch %d: %s\n", branch, mr.Branches[branch])
		}
		for _, line := range []struct {
			what  string
			items []string
		}{{"reads", mr.Reads}, {"writes", mr.Writes}, {"calls", mr.Callees}} {
			if len(line.items) > 0 {
				fmt.Fprintf(&b, "    %s: %s\n", line.what, strings.Join(line.items, ", "))
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "could not write report")
}
