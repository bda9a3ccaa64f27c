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

// Package formatutil colors the debug renderings of states and instructions.
// Colors are only emitted when the log output (standard error) is a terminal.
package formatutil

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

// Style formats its arguments like fmt.Sprint, wrapped in an escape sequence when colors are enabled
type Style func(...any) string

var (
	Bold    = newStyle("\033[1m%s\033[0m")
	Faint   = newStyle("\033[2m%s\033[0m")
	Red     = newStyle("\033[1;31m%s\033[0m")
	Green   = newStyle("\033[1;32m%s\033[0m")
	Yellow  = newStyle("\033[1;33m%s\033[0m")
	Purple  = newStyle("\033[1;34m%s\033[0m")
	Magenta = newStyle("\033[1;35m%s\033[0m")
	Cyan    = newStyle("\033[1;36m%s\033[0m")
)

var (
	colorsOnce sync.Once
	colorsOn   bool
	forced     *bool
)

// ColorsEnabled returns true if styles emit escape sequences
func ColorsEnabled() bool {
	if forced != nil {
		return *forced
	}
	colorsOnce.Do(func() { colorsOn = term.IsTerminal(int(os.Stderr.Fd())) })
	return colorsOn
}

// SetColors forces colors on or off regardless of the terminal. Not safe to call concurrently with rendering.
func SetColors(on bool) {
	forced = &on
}

func newStyle(format string) Style {
	return func(args ...any) string {
		s := fmt.Sprint(args...)
		if !ColorsEnabled() {
			return s
		}
		return fmt.Sprintf(format, s)
	}
}

// Sanitize removes the escape sequences of s by quoting it
func Sanitize(s string) string {
	r := fmt.Sprintf("%q", s)
	if len(r) >= 2 {
		return r[1 : len(r)-1]
	}
	return r
}
