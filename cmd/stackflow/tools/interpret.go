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

package tools

import "regexp"

// Captures errors happening before any analysis starts (program could not load)
var regexCouldNotLoad = regexp.MustCompile("could not load program")

// Captures the kind of error that happen when a flag is put after the program files
var flagAfterFiles = regexp.MustCompile("could not read program file: open -\\w+")

// Captures calls to methods that are neither defined nor declared
var unknownMethod = regexp.MustCompile("unknown method ([^\\s,]+)")

// Captures the failures of the engine that are caused by malformed code
var stackMismatch = regexp.MustCompile("pop of an empty stack|cannot pop|states of different shapes|changed the stack depth")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	if regexCouldNotLoad.MatchString(errMsg) {
		if flagAfterFiles.MatchString(errMsg) {
			return "all command line flags should be before the path to the program files to analyze"
		}
		if m := unknownMethod.FindStringSubmatch(errMsg); m != nil {
			return "declare " + m[1] + " in the externs of the program file, with its number of parameters"
		}
		return "make sure you have provided the right arguments for an analyzer to load a program file"
	}
	if stackMismatch.MatchString(errMsg) {
		return "the code of a method is malformed; set skip-failed-methods in the config to analyze the other methods"
	}
	return ""
}
