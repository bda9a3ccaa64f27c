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

package formatutil

import "testing"

func TestStyles(t *testing.T) {
	SetColors(false)
	if s := Red("x", 1); s != "x1" {
		t.Errorf("expected plain text without colors, got %q", s)
	}
	SetColors(true)
	defer SetColors(false)
	if s := Bold("x"); s != "\033[1mx\033[0m" {
		t.Errorf("expected escaped text with colors, got %q", s)
	}
	if s := Sanitize(Bold("x")); s != `\x1b[1mx\x1b[0m` {
		t.Errorf("unexpected sanitized string %q", s)
	}
}
