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

// Package analysis groups the analyses of stackflow. The subpackages are:
//   - bytecode: the instruction set, methods and the program loader
//   - state, absint: the abstract frame and the fixpoint engine
//   - provenance, variability: the two analyses built on the engine
//   - driver: the whole-program driver that runs both analyses and computes purity
package analysis

// Version is the version of the tools, printed by the -version flag
const Version = "v0.3.0"
