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

/*
Package config provides a simple way to manage configuration files.

Use [Load](filename) to load a configuration from a specific filename, or [NewDefault]() to get the default
configuration.

Use [SetGlobalConfig](filename) to set filename as the global config, and then [LoadGlobal]() to load the global config.

A config file is in yaml format. All settings live under the options key. For example, a valid config file is as
follows:

	options:
	  log-level: 4
	  check-stack-arity: true
	  max-delta-chain: 32
	  max-visits: 500
	  parallelism: 8

Fields that are not set keep the value they have in [NewDefault].

# Logging

[NewLogGroup] builds a [LogGroup] from the log-level of a config: 1 is errors only, 5 traces every instruction
visited by the fixpoint engine.
*/
package config
