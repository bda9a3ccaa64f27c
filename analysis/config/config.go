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

package config

import (
	"os"
	"path"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

const (
	// DefaultMaxDeltaChain is the default length above which stored delta states are flattened
	DefaultMaxDeltaChain = 64
	// DefaultMaxVisits is the default number of times a single instruction may be visited by the engine
	DefaultMaxVisits = 10000
	// DefaultMaxAccessPathDepth is the default nesting bound of derived provenance sources
	DefaultMaxAccessPathDepth = 3
	// DefaultParallelism is the default number of methods analyzed concurrently by the driver
	DefaultParallelism = 4
	// DefaultFactCacheSize is the default number of method facts kept in the fact universe
	DefaultFactCacheSize = 1024
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config contains the options of the analyses.
// If some field is not defined in the config file, it will be its default value (see NewDefault).
// private fields are not populated from a yaml file, but computed after loading.
type Config struct {
	Options `yaml:"options"`

	sourceFile string
}

// Options are the settings of the engine, the domains and the driver.
type Options struct {
	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// CheckStackArity enables the assertion that every transfer function changes the stack depth by exactly
	// push-count - pop-count of the instruction it was applied to.
	CheckStackArity bool `yaml:"check-stack-arity"`

	// MaxDeltaChain is the length of a delta chain above which the engine flattens a state before storing it.
	// If MaxDeltaChain <= 0, chains are never flattened outside of merges.
	MaxDeltaChain int `yaml:"max-delta-chain"`

	// MaxVisits bounds the number of times a single instruction can be visited during one run. Exceeding it is an
	// assertion failure: it means the domain does not converge. If MaxVisits <= 0, it is ignored.
	MaxVisits int `yaml:"max-visits"`

	// MaxAccessPathDepth bounds the nesting of derived sources (field of field of ...) in the provenance domain.
	MaxAccessPathDepth int `yaml:"max-access-path-depth"`

	// Parallelism is the number of methods the driver analyzes concurrently.
	Parallelism int `yaml:"parallelism"`

	// FactCacheSize is the number of method facts kept in memory by the fact universe.
	FactCacheSize int `yaml:"fact-cache-size"`

	// SkipFailedMethods makes the driver log and skip methods whose analysis failed instead of returning an error.
	SkipFailedMethods bool `yaml:"skip-failed-methods"`
}

// NewDefault returns a default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Options: Options{
			LogLevel:           int(InfoLevel),
			CheckStackArity:    true,
			MaxDeltaChain:      DefaultMaxDeltaChain,
			MaxVisits:          DefaultMaxVisits,
			MaxAccessPathDepth: DefaultMaxAccessPathDepth,
			Parallelism:        DefaultParallelism,
			FactCacheSize:      DefaultFactCacheSize,
			SkipFailedMethods:  false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not read config file")
	}
	return LoadFromBytes(filename, b)
}

// LoadFromBytes parses the yaml configuration in b. filename is only recorded to resolve relative paths.
func LoadFromBytes(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "could not unmarshal config file %q", filename)
	}
	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.MaxAccessPathDepth <= 0 {
		cfg.MaxAccessPathDepth = DefaultMaxAccessPathDepth
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.FactCacheSize <= 0 {
		cfg.FactCacheSize = DefaultFactCacheSize
	}
	return cfg, nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

// ExceedsMaxVisits returns true if n visits of a single instruction exceed the limit of the configuration.
// If the configuration setting is <= 0, this returns false.
func (c Config) ExceedsMaxVisits(n int) bool {
	if c.MaxVisits <= 0 {
		return false
	}
	return n > c.MaxVisits
}

// ShouldFlatten returns true if a delta chain of length n should be flattened before being stored.
func (c Config) ShouldFlatten(n int) bool {
	return c.MaxDeltaChain > 0 && n > c.MaxDeltaChain
}
