// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the mipkit configuration: a YAML file, an optional .env file and
// MIPKIT_* environment variables, applied in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	log "github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
	"gopkg.in/yaml.v3"
)

// Solver backends.
const (
	BackendLocal = "local"
	BackendReMIP = "remip"
)

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the mipkit configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Solver SolverConfig `yaml:"solver"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit is the sustained number of solve requests per second; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// SolverConfig selects and tunes the solver backend.
type SolverConfig struct {
	Backend     string        `yaml:"backend"`
	ReMIPURL    string        `yaml:"remip_url"`
	Stream      bool          `yaml:"stream"`
	TimeLimit   time.Duration `yaml:"time_limit"`
	MaxNodes    int           `yaml:"max_nodes"`
	RelativeGap float64       `yaml:"relative_gap"`
	// MaxRetries bounds the retries of a failed ReMIP request.
	MaxRetries int `yaml:"max_retries"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":3000", RateLimit: 10, Burst: 20},
		Solver: SolverConfig{
			Backend:    BackendLocal,
			ReMIPURL:   "http://localhost:9000",
			TimeLimit:  time.Minute,
			MaxRetries: 3,
		},
	}
}

// Load returns the default configuration overlaid with the YAML file at `path`, if not empty,
// then with the environment. A .env file in the working directory is loaded first when present;
// variables already set in the environment win over it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decodeStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.V(1).Infof("config: %+v", *cfg)
	return cfg, nil
}

// decodeStrict decodes one YAML document into `v`, rejecting unknown fields. An empty document
// leaves `v` unchanged.
func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides fields from MIPKIT_* variables found by `lookup`.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	parse := func(key string, set func(string) error) {
		if v, ok := lookup(key); ok && v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
			}
		}
	}

	str("MIPKIT_ADDR", &c.Server.Addr)
	parse("MIPKIT_RATE_LIMIT", func(v string) (err error) {
		c.Server.RateLimit, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("MIPKIT_RATE_BURST", func(v string) (err error) {
		c.Server.Burst, err = strconv.Atoi(v)
		return err
	})
	str("MIPKIT_BACKEND", &c.Solver.Backend)
	str("MIPKIT_REMIP_URL", &c.Solver.ReMIPURL)
	parse("MIPKIT_STREAM", func(v string) (err error) {
		c.Solver.Stream, err = strconv.ParseBool(v)
		return err
	})
	parse("MIPKIT_TIME_LIMIT", func(v string) (err error) {
		c.Solver.TimeLimit, err = time.ParseDuration(v)
		return err
	})
	parse("MIPKIT_MAX_NODES", func(v string) (err error) {
		c.Solver.MaxNodes, err = strconv.Atoi(v)
		return err
	})
	parse("MIPKIT_RELATIVE_GAP", func(v string) (err error) {
		c.Solver.RelativeGap, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("MIPKIT_MAX_RETRIES", func(v string) (err error) {
		c.Solver.MaxRetries, err = strconv.Atoi(v)
		return err
	})
	if len(errs) > 0 {
		return fmt.Errorf("failed to apply environment: %w", errors.Join(errs...))
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Solver.Backend {
	case BackendLocal:
	case BackendReMIP:
		if c.Solver.ReMIPURL == "" {
			return fmt.Errorf("solver.remip_url is required by the %s backend: %w", BackendReMIP, ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("solver.backend %q is not one of [%s %s]: %w", c.Solver.Backend, BackendLocal, BackendReMIP, ErrInvalidConfig)
	}
	if c.Solver.TimeLimit < 0 || c.Solver.MaxNodes < 0 || c.Solver.RelativeGap < 0 || c.Solver.MaxRetries < 0 {
		return fmt.Errorf("solver limits must not be negative: %w", ErrInvalidConfig)
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("server rate limit must not be negative: %w", ErrInvalidConfig)
	}
	if c.Server.RateLimit > 0 && c.Server.Burst == 0 {
		return fmt.Errorf("server.burst must be positive when server.rate_limit is set: %w", ErrInvalidConfig)
	}
	return nil
}

// Parameters returns the solve parameters of the configuration.
func (c *SolverConfig) Parameters() *mpmodel.Parameters {
	return &mpmodel.Parameters{
		TimeLimit:      c.TimeLimit,
		RelativeMIPGap: c.RelativeGap,
		MaxNodes:       c.MaxNodes,
	}
}
