// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/pbr"
)

// Accelerator selections for the accel setting.
const (
	accelGPU   = "gpu"
	accelTiles = "tiles"
	accelNone  = "none"
)

// Config holds pbrgen settings. It is loaded from an optional TOML file;
// command-line flags override file values.
//
//	workflow = "diffuse"
//	out = "maps"
//	accel = "tiles"
//	diffuse_map = true
//
//	[normal]
//	depth = 2.0
//	strength = 5.0
type Config struct {
	Workflow   pbr.Workflow       `toml:"workflow"`
	Out        string             `toml:"out"`
	Accel      string             `toml:"accel"`
	Workers    int                `toml:"workers"`
	DiffuseMap bool               `toml:"diffuse_map"`
	Glossiness pbr.GlossinessMode `toml:"glossiness"`
	Normal     NormalConfig       `toml:"normal"`
}

// NormalConfig holds normal map tunables.
type NormalConfig struct {
	Depth    float64 `toml:"depth"`
	Strength float64 `toml:"strength"`
}

func defaultConfig() Config {
	return Config{
		Workflow: pbr.WorkflowBase,
		Out:      ".",
		Accel:    accelGPU,
		Normal: NormalConfig{
			Depth:    pbr.DefaultNormalDepth,
			Strength: pbr.DefaultNormalStrength,
		},
	}
}

// loadConfig reads a TOML file over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Accel {
	case accelGPU, accelTiles, accelNone:
	default:
		return fmt.Errorf("unknown accel %q (want gpu, tiles or none)", c.Accel)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// options returns the generator options for the config.
func (c Config) options() []pbr.Option {
	return []pbr.Option{
		pbr.WithWorkers(c.Workers),
		pbr.WithNormalParams(c.Normal.Depth, c.Normal.Strength),
		pbr.WithGlossinessMode(c.Glossiness),
	}
}
