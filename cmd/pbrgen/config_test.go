// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/pbr"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pbrgen.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\") error = %v", err)
	}
	if cfg != defaultConfig() {
		t.Errorf("loadConfig(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
workflow = "diffuse"
out = "maps"
accel = "tiles"
workers = 3
diffuse_map = true
glossiness = "contrast"

[normal]
strength = 5.0
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig error = %v", err)
	}

	if cfg.Workflow != pbr.WorkflowDiffuse {
		t.Errorf("Workflow = %v, want diffuse", cfg.Workflow)
	}
	if cfg.Out != "maps" {
		t.Errorf("Out = %q, want maps", cfg.Out)
	}
	if cfg.Accel != accelTiles {
		t.Errorf("Accel = %q, want tiles", cfg.Accel)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if !cfg.DiffuseMap {
		t.Error("DiffuseMap = false, want true")
	}
	if cfg.Glossiness != pbr.GlossinessContrast {
		t.Errorf("Glossiness = %v, want contrast", cfg.Glossiness)
	}
	if cfg.Normal.Strength != pbr.LegacyNormalStrength {
		t.Errorf("Normal.Strength = %v, want %v", cfg.Normal.Strength, pbr.LegacyNormalStrength)
	}
	if cfg.Normal.Depth != pbr.DefaultNormalDepth {
		t.Errorf("Normal.Depth = %v, want default %v", cfg.Normal.Depth, pbr.DefaultNormalDepth)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad workflow", `workflow = "sepia"`},
		{"bad accel", `accel = "fpga"`},
		{"negative workers", `workers = -1`},
		{"syntax", `workflow = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("loadConfig error = nil, want error")
			}
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("loadConfig(missing) error = nil")
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"brick.png":          "brick",
		"/tmp/wood.oak.jpeg": "wood.oak",
		"textures/stone":     "stone",
	}
	for in, want := range tests {
		if got := baseName(in); got != want {
			t.Errorf("baseName(%q) = %q, want %q", in, got, want)
		}
	}
}
