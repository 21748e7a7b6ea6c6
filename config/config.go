// Package config holds the small, closed configuration value that
// drives the CLI wiring layer (cmd/specgo). It is deliberately outside
// the CORE: nothing in ir, bitlayout, codegen, gate, roundtrip, or
// report reads from it directly — every CORE function takes its
// parameters explicitly.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// FailPolicy selects how a roundtrip campaign reacts to the first
// failing loop.
type FailPolicy string

const (
	ContinueOnFail FailPolicy = "continue-on-fail"
	StopOnFail     FailPolicy = "stop-on-fail"
)

// ToolchainHint names a preferred native compiler family for the
// codegen gate. An empty hint means "auto-detect".
type ToolchainHint string

const (
	ToolchainAuto  ToolchainHint = ""
	ToolchainGCC   ToolchainHint = "gcc"
	ToolchainClang ToolchainHint = "clang"
	ToolchainMSVC  ToolchainHint = "msvc"
)

// Config is the enumerated configuration value named in the design
// notes. It carries only these four fields — everything else
// configurable (MQTT broker, HTTP server, filter file, ...) belongs to
// the CLI wiring layer's own flags, not to this persisted value.
type Config struct {
	OutputRoot    string        `json:"output_root"`
	ToolchainHint ToolchainHint `json:"toolchain_hint"`
	DefaultLoops  int           `json:"default_loops"`
	FailPolicy    FailPolicy    `json:"fail_policy"`
}

// Default returns a ready-to-use configuration value with sane
// defaults rather than a zero value.
func Default() Config {
	return Config{
		OutputRoot:    "./out",
		ToolchainHint: ToolchainAuto,
		DefaultLoops:  100,
		FailPolicy:    ContinueOnFail,
	}
}

// Load reads a JSON configuration file, rejecting unknown keys, per
// the "unknown keys rejected at load" design note (see DESIGN.md).
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the configuration back out as indented JSON.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate rejects configuration values that the CLI wiring layer
// cannot act on.
func (c Config) Validate() error {
	if c.OutputRoot == "" {
		return fmt.Errorf("config: output_root must not be empty")
	}
	if c.DefaultLoops < 1 {
		return fmt.Errorf("config: default_loops must be >= 1, got %d", c.DefaultLoops)
	}
	switch c.FailPolicy {
	case ContinueOnFail, StopOnFail:
	default:
		return fmt.Errorf("config: unknown fail_policy %q", c.FailPolicy)
	}
	switch c.ToolchainHint {
	case ToolchainAuto, ToolchainGCC, ToolchainClang, ToolchainMSVC:
	default:
		return fmt.Errorf("config: unknown toolchain_hint %q", c.ToolchainHint)
	}
	return nil
}
