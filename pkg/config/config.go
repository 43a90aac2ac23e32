// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package config holds environment-driven configuration for the
// node-selection core and the tools that host it.
package config

import (
	"os"
	"strconv"
)

// DumpFormat controls how diagnostic bitmap dumps are rendered.
type DumpFormat string

const (
	// DumpFormatCompressed renders bit_fmt-style ranges, e.g. "0-3,7,10-12".
	DumpFormatCompressed DumpFormat = "compressed"
	// DumpFormatRaw renders one character per bit ("1" or "0").
	DumpFormatRaw DumpFormat = "raw"
)

// Config holds configuration for the selection core and its
// diagnostic tooling.
type Config struct {
	// Debug is the verbose-dump switch (SELECT_DEBUG). Diagnostic-only;
	// never part of the stable interface. No component in this
	// repository reads it, and none emits such a dump.
	Debug bool

	// DumpFormat names the rendering for diagnostic bitmap dumps. It is
	// checked by Validate but not read by any renderer.
	DumpFormat DumpFormat

	// TopologyFile is an optional path to a switch-table fixture.
	// Neither cmd/cons-res-sim nor cmd/selectd reads it.
	TopologyFile string

	// ScratchPoolSize is the per-size idle bound for a pkg/scratchpool
	// pool. cmd/selectd only logs it; no pool is built from it.
	ScratchPoolSize int
}

// NewDefault creates a new configuration with default values.
func NewDefault() *Config {
	return &Config{
		Debug:           getEnvBoolOrDefault("SELECT_DEBUG", false),
		DumpFormat:      DumpFormat(getEnvOrDefault("SELECT_DEBUG_DUMP_FORMAT", string(DumpFormatCompressed))),
		TopologyFile:    os.Getenv("SELECT_TOPOLOGY_FILE"),
		ScratchPoolSize: getEnvIntOrDefault("SELECT_SCRATCH_POOL_SIZE", 8),
	}
}

// Load refreshes configuration from environment variables, leaving
// any field whose variable is unset at its current value.
func (c *Config) Load() {
	c.Debug = getEnvBoolOrDefault("SELECT_DEBUG", c.Debug)
	if format := os.Getenv("SELECT_DEBUG_DUMP_FORMAT"); format != "" {
		c.DumpFormat = DumpFormat(format)
	}
	if topoFile := os.Getenv("SELECT_TOPOLOGY_FILE"); topoFile != "" {
		c.TopologyFile = topoFile
	}
	c.ScratchPoolSize = getEnvIntOrDefault("SELECT_SCRATCH_POOL_SIZE", c.ScratchPoolSize)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ScratchPoolSize < 0 {
		return ErrInvalidScratchPoolSize
	}
	if c.DumpFormat != DumpFormatCompressed && c.DumpFormat != DumpFormatRaw {
		return ErrInvalidDumpFormat
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
