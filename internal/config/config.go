// Package config handles build configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"runtime"
)

// Config holds all tool settings.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig holds the defaults applied to atlas descriptors that leave a field unset.
type BuildConfig struct {
	OutputDir       string `yaml:"output_dir"`
	Workers         int    `yaml:"workers"` // parallel atlas builds
	Margin          int    `yaml:"margin"`
	InnerPadding    int    `yaml:"inner_padding"`
	ExtrudeBorders  int    `yaml:"extrude_borders"`
	AllowRotate     bool   `yaml:"allow_rotate"`
	MaxPageWidth    int    `yaml:"max_page_width"`
	MaxPageHeight   int    `yaml:"max_page_height"`
	HullVertexCount int    `yaml:"hull_vertex_count"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			OutputDir:       "out",
			Workers:         runtime.NumCPU(),
			Margin:          2,
			InnerPadding:    0,
			ExtrudeBorders:  1,
			AllowRotate:     false,
			MaxPageWidth:    2048,
			MaxPageHeight:   2048,
			HullVertexCount: 0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate rejects values no build can use.
func (c *Config) Validate() error {
	b := c.Build
	switch {
	case b.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, b.Workers)
	case b.Margin < 0 || b.InnerPadding < 0 || b.ExtrudeBorders < 0:
		return fmt.Errorf("%w: margin, inner_padding and extrude_borders must not be negative", ErrInvalidConfig)
	case b.MaxPageWidth < 0 || b.MaxPageHeight < 0:
		return fmt.Errorf("%w: negative max page size %dx%d", ErrInvalidConfig, b.MaxPageWidth, b.MaxPageHeight)
	case b.HullVertexCount < 0:
		return fmt.Errorf("%w: negative hull_vertex_count", ErrInvalidConfig)
	}
	return nil
}
