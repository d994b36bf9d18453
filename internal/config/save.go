package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned when saving would replace an existing file.
var ErrConfigExists = errors.New("config file already exists")

const fileHeader = "# atlasbuild configuration. Descriptor fields override the build section.\n"

// UserConfigPath is the per-user config file read by Load when ./atlasbuild.yaml is absent.
func UserConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Save writes the config to UserConfigPath and returns that path.
func (c *Config) Save(overwrite bool) (string, error) {
	path := UserConfigPath()
	return path, c.SaveTo(path, overwrite)
}

// SaveTo validates the config and writes it to path as YAML, creating parent
// directories. An existing file is kept unless overwrite is set.
func (c *Config) SaveTo(path string, overwrite bool) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
