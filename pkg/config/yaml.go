package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// DecodeStrict decodes YAML from a reader and rejects any unknown fields.
// This ensures the YAML only contains recognized configuration keys.
func DecodeStrict(r io.Reader, out interface{}) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then FSDEPLOY_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewNotFoundError("config file", path)
			}
			return nil, errors.WrapCode(err, errors.CodeConfigError, "read config")
		}
		if err := cfg.merge(data); err != nil {
			return nil, errors.WrapCode(err, errors.CodeConfigError, path)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge decodes data over cfg. A file that declares networks replaces the
// default set instead of adding to it.
func (c *Config) merge(data []byte) error {
	defaults := c.Networks
	c.Networks = nil
	if err := DecodeStrict(bytes.NewReader(data), c); err != nil {
		c.Networks = defaults
		return err
	}
	if len(c.Networks) == 0 {
		c.Networks = defaults
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
