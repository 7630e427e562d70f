// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the optional aranet command configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration supports "10s"-style values in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config is the aranet command configuration.
type Config struct {
	// Devices maps a friendly alias to a peripheral address.
	Devices map[string]string `yaml:"devices"`

	ScanTimeout Duration `yaml:"scan_timeout"`
	ReadTimeout Duration `yaml:"read_timeout"`
	// Margin is the slack the monitor adds after each computed
	// measurement edge.
	Margin Duration `yaml:"margin"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ScanTimeout: Duration(10 * time.Second),
		ReadTimeout: Duration(30 * time.Second),
		Margin:      Duration(3 * time.Second),
	}
}

// Path returns the default configuration file location, or "" when the
// user configuration directory cannot be determined.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "aranet", "config.yaml")
}

// Load reads the YAML configuration at path. A missing or empty path
// yields the defaults; fields absent from the file keep their default
// values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve maps a device argument through the alias table, returning
// the argument unchanged when no alias matches.
func (c Config) Resolve(name string) string {
	if addr, ok := c.Devices[name]; ok {
		return addr
	}
	return name
}
