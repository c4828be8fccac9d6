// Package config handles rulec.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "rulec.toml"

// Config represents a rulec.toml file.
type Config struct {
	Input    string   `toml:"input"`
	Output   Output   `toml:"output"`
	Log      Log      `toml:"log"`
	Analysis Analysis `toml:"analysis"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Output configures the IR dump.
type Output struct {
	// Format is one of text, cbor or none.
	Format string `toml:"format"`
	// Path is the dump destination; empty means stdout.
	Path string `toml:"path"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Analysis mirrors sema.Options.
type Analysis struct {
	ExpandInternalExtractors bool `toml:"expand-internal-extractors"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Output:   Output{Format: "text"},
		Log:      Log{Level: "warn", Format: "console"},
		Analysis: Analysis{ExpandInternalExtractors: true},
	}
}

// Load parses the file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Path = path
	if c.Input != "" && !filepath.IsAbs(c.Input) {
		c.Input = filepath.Join(filepath.Dir(path), c.Input)
	}
	return c, nil
}

// Parse decodes a TOML document over the defaults and validates it.
// Unknown keys are rejected.
func Parse(doc string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(doc, c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a rulec.toml file. It returns
// the defaults when none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "text", "cbor", "none":
	default:
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// NewLogger builds the logger described by c.Log. Console output uses the
// development encoder, json the production one.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if c.Log.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
