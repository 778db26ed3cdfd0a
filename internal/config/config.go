// Package config loads the YAML configuration of an hcore instance.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hcore/internal/keystore"
)

// Config is the on-disk instance configuration.
type Config struct {
	Agent    Agent   `yaml:"agent"`
	Dna      string  `yaml:"dna"`
	Database string  `yaml:"database"`
	Log      Log     `yaml:"log"`
	Network  Network `yaml:"network"`
}

// Agent names the key the instance signs with.
type Agent struct {
	Name     string `yaml:"name"`
	Keystore string `yaml:"keystore"`
}

// Log selects the level and handler for the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Network enables the in-process network.
type Network struct {
	Enabled bool `yaml:"enabled"`
}

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Default returns the configuration used for keys a file leaves unset.
func Default() Config {
	return Config{
		Agent:    Agent{Name: "default", Keystore: "keys"},
		Dna:      "dna",
		Database: "hcore.db",
		Log:      Log{Level: "info", Format: FormatText},
	}
}

// Load reads path over the defaults and validates the result. Relative
// paths in the file are resolved against the file's directory. Unknown
// keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.Agent.Keystore = resolve(base, cfg.Agent.Keystore)
	cfg.Dna = resolve(base, cfg.Dna)
	if cfg.Database != ":memory:" {
		cfg.Database = resolve(base, cfg.Database)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := keystore.CheckKeyName(c.Agent.Name); err != nil {
		return fmt.Errorf("agent.name: %w", err)
	}
	if c.Agent.Keystore == "" {
		return errors.New("agent.keystore is required")
	}
	if c.Dna == "" {
		return errors.New("dna is required")
	}
	if c.Database == "" {
		return errors.New("database is required")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("log.format must be %q or %q, got %q", FormatText, FormatJSON, c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
