package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

//go:embed config.yaml
var defaultConfig []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Lint strategies.
const (
	StrategyJoined      = "joined"
	StrategyPerFragment = "per-fragment"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

type (
	LintConfig struct {
		Strategy    string `yaml:"strategy"`
		Concurrency int    `yaml:"concurrency"`
	}

	ServerConfig struct {
		// ListenAddr is the HTTP listen address of the host transport.
		ListenAddr string `yaml:"listen_addr"`
	}

	StoreConfig struct {
		Driver string `yaml:"driver"`
		// Path of the SQLite journal, required for the sqlite driver.
		Path string `yaml:"path"`
	}

	RecorderConfig struct {
		// Idle is how long the network must be quiet before a page counts as loaded.
		Idle    time.Duration `yaml:"idle"`
		Timeout time.Duration `yaml:"timeout"`
	}

	Config struct {
		Version  int            `yaml:"version"`
		Ruleset  RuleConfig     `yaml:"ruleset"`
		Lint     LintConfig     `yaml:"lint"`
		Logging  LoggingConfig  `yaml:"logging"`
		Server   ServerConfig   `yaml:"server"`
		Store    StoreConfig    `yaml:"store"`
		Recorder RecorderConfig `yaml:"recorder"`
	}
)

func unmarshalConfig(data []byte, cfg *Config) (*Config, error) {
	// only fields we defined are accepted
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return cfg, nil
}

// Default returns the embedded configuration.
func Default() (*Config, error) {
	cfg, err := unmarshalConfig(defaultConfig, &Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to process default configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at path and
// superimposes its values on top of the embedded defaults. An empty path
// returns the defaults.
func LoadConfiguration(path string) (*Config, error) {
	cfg, err := unmarshalConfig(defaultConfig, &Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to process default configuration: %w", err)
	}
	if len(path) == 0 {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if definesRules(data) {
		// a rule list in the file replaces the default one instead of
		// being merged into it
		cfg.Ruleset.Rules = nil
	}
	if cfg, err = unmarshalConfig(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// definesRules reports whether data sets ruleset.rules.
// Errors are left to the strict decode that follows.
func definesRules(data []byte) bool {
	var head struct {
		Ruleset struct {
			Rules map[string]any `yaml:"rules"`
		} `yaml:"ruleset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return false
	}
	return head.Ruleset.Rules != nil
}

// Validate checks cross-field constraints the decoder cannot express.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalid, c.Version)
	}
	if err := c.Ruleset.Validate(); err != nil {
		return err
	}
	switch c.Lint.Strategy {
	case StrategyJoined, StrategyPerFragment:
	default:
		return fmt.Errorf("%w: lint.strategy must be %q or %q, got %q", ErrInvalid, StrategyJoined, StrategyPerFragment, c.Lint.Strategy)
	}
	if c.Lint.Concurrency < 1 {
		return fmt.Errorf("%w: lint.concurrency must be at least 1", ErrInvalid)
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for the sqlite driver", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalid, c.Store.Driver)
	}
	return c.Logging.Validate()
}

// Dump renders the configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
