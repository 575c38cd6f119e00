package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/eemetrics/pkg/logging"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "eemetrics.yaml"

// Environment overrides. Tokens and connection strings are only ever read
// from the environment.
const (
	EnvGitHubToken     = "GITHUB_TOKEN"
	EnvSonarcloudToken = "SONARCLOUD_TOKEN"
	EnvMongoURI        = "MONGODB_URI"
	EnvLogLevel        = "EEMETRICS_LOG_LEVEL"
)

// Store kinds.
const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

type Config struct {
	GitHub     GitHubConfig     `yaml:"github"`
	Sonarcloud SonarcloudConfig `yaml:"sonarcloud"`
	Store      StoreConfig      `yaml:"store"`
	Log        LogConfig        `yaml:"log"`
}

type GitHubConfig struct {
	Org     string `yaml:"org"`
	BaseURL string `yaml:"base_url,omitempty"`
	Token   string `yaml:"-"`
}

type SonarcloudConfig struct {
	Org     string `yaml:"org"`
	BaseURL string `yaml:"base_url,omitempty"`
	Token   string `yaml:"-"`
}

type StoreConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path,omitempty"`
	URI  string `yaml:"-"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Kind: StoreFile, Path: "."},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads path, or DefaultFile when path is empty, and applies the
// environment. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}

	cfg := Default()
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	c.GitHub.Token = getenv(EnvGitHubToken)
	c.Sonarcloud.Token = getenv(EnvSonarcloudToken)
	c.Store.URI = getenv(EnvMongoURI)
	if level := getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// Validate checks the store kind and log level.
func (c *Config) Validate() error {
	c.Store.Kind = strings.ToLower(c.Store.Kind)
	switch c.Store.Kind {
	case "":
		c.Store.Kind = StoreFile
	case StoreFile, StoreMongo:
	default:
		return fmt.Errorf("invalid store kind %q: must be %s or %s", c.Store.Kind, StoreFile, StoreMongo)
	}
	if c.Store.Kind == StoreFile && c.Store.Path == "" {
		c.Store.Path = "."
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Save writes cfg to path as YAML. Secrets are never written.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if path == "" {
		path = DefaultFile
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Clean(path), data, 0600)
}
