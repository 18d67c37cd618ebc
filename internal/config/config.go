package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

// FileName is the project configuration file at the project root.
const FileName = "myasset.yaml"

// Environment overrides.
const (
	EnvAPIKey   = "GEMINI_API_KEY"
	EnvLogLevel = "MYASSET_LOG_LEVEL"
	EnvAddr     = "MYASSET_ADDR"
)

// Storage backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config represents the top-level myasset.yaml configuration.
type Config struct {
	Project     ProjectConfig     `yaml:"project"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Storage     StorageConfig     `yaml:"storage"`
	Server      ServerConfig      `yaml:"server"`
	Assistant   AssistantConfig   `yaml:"assistant"`
	Git         GitConfig         `yaml:"git"`
	Log         LogConfig         `yaml:"log"`
}

// ProjectConfig identifies the portfolio.
type ProjectConfig struct {
	Name  string `yaml:"name"`
	Owner string `yaml:"owner,omitempty"`
}

// PreferencesConfig holds view defaults.
type PreferencesConfig struct {
	Currency string `yaml:"currency"`
	PageSize int    `yaml:"page_size"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	RemarksTags bool   `yaml:"remarks_tags"`
}

// ServerConfig controls `myasset serve`.
type ServerConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second
	Burst     int     `yaml:"burst"`
}

// AssistantConfig controls the Gemini chat.
type AssistantConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"-"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads a myasset.yaml file from disk and applies defaults for any
// missing values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadProject loads the config under root and overlays the environment,
// reading root/.env first when present.
func LoadProject(root string) (*Config, error) {
	cfg, err := Load(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}
	if err := LoadEnv(filepath.Join(root, ".env")); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadEnv loads variables from an env file without overriding ones already
// set. A missing file is not an error.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// ApplyEnv overlays environment overrides onto cfg.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Assistant.APIKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
}

// Validate rejects configurations the CLI cannot act on.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("invalid storage backend %q (want %s or %s)", c.Storage.Backend, BackendCSV, BackendSQLite)
	}
	if c.Preferences.PageSize < 1 {
		return fmt.Errorf("invalid page_size %d", c.Preferences.PageSize)
	}
	c.Preferences.Currency = strings.ToUpper(strings.TrimSpace(c.Preferences.Currency))
	if c.Preferences.Currency == "" {
		c.Preferences.Currency = model.DefaultCurrency
	}
	return nil
}

// SQLiteFile returns the database path resolved against the project root.
func (c *Config) SQLiteFile(root string) string {
	if filepath.IsAbs(c.Storage.SQLitePath) {
		return c.Storage.SQLitePath
	}
	return filepath.Join(root, c.Storage.SQLitePath)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(projectName string) *Config {
	return &Config{
		Project: ProjectConfig{
			Name: projectName,
		},
		Preferences: PreferencesConfig{
			Currency: model.DefaultCurrency,
			PageSize: 10,
		},
		Storage: StorageConfig{
			Backend:     BackendCSV,
			SQLitePath:  "data/myasset.db",
			RemarksTags: true,
		},
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			RateLimit: 20,
			Burst:     40,
		},
		Assistant: AssistantConfig{
			Model: "gemini-2.5-flash",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "myasset",
			AuthorEmail: "myasset@localhost",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
