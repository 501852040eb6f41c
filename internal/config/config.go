// Package config provides configuration loading and structs for the radlabel batch labeler.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvInput   = "RADLABEL_INPUT"
	EnvOutput  = "RADLABEL_OUTPUT"
	EnvLedger  = "RADLABEL_LEDGER"
	EnvWorkers = "RADLABEL_WORKERS"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool          `yaml:"debug"`
	Input      InputConfig   `yaml:"input"`
	Output     OutputConfig  `yaml:"output"`
	Batch      BatchConfig   `yaml:"batch"`
	Rules      RulesConfig   `yaml:"rules"`
	Categories []string      `yaml:"categories"`
	Ledger     LedgerConfig  `yaml:"ledger"`
	Metrics    MetricsConfig `yaml:"metrics"`
	Server     ServerConfig  `yaml:"server"`
	Watch      WatchConfig   `yaml:"watch"`
}

// InputConfig describes the source report table.
type InputConfig struct {
	Path         string `yaml:"path"`
	ReportColumn string `yaml:"report_column"`
	IDColumn     string `yaml:"id_column"`
}

// OutputConfig holds the final concatenated table path. Partitions are written next to the input.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// BatchConfig holds window and chunk sizing.
type BatchConfig struct {
	WindowSize int `yaml:"window_size"`
	ChunkSize  int `yaml:"chunk_size"`
	Workers    int `yaml:"workers"`
}

// RulesConfig holds phrase directories and pattern files for the rule engines.
type RulesConfig struct {
	MentionDir                  string `yaml:"mention_dir"`
	UnmentionDir                string `yaml:"unmention_dir"`
	PreNegationUncertaintyPath  string `yaml:"pre_negation_uncertainty_path"`
	NegationPath                string `yaml:"negation_path"`
	PostNegationUncertaintyPath string `yaml:"post_negation_uncertainty_path"`
}

// LedgerConfig holds the run ledger database path.
type LedgerConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MetricsConfig controls the textfile dump written after each batch command.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig holds partition watch settings.
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, expands paths, applies defaults and
// environment overrides. A .env file next to the config is loaded first when present.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Input.Path = expandPath(cfg.Input.Path, configDir)
	cfg.Output.Path = expandPath(cfg.Output.Path, configDir)
	cfg.Ledger.DatabasePath = expandPath(cfg.Ledger.DatabasePath, configDir)
	cfg.Metrics.TextfilePath = expandPath(cfg.Metrics.TextfilePath, configDir)
	cfg.Rules.MentionDir = expandPath(cfg.Rules.MentionDir, configDir)
	cfg.Rules.UnmentionDir = expandPath(cfg.Rules.UnmentionDir, configDir)
	cfg.Rules.PreNegationUncertaintyPath = expandPath(cfg.Rules.PreNegationUncertaintyPath, configDir)
	cfg.Rules.NegationPath = expandPath(cfg.Rules.NegationPath, configDir)
	cfg.Rules.PostNegationUncertaintyPath = expandPath(cfg.Rules.PostNegationUncertaintyPath, configDir)

	if err := loadDotEnv(filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	DeriveOutputPaths(&cfg)

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from RADLABEL_* environment variables.
// Paths from the environment are taken relative to the working directory.
func ApplyEnv(cfg *Config) error {
	for env, dst := range map[string]*string{
		EnvInput:  &cfg.Input.Path,
		EnvOutput: &cfg.Output.Path,
		EnvLedger: &cfg.Ledger.DatabasePath,
	} {
		v := strings.TrimSpace(os.Getenv(env))
		if v == "" {
			continue
		}
		abs, err := filepath.Abs(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		*dst = abs
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid worker count %q", EnvWorkers, v)
		}
		cfg.Batch.Workers = n
	}
	return nil
}

// DeriveOutputPaths fills the final output and ledger paths from the input path when unset:
// <dir>/<stem>_labels.csv and <dir>/<stem>_runs.db.
func DeriveOutputPaths(cfg *Config) {
	if cfg.Input.Path == "" {
		return
	}
	dir := filepath.Dir(cfg.Input.Path)
	stem := strings.TrimSuffix(filepath.Base(cfg.Input.Path), filepath.Ext(cfg.Input.Path))
	if cfg.Output.Path == "" {
		cfg.Output.Path = filepath.Join(dir, stem+"_labels.csv")
	}
	if cfg.Ledger.DatabasePath == "" {
		cfg.Ledger.DatabasePath = filepath.Join(dir, stem+"_runs.db")
	}
}

// Validate reports the first configuration problem that would make a labeling run fail.
func (c *Config) Validate() error {
	switch {
	case c.Input.Path == "":
		return errors.New("input.path is required")
	case c.Input.ReportColumn == "" || c.Input.IDColumn == "":
		return errors.New("input.report_column and input.id_column are required")
	case c.Input.ReportColumn == c.Input.IDColumn:
		return fmt.Errorf("input.report_column and input.id_column are both %q", c.Input.IDColumn)
	case c.Batch.WindowSize <= 0:
		return fmt.Errorf("batch.window_size must be positive, got %d", c.Batch.WindowSize)
	case c.Batch.ChunkSize <= 0:
		return fmt.Errorf("batch.chunk_size must be positive, got %d", c.Batch.ChunkSize)
	case c.Batch.ChunkSize > c.Batch.WindowSize:
		return fmt.Errorf("batch.chunk_size %d exceeds batch.window_size %d", c.Batch.ChunkSize, c.Batch.WindowSize)
	case c.Batch.Workers < 0:
		return fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	case len(c.Categories) == 0:
		return errors.New("categories must not be empty")
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat) == "" {
			return errors.New("categories must not contain blank names")
		}
		if seen[cat] {
			return fmt.Errorf("duplicate category %q", cat)
		}
		if cat == c.Input.ReportColumn || cat == c.Input.IDColumn {
			return fmt.Errorf("category %q collides with an input column", cat)
		}
		seen[cat] = true
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
