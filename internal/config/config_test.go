package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv isolates a test from RADLABEL_* variables set in the environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvInput, EnvOutput, EnvLedger, EnvWorkers} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
input:
  path: "./data/reports.csv"
  report_column: "Findings"
batch:
  window_size: 100
  chunk_size: 10
server:
  host: "127.0.0.1"
  port: 9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	wantInput := filepath.Join(dir, "data", "reports.csv")
	if cfg.Input.Path != wantInput {
		t.Errorf("input.path = %s, want %s", cfg.Input.Path, wantInput)
	}
	if cfg.Input.ReportColumn != "Findings" || cfg.Input.IDColumn != "ACC_NBR" {
		t.Errorf("columns = %q/%q", cfg.Input.ReportColumn, cfg.Input.IDColumn)
	}
	if want := filepath.Join(dir, "data", "reports_labels.csv"); cfg.Output.Path != want {
		t.Errorf("output.path = %s, want %s", cfg.Output.Path, want)
	}
	if want := filepath.Join(dir, "data", "reports_runs.db"); cfg.Ledger.DatabasePath != want {
		t.Errorf("ledger.database_path = %s, want %s", cfg.Ledger.DatabasePath, want)
	}
	if want := filepath.Join(dir, "rules", "patterns", "negation.txt"); cfg.Rules.NegationPath != want {
		t.Errorf("rules.negation_path = %s, want %s", cfg.Rules.NegationPath, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
input:
  path: "./reports.csv"
`)
	envInput := filepath.Join(dir, "other", "in.csv")
	t.Setenv(EnvInput, envInput)
	t.Setenv(EnvWorkers, "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Input.Path != envInput {
		t.Errorf("input.path = %s, want %s", cfg.Input.Path, envInput)
	}
	if cfg.Batch.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Batch.Workers)
	}
	if want := filepath.Join(dir, "other", "in_labels.csv"); cfg.Output.Path != want {
		t.Errorf("output derived from overridden input: got %s, want %s", cfg.Output.Path, want)
	}

	t.Setenv(EnvWorkers, "many")
	if _, err := Load(path); err == nil {
		t.Error("expected error for non-numeric worker count")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "input:\n  path: \"./reports.csv\"\n")
	ledger := filepath.Join(dir, "state", "ledger.db")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvLedger+"="+ledger+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	// godotenv sets process variables; clearEnv restores them when the test ends.
	os.Unsetenv(EnvLedger)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Ledger.DatabasePath != ledger {
		t.Errorf("ledger.database_path = %s, want %s", cfg.Ledger.DatabasePath, ledger)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Batch.WindowSize != 5000 || cfg.Batch.ChunkSize != 50 {
		t.Errorf("batch defaults: %+v", cfg.Batch)
	}
	if cfg.Input.ReportColumn != "Report" || cfg.Input.IDColumn != "ACC_NBR" {
		t.Errorf("column defaults: %+v", cfg.Input)
	}
	if len(cfg.Categories) != 14 || cfg.Categories[0] != "No Finding" || cfg.Categories[13] != "Support Devices" {
		t.Errorf("categories: %v", cfg.Categories)
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
	cfg.Categories[0] = "changed"
	if DefaultCategories[0] != "No Finding" {
		t.Error("ApplyDefaults must copy DefaultCategories")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{Input: InputConfig{Path: "/data/reports.csv"}}
		ApplyDefaults(cfg)
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"no input", func(c *Config) { c.Input.Path = "" }, "input.path"},
		{"same columns", func(c *Config) { c.Input.IDColumn = c.Input.ReportColumn }, "both"},
		{"zero window", func(c *Config) { c.Batch.WindowSize = -1 }, "window_size"},
		{"chunk over window", func(c *Config) { c.Batch.ChunkSize = 6000 }, "exceeds"},
		{"negative workers", func(c *Config) { c.Batch.Workers = -2 }, "workers"},
		{"no categories", func(c *Config) { c.Categories = []string{} }, "categories"},
		{"duplicate category", func(c *Config) { c.Categories = []string{"Edema", "Edema"} }, "duplicate"},
		{"category is a column", func(c *Config) { c.Categories = []string{"Report"} }, "collides"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestSave(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Input:  InputConfig{Path: "/tmp/reports.csv"},
		Server: ServerConfig{Host: "localhost", Port: 9090},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 || loaded.Input.Path != "/tmp/reports.csv" {
		t.Errorf("loaded: %+v", loaded)
	}
}
