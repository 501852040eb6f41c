package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/radlabel/internal/config"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after positional are moved first",
			args:     []string{"3", "--debug"},
			expected: []string{"--debug", "3"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"--config", "c.yaml", "3"},
			expected: []string{"--config", "c.yaml", "3"},
		},
		{
			name:     "negative integer is positional",
			args:     []string{"-1"},
			expected: []string{"-1"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitFlagArgs(t *testing.T) {
	boolFlags := map[string]bool{"debug": true}
	tests := []struct {
		name           string
		args           []string
		wantFlags      []string
		wantPositional []string
	}{
		{"index only", []string{"3"}, nil, []string{"3"}},
		{"trailing bool flag", []string{"3", "--debug"}, []string{"--debug"}, []string{"3"}},
		{"value flag", []string{"--config", "c.yaml", "3"}, []string{"--config", "c.yaml"}, []string{"3"}},
		{"value flag with equals", []string{"7", "--output=json"}, []string{"--output=json"}, []string{"7"}},
		{"negative index", []string{"-2", "--debug"}, []string{"--debug"}, []string{"-2"}},
		{"extra positional", []string{"1", "2"}, nil, []string{"1", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags, positional := splitFlagArgs(tt.args, boolFlags)
			if !reflect.DeepEqual(flags, tt.wantFlags) {
				t.Errorf("flags = %v, want %v", flags, tt.wantFlags)
			}
			if !reflect.DeepEqual(positional, tt.wantPositional) {
				t.Errorf("positional = %v, want %v", positional, tt.wantPositional)
			}
		})
	}
}

func TestParseWindowIndex(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"zero", []string{"0"}, 0, false},
		{"positive", []string{"12"}, 12, false},
		{"negative parses", []string{"-1"}, -1, false},
		{"missing", []string{}, 0, true},
		{"too many", []string{"1", "2"}, 0, true},
		{"not a number", []string{"three"}, 0, true},
		{"float", []string{"1.5"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWindowIndex(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseWindowIndex(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseWindowIndex(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func clearRadlabelEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvInput, config.EnvOutput, config.EnvLedger, config.EnvWorkers} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	clearRadlabelEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
input:
  path: "./reports.csv"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if filepath.Base(resolved) != "config.yaml" || resolved == defaultConfigPath {
		t.Errorf("loadConfig() path = %q, want cwd config.yaml", resolved)
	}
	if !cfg.Debug {
		t.Error("expected debug from cwd config")
	}
	if filepath.Base(cfg.Input.Path) != "reports.csv" || !filepath.IsAbs(cfg.Input.Path) {
		t.Errorf("Input.Path = %q, want absolute path to reports.csv", cfg.Input.Path)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	clearRadlabelEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")
	content := `
input:
  path: "/data/reports.csv"
batch:
  window_size: 100
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if resolved != configPath {
		t.Errorf("loadConfig() path = %q, want %q", resolved, configPath)
	}
	if cfg.Batch.WindowSize != 100 {
		t.Errorf("WindowSize = %d, want 100", cfg.Batch.WindowSize)
	}
	if cfg.Output.Path != "/data/reports_labels.csv" {
		t.Errorf("Output.Path = %q, want derived /data/reports_labels.csv", cfg.Output.Path)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}
