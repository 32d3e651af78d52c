package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"a11yminer/internal/flags"
)

func TestNew_DefaultsValidate(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if cfg.Output.CSV != "repositories_with_tools.csv" || cfg.Output.Processed != "processed_repos.json" {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	if cfg.Mining.BatchSize != 10 || cfg.Mining.MaxPages != 10 || cfg.Quota.ErrorBackoff != 10*time.Second {
		t.Fatalf("unexpected crawl defaults: %+v %+v", cfg.Mining, cfg.Quota)
	}
	if cfg.Runtime.MaxRun != 5*time.Hour+50*time.Minute {
		t.Fatalf("MaxRun = %v", cfg.Runtime.MaxRun)
	}
}

func TestValidate_NoToolsDefaults(t *testing.T) {
	cfg := New()
	cfg.Mining.Mode = " No-Tools "
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if cfg.Mining.Mode != ModeNoTools {
		t.Fatalf("Mode = %q", cfg.Mining.Mode)
	}
	if cfg.Output.CSV != "repositories_without_tools.csv" || cfg.Output.Processed != "processed_repos_no_tool.json" {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	want := []string{"stars:>1000 sort:stars-desc", "stars:500..1000 sort:stars-desc"}
	if got := cfg.SearchQueries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("SearchQueries = %v, want %v", got, want)
	}
}

func TestSearchQueries_KeepsExplicitSort(t *testing.T) {
	cfg := New()
	cfg.Mining.Queries = []string{"topic:pwa sort:updated", " ", "topic:spa"}
	want := []string{"topic:pwa sort:updated", "topic:spa sort:stars-desc"}
	if got := cfg.SearchQueries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("SearchQueries = %v, want %v", got, want)
	}

	cfg.Mining.Sort = ""
	if got := cfg.SearchQueries(); got[1] != "topic:spa" {
		t.Fatalf("empty sort must not add a qualifier: %v", got)
	}
}

func TestValidate_NormalizesCommaLists(t *testing.T) {
	cfg := New()
	cfg.Mining.Exclude = []string{"acme/*, *-docs", ",,"}
	cfg.Mining.DisableRules = []string{"webapp-homepage"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if want := []string{"acme/*", "*-docs"}; !reflect.DeepEqual(cfg.Mining.Exclude, want) {
		t.Fatalf("Exclude = %v, want %v", cfg.Mining.Exclude, want)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"mode", func(c *Config) { c.Mining.Mode = "all" }, "--mode"},
		{"page size", func(c *Config) { c.Mining.PageSize = 101 }, "--page-size"},
		{"batch size", func(c *Config) { c.Mining.BatchSize = 0 }, "--batch-size"},
		{"attempts", func(c *Config) { c.Quota.MaxAttempts = 0 }, "--max-attempts"},
		{"emit", func(c *Config) { c.Output.Emit = []string{"xml"} }, "--emit"},
		{"log format", func(c *Config) { c.Runtime.LogFormat = "pretty" }, "--log-format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %s", err, tt.want)
			}
		})
	}
}

func TestValidateScan(t *testing.T) {
	cfg := New()
	cfg.Scan.Tools = []string{"axe, lighthouse"}
	if err := cfg.ValidateScan(); err != nil {
		t.Fatalf("ValidateScan() returned error: %v", err)
	}
	if want := []string{"AXE", "Lighthouse"}; !reflect.DeepEqual(cfg.Scan.Tools, want) {
		t.Fatalf("Tools = %v, want %v", cfg.Scan.Tools, want)
	}

	cfg.Scan.Tools = []string{"jaws"}
	if err := cfg.ValidateScan(); err == nil {
		t.Fatalf("expected error for unknown tool")
	}
}

func TestLoadFile_OverlaysUnlessFlagChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a11yminer.toml")
	content := `
[mining]
mode = "no-tools"
batch_size = 25
queries = ["stars:>5000"]

[quota]
error_backoff = "30s"

[runtime]
max_run = "1h"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := New()
	cfg.Mining.BatchSize = 3
	changed := func(flag string) bool { return flag == flags.FlagBatchSize }
	if err := LoadFile(path, cfg, changed); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Mining.Mode != ModeNoTools {
		t.Fatalf("Mode = %q", cfg.Mining.Mode)
	}
	if cfg.Mining.BatchSize != 3 {
		t.Fatalf("BatchSize = %d, flag value must win", cfg.Mining.BatchSize)
	}
	if !reflect.DeepEqual(cfg.Mining.Queries, []string{"stars:>5000"}) {
		t.Fatalf("Queries = %v", cfg.Mining.Queries)
	}
	if cfg.Quota.ErrorBackoff != 30*time.Second || cfg.Runtime.MaxRun != time.Hour {
		t.Fatalf("durations = %v / %v", cfg.Quota.ErrorBackoff, cfg.Runtime.MaxRun)
	}
	if cfg.Mining.PageSize != 100 {
		t.Fatalf("absent keys must keep defaults, PageSize = %d", cfg.Mining.PageSize)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.toml")
	_ = os.WriteFile(unknown, []byte("[mining]\nbogus = 1\n"), 0o644)
	if err := LoadFile(unknown, New(), nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}

	badDur := filepath.Join(dir, "dur.toml")
	_ = os.WriteFile(badDur, []byte("[quota]\nthrottle = \"soon\"\n"), 0o644)
	if err := LoadFile(badDur, New(), nil); err == nil || !strings.Contains(err.Error(), flags.FlagThrottle) {
		t.Fatalf("expected duration error naming the key, got %v", err)
	}

	if err := LoadFile(filepath.Join(dir, "missing.toml"), New(), nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
