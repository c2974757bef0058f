package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`
	Grace   time.Duration `yaml:"grace" env:"SAMPLE_GRACE"`
	Ratio   float64       `yaml:"ratio"`
	Enabled bool          `yaml:"enabled" env:"SAMPLE_ENABLED"`
	Origins []string      `yaml:"origins" env:"SAMPLE_ORIGINS"`
	Skipped string        `yaml:"skipped" env:"-"`
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("http:\n  port: \"9000\"\ngrace: 2m\nratio: 0.5\nskipped: ${SAMPLE_FILE_VALUE}\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(FileEnv, path)
	t.Setenv("SAMPLE_FILE_VALUE", "from-file")
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("SAMPLE_ENABLED", "true")
	t.Setenv("SAMPLE_ORIGINS", "a.example, b.example,")
	t.Setenv("SKIPPED", "from-env")

	var cfg sampleConfig
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Port != "9100" {
		t.Fatalf("expected env to override port, got %q", cfg.HTTP.Port)
	}
	if cfg.Grace != 2*time.Minute {
		t.Fatalf("expected grace from yaml, got %s", cfg.Grace)
	}
	if cfg.Ratio != 0.5 {
		t.Fatalf("expected ratio 0.5, got %v", cfg.Ratio)
	}
	if !cfg.Enabled {
		t.Fatalf("expected enabled from env")
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "b.example" {
		t.Fatalf("unexpected origins %v", cfg.Origins)
	}
	if cfg.Skipped != "from-file" {
		t.Fatalf("env:\"-\" field must not be read from env, got %q", cfg.Skipped)
	}
}

func TestLoadConfigDurationFromEnv(t *testing.T) {
	t.Setenv("SAMPLE_GRACE", "45s")

	var cfg sampleConfig
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Grace != 45*time.Second {
		t.Fatalf("expected 45s, got %s", cfg.Grace)
	}
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	if err := LoadConfig(nil); err == nil {
		t.Fatalf("expected error for nil target")
	}

	var notStruct int
	if err := LoadConfig(&notStruct); err == nil {
		t.Fatalf("expected error for non-struct target")
	}

	t.Setenv("SAMPLE_GRACE", "soon")
	var cfg sampleConfig
	if err := LoadConfig(&cfg); err == nil {
		t.Fatalf("expected parse error for invalid duration")
	}
}

func TestLoadPrefixesDerivedKeys(t *testing.T) {
	t.Setenv("APP_HTTP_PORT", "7000")
	t.Setenv("HTTP_PORT", "7100")
	t.Setenv("SAMPLE_ENABLED", "true")

	var cfg sampleConfig
	if err := Load(&cfg, "app"); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTP.Port != "7000" {
		t.Fatalf("expected prefixed key to win, got %q", cfg.HTTP.Port)
	}
	if !cfg.Enabled {
		t.Fatalf("tagged keys must ignore the prefix")
	}
}
