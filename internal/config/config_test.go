package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Catalog.Source != "memory" || cfg.Attempt.ExpiryPolicy != "none" || cfg.PassingScore() != 70 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
postgres:
  url: postgres://localhost/tryouts
attempt:
  expiry_policy: auto_submit
  empty_catalog: fail
  default_passing_score: 0
catalog:
  ttl: 5m
  categories: [Science, Programming]
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Catalog.Source != "postgres" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Attempt.ExpiryPolicy != "auto_submit" || cfg.Attempt.EmptyCatalog != "fail" {
		t.Fatalf("unexpected attempt config %+v", cfg.Attempt)
	}
	if cfg.PassingScore() != 0 {
		t.Fatalf("expected explicit zero threshold to be kept, got %d", cfg.PassingScore())
	}
	if len(cfg.Catalog.Categories) != 2 {
		t.Fatalf("expected categories, got %v", cfg.Catalog.Categories)
	}
	if got := TTLDuration(cfg.Catalog.TTL, time.Minute); got != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %s", got)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: ["), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTTLDuration(t *testing.T) {
	if TTLDuration("", time.Second) != time.Second {
		t.Fatalf("expected fallback for empty")
	}
	if TTLDuration("bogus", time.Second) != time.Second {
		t.Fatalf("expected fallback for invalid")
	}
	if TTLDuration("90s", time.Second) != 90*time.Second {
		t.Fatalf("expected parsed duration")
	}
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TRYOUT_TEST_A=from-file\nTRYOUT_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TRYOUT_TEST_A", "from-env")
	LoadEnv(path, filepath.Join(t.TempDir(), "absent.env"))
	t.Cleanup(func() { os.Unsetenv("TRYOUT_TEST_B") })

	if os.Getenv("TRYOUT_TEST_A") != "from-env" {
		t.Fatalf("expected existing env to win")
	}
	if os.Getenv("TRYOUT_TEST_B") != "from-file" {
		t.Fatalf("expected value from .env")
	}
}

func TestDecodeYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	if err := os.WriteFile(path, []byte("q1: o2\nq2: true\nq3: |\n  two lines\n  of essay\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := DecodeYAMLFile(path, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["q1"]) != `"o2"` || string(raw["q2"]) != "true" {
		t.Fatalf("unexpected values %s %s", raw["q1"], raw["q2"])
	}
	if string(raw["q3"]) != `"two lines\nof essay\n"` {
		t.Fatalf("unexpected essay %s", raw["q3"])
	}

	if err := DecodeYAMLFile(filepath.Join(t.TempDir(), "none.yaml"), &raw); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDecodeYAMLFileNumericKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	if err := os.WriteFile(path, []byte("1: o2\n2: true\nnested:\n  - 3: x\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := DecodeYAMLFile(path, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["1"]) != `"o2"` || string(raw["2"]) != "true" {
		t.Fatalf("unexpected values %s %s", raw["1"], raw["2"])
	}
	if string(raw["nested"]) != `[{"3":"x"}]` {
		t.Fatalf("unexpected nested value %s", raw["nested"])
	}
}
