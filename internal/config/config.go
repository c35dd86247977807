package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		// Source is memory, postgres or remote.
		Source   string `yaml:"source"`
		TTL      string `yaml:"ttl"`
		SeedFile string `yaml:"seed_file"`
		Remote   struct {
			BaseURL string `yaml:"base_url"`
			Token   string `yaml:"token"`
			Timeout string `yaml:"timeout"`
		} `yaml:"remote"`
		Categories   []string `yaml:"categories"`
		Difficulties []string `yaml:"difficulties"`
	} `yaml:"catalog"`
	Attempt struct {
		// DefaultPassingScore is nil when unset; an explicit 0 is kept.
		DefaultPassingScore *int   `yaml:"default_passing_score"`
		ExpiryPolicy        string `yaml:"expiry_policy"`
		EmptyCatalog        string `yaml:"empty_catalog"`
		TickInterval        string `yaml:"tick_interval"`
	} `yaml:"attempt"`
	Results struct {
		Limit int    `yaml:"limit"`
		TTL   string `yaml:"ttl"`
	} `yaml:"results"`
}

// Load reads YAML config from path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		applyDefaults(&cfg)
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// LoadEnv reads a .env file into the process environment when present.
// Variables already set are not overridden.
func LoadEnv(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = "memory"
		if cfg.Postgres.URL != "" {
			cfg.Catalog.Source = "postgres"
		}
	}
	if cfg.Attempt.DefaultPassingScore == nil {
		passing := 70
		cfg.Attempt.DefaultPassingScore = &passing
	}
	if cfg.Attempt.ExpiryPolicy == "" {
		cfg.Attempt.ExpiryPolicy = "none"
	}
	if cfg.Attempt.EmptyCatalog == "" {
		cfg.Attempt.EmptyCatalog = "threshold"
	}
	if cfg.Results.Limit == 0 {
		cfg.Results.Limit = 100
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
}

// PassingScore is the threshold applied to tryouts that carry none.
func (c Config) PassingScore() int {
	if c.Attempt.DefaultPassingScore == nil {
		return 70
	}
	return *c.Attempt.DefaultPassingScore
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// DecodeYAMLFile reads a YAML document and decodes it into dst through its JSON
// representation, so types with custom JSON decoding (tryouts, answers) are honoured.
func DecodeYAMLFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	raw, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return fmt.Errorf("convert %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// stringKeys rewrites mappings with non-string keys (yaml reads `1: x` as an int
// key) into string-keyed maps that encoding/json accepts.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = stringKeys(child)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = stringKeys(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = stringKeys(child)
		}
		return t
	default:
		return v
	}
}
