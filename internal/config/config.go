package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" validate:"omitempty,numeric"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" validate:"omitempty,url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Storage struct {
		// Backend is where snapshots live: memory, redis or postgres.
		Backend   string `yaml:"backend" validate:"omitempty,oneof=memory redis postgres"`
		SaveDelay string `yaml:"save_delay"`
		Route     string `yaml:"route"`
	} `yaml:"storage"`
	Submission struct {
		// URL templates; "{quizId}" is replaced with the quiz id.
		Endpoint   string `yaml:"endpoint"`
		ResultsURL string `yaml:"results_url"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"submission"`
	Extract struct {
		Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"extract"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		Format string `yaml:"format" validate:"omitempty,oneof=text json"`
	} `yaml:"log"`
}

// Load reads YAML config from path and validates it.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("invalid config: storage backend redis needs redis.addr")
	}
	if c.Storage.Backend == "postgres" && c.Postgres.URL == "" {
		return fmt.Errorf("invalid config: storage backend postgres needs postgres.url")
	}
	return nil
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
