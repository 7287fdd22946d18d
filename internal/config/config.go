package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"factionwatch/internal/goal"
)

const (
	DefaultReceiveTimeout    = 5 * time.Second
	DefaultReconnectInterval = 10 * time.Second
	DefaultWorkers           = 4
	DefaultStaleAfter        = 72 * time.Hour
)

type ProjectConfig struct {
	Project  string         `yaml:"project" validate:"required"`
	Version  int            `yaml:"version" validate:"eq=1"`
	Database DatabaseConfig `yaml:"database"`
	Feed     FeedConfig     `yaml:"feed"`
	Factions []string       `yaml:"factions" validate:"dive,required"`
	Goals    GoalsConfig    `yaml:"goals"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" validate:"required"`
}

type FeedConfig struct {
	URL               string        `yaml:"url" validate:"omitempty,url"`
	ReceiveTimeout    time.Duration `yaml:"receive_timeout" validate:"gte=0"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval" validate:"gte=0"`
	Workers           int           `yaml:"workers" validate:"gte=0,lte=256"`
}

type GoalsConfig struct {
	Default    string        `yaml:"default"`
	StaleAfter time.Duration `yaml:"stale_after" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	applyDefaults(&cfg)

	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	dsn := strings.TrimSpace(cfg.Database.DSN)
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") && !strings.HasPrefix(dsn, "sqlite://") {
		return fmt.Errorf("unsupported database dsn scheme: %s", dsn)
	}

	seen := make(map[string]struct{})
	for _, faction := range cfg.Factions {
		key := strings.ToLower(strings.TrimSpace(faction))
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate faction: %s", faction)
		}
		seen[key] = struct{}{}
	}

	if cfg.Goals.Default != "" {
		if _, err := goal.Lookup(cfg.Goals.Default); err != nil {
			return fmt.Errorf("default goal: %w", err)
		}
	}

	return nil
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.Feed.ReceiveTimeout == 0 {
		cfg.Feed.ReceiveTimeout = DefaultReceiveTimeout
	}
	if cfg.Feed.ReconnectInterval == 0 {
		cfg.Feed.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.Feed.Workers == 0 {
		cfg.Feed.Workers = DefaultWorkers
	}
	if cfg.Goals.StaleAfter == 0 {
		cfg.Goals.StaleAfter = DefaultStaleAfter
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
