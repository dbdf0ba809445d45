// Package config loads FiddleGG settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"fiddlegg/internal/store"
)

// EnvPrefix is prepended to every variable name
const EnvPrefix = "FIDDLEGG_"

// Store backends
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// DefaultEnvFiles are the .env locations tried by Load
var DefaultEnvFiles = []string{".env", "../.env"}

// Config holds runtime settings
type Config struct {
	APIURL          string        `env:"API_URL" envDefault:"http://localhost:3333/api"`
	APITimeout      time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	CDNURL          string        `env:"CDN_URL" envDefault:"https://ddragon.leagueoflegends.com"`
	CDNTimeout      time.Duration `env:"CDN_TIMEOUT" envDefault:"5s"`
	FallbackVersion string        `env:"FALLBACK_VERSION" envDefault:"15.17.1"`
	PageSize        int           `env:"PAGE_SIZE" envDefault:"10"`
	Store           string        `env:"STORE" envDefault:"sqlite"`
	DataDir         string        `env:"DATA_DIR"` // defaults to store.DefaultDir()
	Listen          string        `env:"LISTEN" envDefault:"127.0.0.1:8787"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the first .env file found in files (DefaultEnvFiles when
// none are given), then parses the environment. Variables already set in
// the environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, path := range files {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}
	return Parse()
}

// Parse reads Config from the environment only
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = store.DefaultDir()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable zero value
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreSQLite, StoreFile, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want sqlite, file or memory)", c.Store))
	}
	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("page size must be positive, got %d", c.PageSize))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}
	if c.CDNTimeout <= 0 {
		errs = append(errs, errors.New("CDN timeout must be positive"))
	}
	if c.APIURL == "" || c.CDNURL == "" {
		errs = append(errs, errors.New("API and CDN URLs are required"))
	}
	return errors.Join(errs...)
}
