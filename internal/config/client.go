package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dgellow/research-hub/internal/log"
)

// ClientConfig configures the command line client. It is read from the
// environment, optionally seeded from a dotenv file.
type ClientConfig struct {
	HubURL       string        `env:"RESEARCH_HUB_URL" envDefault:"http://localhost:8080"`
	CachePath    string        `env:"RESEARCH_HUB_CACHE"`
	OpenBrowser  bool          `env:"RESEARCH_HUB_OPEN_BROWSER" envDefault:"true"`
	LoginTimeout time.Duration `env:"RESEARCH_HUB_LOGIN_TIMEOUT" envDefault:"5m"`
	LogLevel     string        `env:"LOG_LEVEL"`
}

// LoadClientConfig loads envFile when it exists and parses the client
// environment. An empty envFile skips the dotenv step.
func LoadClientConfig(envFile string) (ClientConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return ClientConfig{}, fmt.Errorf("loading %s: %w", envFile, err)
			}
			log.LogDebugWithFields("config", "No env file found", map[string]any{
				"path": envFile,
			})
		}
	}

	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse env: %w", err)
	}

	u, err := url.Parse(cfg.HubURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ClientConfig{}, fmt.Errorf("RESEARCH_HUB_URL must be an absolute URL, got %q", cfg.HubURL)
	}
	if cfg.LoginTimeout <= 0 {
		return ClientConfig{}, fmt.Errorf("RESEARCH_HUB_LOGIN_TIMEOUT must be positive")
	}
	return cfg, nil
}
