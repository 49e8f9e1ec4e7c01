package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dgellow/research-hub/internal/log"
)

// DefaultExchangeTimeout bounds the ORCID token exchange
const DefaultExchangeTimeout = 30 * time.Second

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if version != SupportedVersion {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// Parse directly into typed Config struct
	// The custom UnmarshalJSON methods will resolve env vars immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	ApplyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig validates the config structure before environment resolution
func validateRawConfig(rawConfig map[string]any) error {
	orcid, ok := rawConfig["orcid"].(map[string]any)
	if !ok {
		return nil
	}
	value, exists := orcid["clientSecret"]
	if !exists {
		return nil
	}
	if _, isString := value.(string); isString {
		return fmt.Errorf("clientSecret must use environment variable reference for security")
	}
	if refMap, isMap := value.(map[string]any); isMap {
		if _, hasEnv := refMap["$env"]; !hasEnv {
			return fmt.Errorf("clientSecret must use {\"$env\": \"VAR_NAME\"} format")
		}
	}
	return nil
}

// ApplyDefaults fills in optional values
func ApplyDefaults(config *Config) {
	if config.Server.Name == "" {
		config.Server.Name = "research-hub"
	}
	if config.ORCID.BaseURL == "" {
		config.ORCID.BaseURL = "https://orcid.org"
	}
	if config.ORCID.Scope == "" {
		config.ORCID.Scope = "/authenticate"
	}
	if config.ORCID.ExchangeTimeout == 0 {
		config.ORCID.ExchangeTimeout = DefaultExchangeTimeout
	}
	if config.Storage.Kind == "" {
		config.Storage.Kind = StorageMemory
	}
	if config.Pipeline != nil && config.Pipeline.Timeout == 0 {
		config.Pipeline.Timeout = 60 * time.Second
	}
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Server.BaseURL == "" {
		return fmt.Errorf("server.baseURL is required")
	}
	if config.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if err := validateORCIDConfig(&config.ORCID); err != nil {
		return fmt.Errorf("orcid config: %w", err)
	}

	switch config.Storage.Kind {
	case StorageMemory:
		log.LogWarn("Using memory storage: profiles are lost when the server stops")
	case StorageFirestore:
		if config.Storage.GCPProject == "" {
			return fmt.Errorf("storage.gcpProject is required when using firestore storage")
		}
	case StorageRedis:
		if config.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redisUrl is required when using redis storage")
		}
	default:
		return fmt.Errorf("unknown storage kind %q", config.Storage.Kind)
	}

	if p := config.Pipeline; p != nil {
		if p.UpstreamURL == "" {
			return fmt.Errorf("pipeline.upstreamUrl is required when pipeline is configured")
		}
		if p.Timeout < 0 {
			return fmt.Errorf("pipeline.timeout cannot be negative")
		}
	}

	return nil
}

func validateORCIDConfig(o *ORCIDConfig) error {
	if o.ClientID == "" {
		return fmt.Errorf("clientId is required")
	}
	if o.ClientSecret == "" {
		return fmt.Errorf("clientSecret is required")
	}
	if o.RedirectURI == "" {
		return fmt.Errorf("redirectUri is required")
	}
	redirect, err := url.ParseRequestURI(o.RedirectURI)
	if err != nil {
		return fmt.Errorf("redirectUri is not a valid URL: %w", err)
	}
	if redirect.Scheme != "https" && !isLoopback(redirect.Hostname()) && !isDev() {
		return fmt.Errorf("redirectUri must use https unless it points at a loopback address")
	}
	if _, err := url.ParseRequestURI(o.BaseURL); err != nil {
		return fmt.Errorf("baseUrl is not a valid URL: %w", err)
	}
	if o.ExchangeTimeout < 0 {
		return fmt.Errorf("exchangeTimeout cannot be negative")
	}
	return nil
}

// isDev relaxes the https requirement on redirect URIs for local testing
func isDev() bool {
	env := strings.ToLower(os.Getenv("RESEARCH_HUB_ENV"))
	return env == "development" || env == "dev"
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Template returns the starter config written by "config init"
func Template() map[string]any {
	return map[string]any{
		"version": SupportedVersion,
		"server": map[string]any{
			"baseURL":        "https://hub.example.org",
			"addr":           ":8080",
			"name":           "research-hub",
			"allowedOrigins": []string{"https://hub.example.org"},
		},
		"orcid": map[string]any{
			"clientId":        map[string]string{"$env": "ORCID_CLIENT_ID"},
			"clientSecret":    map[string]string{"$env": "ORCID_CLIENT_SECRET"},
			"baseUrl":         "https://sandbox.orcid.org",
			"apiBaseUrl":      "https://pub.sandbox.orcid.org",
			"redirectUri":     "http://127.0.0.1:8765/callback",
			"scope":           "/authenticate",
			"exchangeTimeout": "30s",
		},
		"storage": map[string]any{
			"kind": "memory",
		},
	}
}
