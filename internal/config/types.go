package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SupportedVersion is the config schema version this build understands.
const SupportedVersion = "v1"

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects the durable profile store
type StorageKind string

const (
	StorageMemory    StorageKind = "memory"
	StorageFirestore StorageKind = "firestore"
	StorageRedis     StorageKind = "redis"
)

// ServerConfig is the HTTP listener configuration
type ServerConfig struct {
	BaseURL        string   `json:"baseURL"`
	Addr           string   `json:"addr"`
	Name           string   `json:"name"`
	AllowedOrigins []string `json:"allowedOrigins"` // For CORS validation
}

// ORCIDConfig is the ORCID OAuth client registration
type ORCIDConfig struct {
	ClientID        string        `json:"clientId"`
	ClientSecret    Secret        `json:"clientSecret"`
	BaseURL         string        `json:"baseUrl"`
	APIBaseURL      string        `json:"apiBaseUrl,omitempty"`
	RedirectURI     string        `json:"redirectUri"`
	Scope           string        `json:"scope"`
	ExchangeTimeout time.Duration `json:"exchangeTimeout"`
}

// StorageConfig selects and configures the profile store
type StorageConfig struct {
	Kind                StorageKind `json:"kind"`
	GCPProject          string      `json:"gcpProject,omitempty"`
	FirestoreDatabase   string      `json:"firestoreDatabase,omitempty"`
	FirestoreCollection string      `json:"firestoreCollection,omitempty"`
	RedisURL            Secret      `json:"redisUrl,omitempty"`
	RedisKeyPrefix      string      `json:"redisKeyPrefix,omitempty"`
}

// PipelineConfig points the query endpoint at an upstream processor
type PipelineConfig struct {
	UpstreamURL string        `json:"upstreamUrl"`
	Timeout     time.Duration `json:"timeout"`
}

// Config represents the config structure with resolved values
type Config struct {
	Version  string          `json:"version"`
	Server   ServerConfig    `json:"server"`
	ORCID    ORCIDConfig     `json:"orcid"`
	Storage  StorageConfig   `json:"storage"`
	Pipeline *PipelineConfig `json:"pipeline,omitempty"`
}

// ParseConfigValue parses a JSON value that is either a plain string or an
// {"$env": "VAR"} reference, resolving the reference immediately.
func ParseConfigValue(raw json.RawMessage) (string, error) {
	// Try plain string first
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return "", fmt.Errorf("unknown reference type in config value")
	}
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("environment variable %s not set", envVar)
	}
	// Strip surrounding quotes if present (only matching pairs)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return value, nil
}

// parseOptional resolves raw into dst when present
func parseOptional(raw json.RawMessage, name string, dst *string) error {
	if raw == nil {
		return nil
	}
	value, err := ParseConfigValue(raw)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = value
	return nil
}

// parseDuration parses s into dst when non-empty
func parseDuration(s, name string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = d
	return nil
}
