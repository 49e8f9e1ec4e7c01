package hub

import (
	"context"
	"fmt"
	"sync"
)

// OAuthConfig is the public part of the ORCID client configuration.
type OAuthConfig struct {
	ClientID        string `json:"clientId"`
	RedirectURI     string `json:"redirectUri"`
	ProviderBaseURL string `json:"baseUrl"`
	Scope           string `json:"scope"`
}

// ConfigSource fetches the public OAuth configuration.
type ConfigSource interface {
	FetchConfig(ctx context.Context) (OAuthConfig, error)
}

// ConfigProvider loads the configuration once per page load and keeps it.
type ConfigProvider struct {
	source ConfigSource

	mu     sync.RWMutex
	config OAuthConfig
	loaded bool
}

func NewConfigProvider(source ConfigSource) *ConfigProvider {
	return &ConfigProvider{source: source}
}

// Load fetches the configuration. There is no retry: a failure leaves the
// provider unloaded and returns ErrConfigUnavailable.
func (p *ConfigProvider) Load(ctx context.Context) (OAuthConfig, error) {
	cfg, err := p.source.FetchConfig(ctx)
	if err != nil {
		return OAuthConfig{}, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}

	switch {
	case cfg.ClientID == "":
		return OAuthConfig{}, fmt.Errorf("%w: clientId is empty", ErrConfigUnavailable)
	case cfg.ProviderBaseURL == "":
		return OAuthConfig{}, fmt.Errorf("%w: baseUrl is empty", ErrConfigUnavailable)
	case cfg.RedirectURI == "":
		return OAuthConfig{}, fmt.Errorf("%w: redirectUri is empty", ErrConfigUnavailable)
	}

	p.mu.Lock()
	p.config = cfg
	p.loaded = true
	p.mu.Unlock()
	return cfg, nil
}

// Config returns the last loaded configuration.
func (p *ConfigProvider) Config() (OAuthConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config, p.loaded
}
