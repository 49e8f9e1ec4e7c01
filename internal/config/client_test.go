package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientConfig_Defaults(t *testing.T) {
	t.Setenv("RESEARCH_HUB_URL", "")
	os.Unsetenv("RESEARCH_HUB_URL")

	cfg, err := LoadClientConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.HubURL)
	assert.True(t, cfg.OpenBrowser)
	assert.Equal(t, 5*time.Minute, cfg.LoginTimeout)
}

func TestLoadClientConfig_EnvFile(t *testing.T) {
	t.Setenv("RESEARCH_HUB_URL", "")
	os.Unsetenv("RESEARCH_HUB_URL")
	t.Setenv("RESEARCH_HUB_OPEN_BROWSER", "")
	os.Unsetenv("RESEARCH_HUB_OPEN_BROWSER")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RESEARCH_HUB_URL=https://hub.example.org\nRESEARCH_HUB_OPEN_BROWSER=false\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("RESEARCH_HUB_URL")
		os.Unsetenv("RESEARCH_HUB_OPEN_BROWSER")
	})

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://hub.example.org", cfg.HubURL)
	assert.False(t, cfg.OpenBrowser)
}

func TestLoadClientConfig_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := LoadClientConfig(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoadClientConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"relative_url", "RESEARCH_HUB_URL", "hub.example.org"},
		{"zero_timeout", "RESEARCH_HUB_LOGIN_TIMEOUT", "0s"},
		{"bad_bool", "RESEARCH_HUB_OPEN_BROWSER", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadClientConfig("")
			assert.Error(t, err)
		})
	}
}
