package urlutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		paths   []string
		want    string
		wantErr bool
	}{
		{
			name:  "api path",
			base:  "https://hub.example.org",
			paths: []string{"/api/orcid-config"},
			want:  "https://hub.example.org/api/orcid-config",
		},
		{
			name:  "base with path",
			base:  "https://example.org/research",
			paths: []string{"api", "load-profile"},
			want:  "https://example.org/research/api/load-profile",
		},
		{
			name:  "trailing slash preserved",
			base:  "https://example.org",
			paths: []string{"api/"},
			want:  "https://example.org/api/",
		},
		{
			name:  "base with trailing slash",
			base:  "https://example.org/",
			paths: []string{"health"},
			want:  "https://example.org/health",
		},
		{
			name:    "invalid base URL",
			base:    "://invalid",
			paths:   []string{"api"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinPath(tt.base, tt.paths...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripQuery(t *testing.T) {
	u, err := url.Parse("http://127.0.0.1:8765/callback?code=abc&state=xyz#top")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8765/callback", StripQuery(u))
	assert.Equal(t, "code=abc&state=xyz", u.RawQuery, "input must not be modified")
}

func TestHost(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http://127.0.0.1:8765/callback", "127.0.0.1:8765"},
		{"http://localhost/callback", "localhost:80"},
		{"https://hub.example.org/", "hub.example.org:443"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Host(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
