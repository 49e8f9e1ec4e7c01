package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func paths(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Path)
	}
	return out
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantErrors   []string
		wantWarnings []string
	}{
		{
			name: "minimal_valid",
			content: `{
				"version": "v1",
				"server": {"baseURL": "https://hub.example.org", "addr": ":8080", "allowedOrigins": ["https://hub.example.org"]},
				"orcid": {"clientId": "APP-1", "clientSecret": {"$env": "ORCID_CLIENT_SECRET"}, "redirectUri": "https://hub.example.org/cb"},
				"storage": {"kind": "firestore", "gcpProject": "research"}
			}`,
		},
		{
			name:         "missing_sections",
			content:      `{"version": "v1"}`,
			wantErrors:   []string{"server", "orcid"},
			wantWarnings: []string{"storage"},
		},
		{
			name: "plain_secret_and_bash_style",
			content: `{
				"version": "v1",
				"server": {"baseURL": "https://hub.example.org", "addr": ":8080", "allowedOrigins": ["https://hub.example.org"]},
				"orcid": {"clientId": "$ORCID_CLIENT_ID", "clientSecret": "${ORCID_SECRET}", "redirectUri": "https://hub.example.org/cb"},
				"storage": {"kind": "firestore", "gcpProject": "research"}
			}`,
			wantErrors:   []string{"orcid.clientSecret"},
			wantWarnings: []string{"orcid.clientId", "orcid.clientSecret"},
		},
		{
			name: "unknown_storage_and_version",
			content: `{
				"version": "v2",
				"server": {"baseURL": "https://hub.example.org", "addr": ":8080"},
				"orcid": {"clientId": "APP-1", "clientSecret": {"$env": "S"}, "redirectUri": "https://hub.example.org/cb", "baseUrl": "https://sandbox.orcid.org"},
				"storage": {"kind": "postgres"}
			}`,
			wantErrors:   []string{"version", "storage.kind"},
			wantWarnings: []string{"server.allowedOrigins", "orcid.baseUrl"},
		},
		{
			name: "redis_plain_url_warns",
			content: `{
				"version": "v1",
				"server": {"baseURL": "https://hub.example.org", "addr": ":8080", "allowedOrigins": ["https://hub.example.org"]},
				"orcid": {"clientId": "APP-1", "clientSecret": {"$env": "S"}, "redirectUri": "https://hub.example.org/cb"},
				"storage": {"kind": "redis", "redisUrl": "redis://localhost:6379"},
				"pipeline": {}
			}`,
			wantErrors:   []string{"pipeline.upstreamUrl"},
			wantWarnings: []string{"storage.redisUrl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateFile(writeConfig(t, tt.content))
			require.NoError(t, err)

			assert.ElementsMatch(t, tt.wantErrors, paths(result.Errors))
			assert.ElementsMatch(t, tt.wantWarnings, paths(result.Warnings))
			assert.Equal(t, len(tt.wantErrors) == 0, result.IsValid())
		})
	}
}

func TestValidateFile_InvalidJSON(t *testing.T) {
	result, err := ValidateFile(writeConfig(t, `{not json`))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "invalid JSON")
}

func TestValidateFile_MissingFile(t *testing.T) {
	_, err := ValidateFile("/nonexistent/config.json")
	assert.Error(t, err)
}
