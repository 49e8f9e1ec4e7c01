package config

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name   string
		secret Secret
		want   string
	}{
		{
			name:   "non-empty secret",
			secret: Secret("super-secret-password"),
			want:   "***",
		},
		{
			name:   "empty secret",
			secret: Secret(""),
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.secret.String())
			assert.Equal(t, "value: "+tt.want, fmt.Sprintf("value: %s", tt.secret))
			if tt.secret != "" {
				assert.NotContains(t, fmt.Sprintf("password: %v", tt.secret), string(tt.secret))
			}
		})
	}
}

func TestSecretJSONMarshal(t *testing.T) {
	type configWithSecrets struct {
		Username string `json:"username"`
		Password Secret `json:"password"`
		APIKey   Secret `json:"apiKey"`
	}

	cfg := configWithSecrets{
		Username: "admin",
		Password: Secret("super-secret-password"),
		APIKey:   Secret("sk-1234567890abcdef"),
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"admin","password":"***","apiKey":"***"}`, string(data))
}

func TestSecretInStruct(t *testing.T) {
	orcid := ORCIDConfig{
		ClientID:     "APP-TEST",
		ClientSecret: Secret("orcid-secret-12345"),
	}
	storage := StorageConfig{
		Kind:     StorageRedis,
		RedisURL: Secret("redis://:hunter2@cache:6379/0"),
	}

	assert.NotContains(t, fmt.Sprintf("%+v", orcid), "orcid-secret-12345")
	assert.NotContains(t, fmt.Sprintf("%+v", storage), "hunter2")
	assert.Equal(t, "***", orcid.ClientSecret.String())
}
