package orcid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "0000-0002-1825-0097"

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"1234-5678-9101-112X", true},
		{"0000-0002-1825-0097", true},
		{"12345678", false},
		{"1234-5678-9101-112x", false},
		{"1234-5678-9101-1123-", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidID(tt.id))
		})
	}
}

func newFakeORCID(t *testing.T, tokenStatus int, tokenBody map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/oauth/token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
			assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
			assert.Equal(t, "good-code", r.PostForm.Get("code"))
			w.WriteHeader(tokenStatus)
			_ = json.NewEncoder(w).Encode(tokenBody)
		case "/v3.0/" + testID + "/person":
			assert.Equal(t, "Bearer access-123", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{
				"name": {
					"given-names": {"value": "Josiah"},
					"family-name": {"value": "Carberry"},
					"credit-name": null
				},
				"emails": {"email": [
					{"email": "old@example.org", "primary": false},
					{"email": "josiah@example.org", "primary": true}
				]}
			}`))
		case "/v3.0/" + testID + "/employments":
			_, _ = w.Write([]byte(`{
				"affiliation-group": [{
					"summaries": [{
						"employment-summary": {
							"department-name": "Psychoceramics",
							"role-title": "Professor",
							"organization": {"name": "Brown University"}
						}
					}]
				}]
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestProvider_ExchangeCode(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      map[string]any
		wantErr   bool
		wantORCID string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: map[string]any{
				"access_token": "access-123",
				"token_type":   "bearer",
				"scope":        "/authenticate",
				"name":         "Josiah Carberry",
				"orcid":        testID,
			},
			wantORCID: testID,
		},
		{
			name:    "provider_rejects_code",
			status:  http.StatusBadRequest,
			body:    map[string]any{"error": "invalid_grant", "error_description": "Reused authorization code"},
			wantErr: true,
		},
		{
			name:    "missing_orcid",
			status:  http.StatusOK,
			body:    map[string]any{"access_token": "access-123", "token_type": "bearer"},
			wantErr: true,
		},
		{
			name:    "missing_access_token",
			status:  http.StatusOK,
			body:    map[string]any{"token_type": "bearer", "orcid": testID},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeORCID(t, tt.status, tt.body)
			provider := NewProvider("client-id", "client-secret", "https://hub.example.org/", server.URL, "")

			token, err := provider.ExchangeCode(context.Background(), "good-code")
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrTokenExchangeFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantORCID, token.ORCID)
			assert.Equal(t, "access-123", token.AccessToken)
			assert.Equal(t, "/authenticate", token.Scope)
			assert.Equal(t, "Josiah Carberry", token.Name)
		})
	}
}

func TestProvider_ExchangeCodeRequiresCode(t *testing.T) {
	provider := NewProvider("client-id", "client-secret", "https://hub.example.org/", "http://127.0.0.1:1", "")
	_, err := provider.ExchangeCode(context.Background(), "")
	assert.ErrorIs(t, err, ErrTokenExchangeFailed)
}

func TestProvider_FetchProfile(t *testing.T) {
	server := newFakeORCID(t, http.StatusOK, nil)
	provider := NewProvider("client-id", "client-secret", "https://hub.example.org/", server.URL, "")

	person := provider.FetchProfile(context.Background(), testID, &Token{AccessToken: "access-123"})

	require.NotNil(t, person.Name)
	assert.Equal(t, "Josiah", person.Name.GivenNames)
	assert.Equal(t, "Carberry", person.Name.FamilyName)
	assert.Empty(t, person.Name.CreditName)
	assert.Equal(t, "josiah@example.org", person.Email)
	require.NotNil(t, person.Affiliation)
	assert.Equal(t, "Brown University", person.Affiliation.Organization)
	assert.Equal(t, "Psychoceramics", person.Affiliation.Department)
	assert.Equal(t, "Professor", person.Affiliation.Role)
}

func TestProvider_FetchProfileDegrades(t *testing.T) {
	t.Run("server_error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		provider := NewProvider("client-id", "client-secret", "", server.URL, "")
		person := provider.FetchProfile(context.Background(), testID, &Token{AccessToken: "access-123"})
		assert.Equal(t, Person{}, person)
	})

	t.Run("malformed_body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"name": [`))
		}))
		defer server.Close()

		provider := NewProvider("client-id", "client-secret", "", server.URL, "")
		person := provider.FetchProfile(context.Background(), testID, &Token{AccessToken: "access-123"})
		assert.Equal(t, Person{}, person)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		provider := NewProvider("client-id", "client-secret", "", url, "")
		person := provider.FetchProfile(context.Background(), testID, &Token{AccessToken: "access-123"})
		assert.Equal(t, Person{}, person)
	})

	t.Run("invalid_id", func(t *testing.T) {
		provider := NewProvider("client-id", "client-secret", "", "http://127.0.0.1:1", "")
		person := provider.FetchProfile(context.Background(), "not-an-id", &Token{AccessToken: "access-123"})
		assert.Equal(t, Person{}, person)
	})
}
