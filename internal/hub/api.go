package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgellow/research-hub/internal/ioutil"
	"github.com/dgellow/research-hub/internal/orcid"
	"github.com/dgellow/research-hub/internal/urlutil"
)

// Identity is the user record the backend returns after a code exchange.
// The access token itself never leaves the backend.
type Identity struct {
	ORCID       string             `json:"orcid"`
	Name        *orcid.Name        `json:"name"`
	Email       string             `json:"email,omitempty"`
	Affiliation *orcid.Affiliation `json:"affiliation"`
	TokenType   string             `json:"tokenType"`
	Scope       string             `json:"scope"`
}

// ProfileFields are the user-entered profile fields.
type ProfileFields struct {
	ResearchInterests string `json:"research-interests"`
	Institution       string `json:"institution"`
	Department        string `json:"department"`
}

// RemoteProfile is a profile document as served by the backend.
type RemoteProfile struct {
	ORCID          string          `json:"orcidId"`
	UserInfo       json.RawMessage `json:"userInfo,omitempty"`
	AdditionalData ProfileFields   `json:"additionalData"`
	Metadata       struct {
		LastUpdated time.Time `json:"lastUpdated"`
		Version     string    `json:"version,omitempty"`
		Source      string    `json:"source,omitempty"`
	} `json:"metadata"`
}

// SaveProfileRequest is the body of a profile save.
type SaveProfileRequest struct {
	ORCID       string        `json:"orcidId"`
	ProfileData ProfileFields `json:"profileData"`
	UserInfo    *Session      `json:"userInfo,omitempty"`
}

// CallbackExchanger hands an authorization code to the backend.
type CallbackExchanger interface {
	ExchangeCallback(ctx context.Context, code, state string) (*Identity, error)
}

// ProfileRemote is the durable profile store as seen from the client.
type ProfileRemote interface {
	LoadProfile(ctx context.Context, orcidID string) (profile *RemoteProfile, found bool, err error)
	SaveProfile(ctx context.Context, req SaveProfileRequest) error
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("backend returned %d", e.Status)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// APIClient calls the research-hub backend.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for the backend at baseURL.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// FetchConfig implements ConfigSource.
func (c *APIClient) FetchConfig(ctx context.Context) (OAuthConfig, error) {
	var cfg OAuthConfig
	if err := c.do(ctx, http.MethodGet, "/api/orcid-config", nil, nil, &cfg); err != nil {
		return OAuthConfig{}, err
	}
	return cfg, nil
}

// ExchangeCallback implements CallbackExchanger.
func (c *APIClient) ExchangeCallback(ctx context.Context, code, state string) (*Identity, error) {
	req := map[string]string{"code": code, "state": state}
	var resp struct {
		Success bool      `json:"success"`
		User    *Identity `json:"user"`
		Error   string    `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/orcid-callback", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}
	if !resp.Success || resp.User == nil || resp.User.ORCID == "" {
		msg := resp.Error
		if msg == "" {
			msg = "response carries no user"
		}
		return nil, fmt.Errorf("%w: %s", ErrTokenExchangeFailed, msg)
	}
	return resp.User, nil
}

// LoadProfile implements ProfileRemote.
func (c *APIClient) LoadProfile(ctx context.Context, orcidID string) (*RemoteProfile, bool, error) {
	var resp struct {
		Success bool           `json:"success"`
		Found   bool           `json:"found"`
		Profile *RemoteProfile `json:"profile"`
	}
	query := url.Values{"orcid": {orcidID}}
	if err := c.do(ctx, http.MethodGet, "/api/load-profile", query, nil, &resp); err != nil {
		return nil, false, err
	}
	if !resp.Found || resp.Profile == nil {
		return nil, false, nil
	}
	return resp.Profile, true, nil
}

// SaveProfile implements ProfileRemote.
func (c *APIClient) SaveProfile(ctx context.Context, req SaveProfileRequest) error {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/save-profile", nil, req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return errors.New("backend did not confirm the save")
	}
	return nil
}

// Query relays a research query to the backend and returns the raw result.
func (c *APIClient) Query(ctx context.Context, query string, outputTypes []string) (json.RawMessage, error) {
	req := map[string]any{"query": query, "outputTypes": outputTypes}
	var resp json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/query", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint, err := urlutil.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("invalid backend url: %w", err)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Error   string `json:"error"`
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		raw := ioutil.ReadLimited(resp.Body, 4096)
		if json.Unmarshal([]byte(raw), &errBody) == nil {
			apiErr.Code = errBody.Code
			apiErr.Message = errBody.Message
			if apiErr.Message == "" {
				apiErr.Message = errBody.Error
			}
		} else {
			apiErr.Message = strings.TrimSpace(raw)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
