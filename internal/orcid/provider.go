package orcid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the production ORCID registry.
const DefaultBaseURL = "https://orcid.org"

// DefaultScope only asks ORCID to confirm who the user is.
const DefaultScope = "/authenticate"

// ErrTokenExchangeFailed is returned when ORCID refuses the authorization code
// or answers without an access token or iD.
var ErrTokenExchangeFailed = errors.New("orcid token exchange failed")

var idPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

// ValidID reports whether id has the 16-digit ORCID iD shape, with an
// optional X checksum character.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Token is the result of a successful code exchange.
type Token struct {
	AccessToken string
	TokenType   string
	Scope       string
	ORCID       string
	// Name is the display name ORCID includes in the token response, if any.
	Name string
}

// Provider talks to the ORCID OAuth and member/public APIs.
// The client secret lives here and never leaves the backend.
type Provider struct {
	config     oauth2.Config
	apiBaseURL string // defaults to the registry base URL, overridable for the public API host
	httpClient *http.Client
}

// Option customizes a Provider.
type Option func(*Provider)

// WithAPIBaseURL points profile lookups at a different host than the
// OAuth endpoints (for example https://pub.orcid.org).
func WithAPIBaseURL(u string) Option {
	return func(p *Provider) {
		if u != "" {
			p.apiBaseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient overrides the client used for the code exchange and the
// profile lookups.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// NewProvider creates an ORCID provider for the given registry base URL.
func NewProvider(clientID, clientSecret, redirectURI, baseURL, scope string, opts ...Option) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if scope == "" {
		scope = DefaultScope
	}

	p := &Provider{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       strings.Fields(scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:  baseURL + "/oauth/authorize",
				TokenURL: baseURL + "/oauth/token",
				// ORCID expects client credentials in the form body
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBaseURL: baseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Type returns the provider type.
func (p *Provider) Type() string {
	return "orcid"
}

// ExchangeCode trades an authorization code for an access token.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", ErrTokenExchangeFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			desc := retrieveErr.ErrorDescription
			if desc == "" {
				desc = retrieveErr.ErrorCode
			}
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			return nil, fmt.Errorf("%w: status %d: %s", ErrTokenExchangeFailed, status, desc)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: response lacks an access token", ErrTokenExchangeFailed)
	}

	id, _ := tok.Extra("orcid").(string)
	if id == "" {
		return nil, fmt.Errorf("%w: response lacks an orcid iD", ErrTokenExchangeFailed)
	}

	scope, _ := tok.Extra("scope").(string)
	name, _ := tok.Extra("name").(string)

	return &Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Scope:       scope,
		ORCID:       id,
		Name:        name,
	}, nil
}
