package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgellow/research-hub/internal/config"
	jsonwriter "github.com/dgellow/research-hub/internal/json"
	"github.com/dgellow/research-hub/internal/log"
	"github.com/dgellow/research-hub/internal/orcid"
	"github.com/dgellow/research-hub/internal/pipeline"
	"github.com/dgellow/research-hub/internal/storage"
)

const maxBodyBytes = 1 << 20

// TokenExchanger is the server side of the ORCID login
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*orcid.Token, error)
	FetchProfile(ctx context.Context, orcidID string, token *orcid.Token) orcid.Person
}

// APIHandlers serves the JSON API used by client contexts
type APIHandlers struct {
	orcidConfig config.ORCIDConfig
	exchanger   TokenExchanger
	store       storage.ProfileStorage
	processor   pipeline.Processor
	now         func() time.Time
}

// NewAPIHandlers creates the API handlers. processor may be nil, in which
// case the query endpoint reports the pipeline as unavailable.
func NewAPIHandlers(orcidConfig config.ORCIDConfig, exchanger TokenExchanger, store storage.ProfileStorage, processor pipeline.Processor) *APIHandlers {
	if orcidConfig.ExchangeTimeout <= 0 {
		orcidConfig.ExchangeTimeout = config.DefaultExchangeTimeout
	}
	return &APIHandlers{
		orcidConfig: orcidConfig,
		exchanger:   exchanger,
		store:       store,
		processor:   processor,
		now:         time.Now,
	}
}

// PublicConfig is the OAuth configuration safe to hand to any client
type PublicConfig struct {
	ClientID    string `json:"clientId"`
	BaseURL     string `json:"baseUrl"`
	Scope       string `json:"scope"`
	RedirectURI string `json:"redirectUri"`
}

// CallbackUser is the identity returned after a successful exchange
type CallbackUser struct {
	ORCID       string             `json:"orcid"`
	Name        *orcid.Name        `json:"name"`
	Email       string             `json:"email,omitempty"`
	Affiliation *orcid.Affiliation `json:"affiliation"`
	TokenType   string             `json:"tokenType"`
	Scope       string             `json:"scope"`
}

type callbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type saveProfileRequest struct {
	ORCID       string                 `json:"orcidId"`
	ProfileData *storage.ProfileFields `json:"profileData"`
	UserInfo    map[string]any         `json:"userInfo"`
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	jsonwriter.WriteMethodNotAllowed(w, method, http.MethodOptions)
	return false
}

// decodeBody reads a bounded JSON body into v
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ConfigHandler serves the public OAuth configuration
func (h *APIHandlers) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	_ = jsonwriter.Write(w, PublicConfig{
		ClientID:    h.orcidConfig.ClientID,
		BaseURL:     h.orcidConfig.BaseURL,
		Scope:       h.orcidConfig.Scope,
		RedirectURI: h.orcidConfig.RedirectURI,
	})
}

// CallbackHandler exchanges an authorization code for the researcher's
// identity. The access token is used for the person lookup and then dropped.
func (h *APIHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req callbackRequest
	if err := decodeBody(r, &req); err != nil {
		jsonwriter.WriteBadRequest(w, jsonwriter.CodeInvalidJSON, "Invalid JSON in request body")
		return
	}
	if req.Code == "" {
		jsonwriter.WriteBadRequest(w, jsonwriter.CodeMissingCode, "Authorization code is required")
		return
	}

	// Exchange code for token with timeout
	ctx, cancel := context.WithTimeout(r.Context(), h.orcidConfig.ExchangeTimeout)
	defer cancel()

	token, err := h.exchanger.ExchangeCode(ctx, req.Code)
	if err != nil {
		log.LogErrorWithFields("server", "ORCID token exchange failed", map[string]any{
			"error":      err.Error(),
			"request_id": RequestID(r.Context()),
		})
		jsonwriter.WriteError(w, http.StatusBadGateway, jsonwriter.CodeTokenExchangeFailed, "Failed to obtain access token from ORCID", "")
		return
	}

	person := h.exchanger.FetchProfile(ctx, token.ORCID, token)
	name := person.Name
	if name == nil && token.Name != "" {
		name = &orcid.Name{CreditName: token.Name}
	}

	log.LogInfoWithFields("server", "ORCID callback completed", map[string]any{
		"orcid":      token.ORCID,
		"request_id": RequestID(r.Context()),
	})

	_ = jsonwriter.Write(w, map[string]any{
		"success": true,
		"user": CallbackUser{
			ORCID:       token.ORCID,
			Name:        name,
			Email:       person.Email,
			Affiliation: person.Affiliation,
			TokenType:   token.TokenType,
			Scope:       token.Scope,
		},
		"timestamp": h.now().UTC(),
	})
}

// LoadProfileHandler returns the stored profile for ?orcid=
func (h *APIHandlers) LoadProfileHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	orcidID := r.URL.Query().Get("orcid")
	if !orcid.ValidID(orcidID) {
		jsonwriter.WriteBadRequest(w, jsonwriter.CodeInvalidORCID, "Valid ORCID ID is required")
		return
	}

	doc, err := h.store.GetProfile(r.Context(), orcidID)
	switch {
	case errors.Is(err, storage.ErrProfileNotFound):
		_ = jsonwriter.Write(w, map[string]any{
			"success": true,
			"found":   false,
			"message": "No profile found for this ORCID ID",
			"orcidId": orcidID,
		})
		return
	case errors.Is(err, storage.ErrCorruptedProfile):
		log.LogErrorWithFields("server", "Corrupted profile data", map[string]any{
			"orcid": orcidID,
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, jsonwriter.CodeCorruptedData, "Corrupted profile data", "Profile data is corrupted and cannot be read")
		return
	case err != nil:
		log.LogErrorWithFields("server", "Failed to load profile", map[string]any{
			"orcid": orcidID,
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, jsonwriter.CodeLoadError, "Failed to load profile", err.Error())
		return
	}

	_ = jsonwriter.Write(w, map[string]any{
		"success":   true,
		"found":     true,
		"orcidId":   orcidID,
		"profile":   doc,
		"timestamp": h.now().UTC(),
	})
}

// SaveProfileHandler replaces the stored profile for an iD
func (h *APIHandlers) SaveProfileHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req saveProfileRequest
	if err := decodeBody(r, &req); err != nil {
		jsonwriter.WriteBadRequest(w, jsonwriter.CodeInvalidJSON, "Invalid JSON in request body")
		return
	}
	if !orcid.ValidID(req.ORCID) {
		jsonwriter.WriteBadRequest(w, jsonwriter.CodeInvalidORCID, "Valid ORCID ID is required")
		return
	}
	if req.ProfileData == nil {
		jsonwriter.WriteBadRequest(w, jsonwriter.CodeMissingProfileData, "Profile data is required")
		return
	}

	now := h.now()
	doc := storage.NewProfileDocument(req.ORCID, *req.ProfileData, req.UserInfo, now)
	if err := h.store.PutProfile(r.Context(), doc); err != nil {
		log.LogErrorWithFields("server", "Failed to save profile", map[string]any{
			"orcid": req.ORCID,
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, jsonwriter.CodeSaveError, "Failed to save profile", err.Error())
		return
	}

	log.LogInfoWithFields("server", "Profile saved", map[string]any{
		"orcid": req.ORCID,
	})
	_ = jsonwriter.Write(w, map[string]any{
		"success":   true,
		"message":   "Profile saved successfully",
		"orcidId":   req.ORCID,
		"timestamp": now.UTC(),
	})
}

// QueryHandler relays a research query to the configured processor
func (h *APIHandlers) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var q pipeline.Query
	if err := decodeBody(r, &q); err != nil {
		jsonwriter.WriteBadRequest(w, jsonwriter.CodeInvalidJSON, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(q.Query) == "" {
		jsonwriter.WriteBadRequest(w, jsonwriter.CodeMissingQuery, "Query is required")
		return
	}
	if len(q.OutputTypes) == 0 {
		jsonwriter.WriteBadRequest(w, jsonwriter.CodeMissingOutputTypes, "At least one output type must be selected")
		return
	}

	if h.processor == nil {
		jsonwriter.WriteServiceUnavailable(w, jsonwriter.CodePipelineUnavailable, "No query processor configured")
		return
	}

	result, err := h.processor.Process(r.Context(), q)
	if err != nil {
		log.LogErrorWithFields("server", "Query processing failed", map[string]any{
			"error":      err.Error(),
			"request_id": RequestID(r.Context()),
		})
		jsonwriter.WriteError(w, http.StatusBadGateway, jsonwriter.CodePipelineError, "Query processing failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result)
}

// Routes registers the API on mux behind the shared middleware chain
func (h *APIHandlers) Routes(mux *http.ServeMux, allowedOrigins []string) {
	// Last applied runs first: request id, logging, recovery, then CORS
	middlewares := []MiddlewareFunc{
		NewCORSMiddleware(allowedOrigins),
		NewRecoverMiddleware("server"),
		NewLoggerMiddleware("server"),
		NewRequestIDMiddleware(),
	}

	mux.Handle("/api/orcid-config", ChainMiddleware(http.HandlerFunc(h.ConfigHandler), middlewares...))
	mux.Handle("/api/orcid-callback", ChainMiddleware(http.HandlerFunc(h.CallbackHandler), middlewares...))
	mux.Handle("/api/load-profile", ChainMiddleware(http.HandlerFunc(h.LoadProfileHandler), middlewares...))
	mux.Handle("/api/save-profile", ChainMiddleware(http.HandlerFunc(h.SaveProfileHandler), middlewares...))
	mux.Handle("/api/query", ChainMiddleware(http.HandlerFunc(h.QueryHandler), middlewares...))
	mux.Handle("/health", NewHealthHandler())
}
