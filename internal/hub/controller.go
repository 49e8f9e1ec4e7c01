package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgellow/research-hub/internal/log"
	"github.com/dgellow/research-hub/internal/urlutil"
	"golang.org/x/oauth2"
)

// State is the authentication state of a client context.
type State int32

const (
	Unauthenticated State = iota
	PendingCallback
	Authenticated
	ConfigError
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case PendingCallback:
		return "pending_callback"
	case Authenticated:
		return "authenticated"
	case ConfigError:
		return "config_error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Landing is what the host should show after a page load: the resulting
// state and the URL the page should now display.
type Landing struct {
	State State
	URL   string
}

// LegacySessionManager is a previous identity integration that may still
// hold a session of its own.
type LegacySessionManager interface {
	Active() bool
	Logout(ctx context.Context) error
}

// Controller owns the authentication state and the current session. All
// transitions are serialized; State and Session can be read at any time.
type Controller struct {
	mu sync.Mutex

	state   atomic.Int32
	session atomic.Pointer[Session]

	config    *ConfigProvider
	guard     *StateGuard
	exchanger CallbackExchanger
	local     KV
	legacy    LegacySessionManager
	now       func() time.Time
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithLegacySessionManager signals logouts to an older session integration.
func WithLegacySessionManager(m LegacySessionManager) ControllerOption {
	return func(c *Controller) {
		c.legacy = m
	}
}

// WithClock overrides the time source used to stamp sessions.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates a controller in the Unauthenticated state. local is
// the durable store the session is persisted to.
func NewController(config *ConfigProvider, guard *StateGuard, exchanger CallbackExchanger, local KV, opts ...ControllerOption) *Controller {
	c := &Controller{
		config:    config,
		guard:     guard,
		exchanger: exchanger,
		local:     local,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Session returns the current session, if authenticated.
func (c *Controller) Session() (Session, bool) {
	s := c.session.Load()
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		log.LogDebugWithFields("hub", "State changed", map[string]any{
			"from": prev.String(),
			"to":   s.String(),
		})
	}
}

// PageLoad runs the page-load sequence for pageURL: load the configuration if
// needed, then either handle an inbound callback or resume a cached session.
// An inbound callback always wins over a cached session.
func (c *Controller) PageLoad(ctx context.Context, pageURL string) (Landing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := url.Parse(pageURL)
	if err != nil {
		return Landing{State: c.State(), URL: pageURL}, fmt.Errorf("invalid page url: %w", err)
	}

	if _, ok := c.config.Config(); !ok {
		if _, err := c.config.Load(ctx); err != nil {
			log.LogErrorWithFields("hub", "Failed to load OAuth configuration", map[string]any{
				"error": err.Error(),
			})
			c.setState(ConfigError)
			return Landing{State: ConfigError, URL: pageURL}, err
		}
		if c.State() == ConfigError {
			c.setState(Unauthenticated)
		}
	}

	query := u.Query()
	if isCallback(query) {
		err := c.handleCallback(ctx, query)
		return Landing{State: c.State(), URL: urlutil.StripQuery(u)}, err
	}

	c.resume(ctx)
	return Landing{State: c.State(), URL: pageURL}, nil
}

// isCallback reports whether the query looks like an ORCID redirect: a state
// together with either a code or an error.
func isCallback(q url.Values) bool {
	return q.Has("state") && (q.Has("code") || q.Has("error"))
}

func (c *Controller) handleCallback(ctx context.Context, q url.Values) error {
	c.setState(PendingCallback)

	if providerErr := q.Get("error"); providerErr != "" {
		c.guard.Discard(ctx)
		err := fmt.Errorf("%w: %s", ErrProviderDenied, providerErr)
		if desc := q.Get("error_description"); desc != "" {
			err = fmt.Errorf("%w: %s: %s", ErrProviderDenied, providerErr, desc)
		}
		return c.abort(err)
	}

	state := q.Get("state")
	if !c.guard.Validate(ctx, state) {
		return c.abort(ErrInvalidState)
	}

	code := q.Get("code")
	if code == "" {
		return c.abort(ErrMissingCode)
	}

	identity, err := c.exchanger.ExchangeCallback(ctx, code, state)
	if err != nil {
		if !errors.Is(err, ErrTokenExchangeFailed) {
			err = fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
		}
		return c.abort(err)
	}
	if identity == nil || identity.ORCID == "" {
		return c.abort(fmt.Errorf("%w: no orcid iD in response", ErrTokenExchangeFailed))
	}
	if identity.Name == nil && identity.Email == "" && identity.Affiliation == nil {
		log.LogWarnWithFields("hub", "Signed in with minimal profile data", map[string]any{
			"orcid": identity.ORCID,
			"error": ErrProfileFetchDegraded.Error(),
		})
	}

	session := newSession(identity, c.now().UTC())
	c.persist(ctx, session)
	c.session.Store(&session)
	c.setState(Authenticated)

	log.LogInfoWithFields("hub", "ORCID authentication successful", map[string]any{
		"orcid": session.ORCID,
	})
	return nil
}

func (c *Controller) abort(err error) error {
	log.LogWarnWithFields("hub", "Callback aborted", map[string]any{
		"error": err.Error(),
	})
	c.session.Store(nil)
	c.setState(Unauthenticated)
	return err
}

func (c *Controller) persist(ctx context.Context, session Session) {
	data, err := json.Marshal(session)
	if err != nil {
		return
	}
	if err := c.local.Set(ctx, SessionKey, string(data)); err != nil {
		log.LogWarnWithFields("hub", "Failed to persist session", map[string]any{
			"orcid": session.ORCID,
			"error": err.Error(),
		})
	}
}

// resume adopts a cached session. Sessions carry no expiry: a cached session
// is trusted until an explicit logout.
func (c *Controller) resume(ctx context.Context) {
	raw, ok, err := c.local.Get(ctx, SessionKey)
	if err != nil {
		log.LogWarnWithFields("hub", "Failed to read cached session", map[string]any{
			"error": err.Error(),
		})
	}
	if err != nil || !ok {
		c.session.Store(nil)
		c.setState(Unauthenticated)
		return
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		log.LogWarnWithFields("hub", "Discarding cached session", map[string]any{
			"error": fmt.Errorf("%w: %w", ErrCorruptedCache, err).Error(),
		})
		if err := c.local.Delete(ctx, SessionKey); err != nil {
			log.LogWarnWithFields("hub", "Failed to delete cached session", map[string]any{
				"error": err.Error(),
			})
		}
		c.session.Store(nil)
		c.setState(Unauthenticated)
		return
	}

	if session.Provider != ProviderORCID || session.ORCID == "" {
		c.session.Store(nil)
		c.setState(Unauthenticated)
		return
	}

	log.LogDebugWithFields("hub", "Resumed cached session", map[string]any{
		"orcid": session.ORCID,
	})
	c.session.Store(&session)
	c.setState(Authenticated)
}

// BeginLogin issues a state token and returns the ORCID authorization URL
// the user agent should be sent to.
func (c *Controller) BeginLogin(ctx context.Context) (string, error) {
	if c.State() == PendingCallback {
		return "", ErrCallbackPending
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case ConfigError:
		return "", ErrConfigUnavailable
	case Authenticated:
		return "", ErrAlreadyAuthenticated
	case PendingCallback:
		return "", ErrCallbackPending
	}

	cfg, ok := c.config.Config()
	if !ok {
		return "", fmt.Errorf("%w: configuration not loaded", ErrConfigUnavailable)
	}

	state, err := c.guard.Issue(ctx)
	if err != nil {
		return "", err
	}

	oauthConfig := oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.RedirectURI,
		Scopes:      strings.Fields(cfg.Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL: strings.TrimRight(cfg.ProviderBaseURL, "/") + "/oauth/authorize",
		},
	}
	return oauthConfig.AuthCodeURL(state), nil
}

// Logout clears the session and its cached copy, and signals the legacy
// session manager when it holds a session.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev := c.session.Swap(nil); prev != nil {
		log.LogInfoWithFields("hub", "Logging out", map[string]any{
			"orcid": prev.ORCID,
		})
	}

	var errs []error
	if err := c.local.Delete(ctx, SessionKey); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete cached session: %w", err))
	}
	if c.legacy != nil && c.legacy.Active() {
		if err := c.legacy.Logout(ctx); err != nil {
			errs = append(errs, fmt.Errorf("legacy logout failed: %w", err))
		}
	}

	if c.State() != ConfigError {
		c.setState(Unauthenticated)
	}
	return errors.Join(errs...)
}
