package hub

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/dgellow/research-hub/internal/crypto"
	"github.com/dgellow/research-hub/internal/log"
)

// StateKey is the tab-scoped key holding the outstanding state token.
const StateKey = "orcid_oauth_state"

// StateGuard issues and consumes the single-use OAuth state token that binds
// a login attempt to its callback.
type StateGuard struct {
	mu       sync.Mutex
	kv       KV
	generate func() (string, error)
}

// NewStateGuard creates a guard storing its token in kv.
func NewStateGuard(kv KV) *StateGuard {
	return &StateGuard{
		kv: kv,
		generate: func() (string, error) {
			return crypto.GenerateStateToken(crypto.MinStateLength)
		},
	}
}

// Issue generates a fresh token, replacing any outstanding one.
func (g *StateGuard) Issue(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	if err := g.kv.Set(ctx, StateKey, state); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	return state, nil
}

// Validate compares received against the stored token and always consumes
// the stored token, whether or not it matched.
func (g *StateGuard) Validate(ctx context.Context, received string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	stored, ok, err := g.kv.Get(ctx, StateKey)
	if err != nil {
		log.LogWarnWithFields("hub", "Failed to read stored state", map[string]any{
			"error": err.Error(),
		})
	}
	if err := g.kv.Delete(ctx, StateKey); err != nil {
		log.LogWarnWithFields("hub", "Failed to delete stored state", map[string]any{
			"error": err.Error(),
		})
	}

	if !ok || stored == "" || received == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(received)) == 1
}

// Discard drops any outstanding token without comparing it.
func (g *StateGuard) Discard(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.kv.Delete(ctx, StateKey); err != nil {
		log.LogWarnWithFields("hub", "Failed to delete stored state", map[string]any{
			"error": err.Error(),
		})
	}
}
