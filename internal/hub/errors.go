package hub

import "errors"

var (
	// ErrConfigUnavailable means the public OAuth configuration could not be
	// loaded. Login stays disabled until the next page load.
	ErrConfigUnavailable = errors.New("oauth configuration unavailable")

	// ErrProviderDenied means ORCID redirected back with an error parameter.
	ErrProviderDenied = errors.New("authorization denied by provider")

	// ErrInvalidState means the callback state did not match the stored token.
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrMissingCode means the callback carried a state but no code.
	ErrMissingCode = errors.New("authorization code missing")

	ErrTokenExchangeFailed  = errors.New("token exchange failed")
	ErrProfileFetchDegraded = errors.New("profile fetch degraded")
	ErrProfileLoadDegraded  = errors.New("profile load degraded")
	ErrProfileSaveFailed    = errors.New("profile save failed")

	// ErrCorruptedCache means a cached value could not be decoded. The entry
	// is discarded and treated as absent.
	ErrCorruptedCache = errors.New("corrupted cache entry")

	ErrCallbackPending      = errors.New("callback is being processed")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrInvalidORCID         = errors.New("invalid orcid id")
)

// UserVisible reports whether err should be surfaced to the user rather than
// only logged.
func UserVisible(err error) bool {
	return errors.Is(err, ErrTokenExchangeFailed) ||
		errors.Is(err, ErrProfileSaveFailed) ||
		errors.Is(err, ErrConfigUnavailable)
}
