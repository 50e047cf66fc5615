package provider

import (
	"errors"
	"fmt"

	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// Sentinel errors for the failure classes that abort or bound a sync run.
var (
	// ErrMissingCredentials means client credentials are absent from
	// configuration. Fatal before any network call.
	ErrMissingCredentials = errors.New("provider credentials not configured")

	// ErrRateLimitExceeded is an internal safety net. The governor normally
	// blocks instead of returning it.
	ErrRateLimitExceeded = errors.New("request budget exhausted")
)

// AuthError means the credential exchange was rejected or unavailable.
// Rejected (4xx) exchanges are terminal; transient provider failures are
// marked Transient so callers can tell the two apart.
type AuthError struct {
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("credential exchange failed (status %d): %s", e.StatusCode, e.Detail)
}

// Transient reports whether the failure looks like a provider-side outage
// rather than bad credentials.
func (e *AuthError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// FetchError wraps a failed page fetch with enough position information for
// the orchestrator to record it and continue with other batches.
type FetchError struct {
	Entity     domain.EntityKind
	Offset     int
	CategoryID string
	Err        error
}

func (e *FetchError) Error() string {
	if e.CategoryID != "" {
		return fmt.Sprintf("fetching %s page at offset %d (category %s): %v",
			e.Entity, e.Offset, e.CategoryID, e.Err)
	}
	return fmt.Sprintf("fetching %s page at offset %d: %v", e.Entity, e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// statusError is returned by the catalog client for non-2xx responses so the
// fetcher can distinguish auth rejections from other failures.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider API error (status %d): %s", e.code, e.body)
}

// isAuthRejection reports whether err is a 401-class provider response.
func isAuthRejection(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == 401
}
