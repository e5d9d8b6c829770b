package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// AccessTokenValidityMargin is subtracted from a token's expiry when
	// deciding whether it is still usable, so a token is never presented
	// within this window of expiring mid-call
	AccessTokenValidityMargin = 10 * time.Minute

	// MinAuthInterval is the default minimum spacing between authentication
	// attempts against one supplier, failed attempts included
	MinAuthInterval = 5 * time.Minute
)

// TokenData is a snapshot of one supplier's token pair
type TokenData struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  *time.Time
	RefreshExpiresAt *time.Time
}

// AccessValid reports whether the access token is present and not within the
// validity margin of its expiry at the given instant
func (t *TokenData) AccessValid(now time.Time) bool {
	if t == nil || t.AccessToken == "" || t.AccessExpiresAt == nil {
		return false
	}
	return now.Before(t.AccessExpiresAt.Add(-AccessTokenValidityMargin))
}

// RefreshValid reports whether the refresh token is present and not within
// the validity margin of its expiry at the given instant
func (t *TokenData) RefreshValid(now time.Time) bool {
	if t == nil || t.RefreshToken == "" || t.RefreshExpiresAt == nil {
		return false
	}
	return now.Before(t.RefreshExpiresAt.Add(-AccessTokenValidityMargin))
}

// TokenRepository manages supplier API tokens across process restarts. The
// cache is per process; the persisted row is the source of truth for the
// auth backoff window so multiple instances respect it together.
type TokenRepository interface {
	// GetAccessToken returns a usable access token for the supplier or an
	// error when none is cached or persisted. It never triggers a login.
	GetAccessToken(ctx context.Context, supplierID uuid.UUID) (string, error)

	// GetRefreshToken returns a usable refresh token for the supplier
	GetRefreshToken(ctx context.Context, supplierID uuid.UUID) (string, error)

	// StoreTokens persists a freshly acquired token pair and updates the
	// in-process cache
	StoreTokens(ctx context.Context, supplierID uuid.UUID, tokens *TokenData) error

	// RecordAuthAttempt stamps the auth-attempt time for the supplier. It is
	// called before every login, successful or not, so failures also start
	// a backoff window.
	RecordAuthAttempt(ctx context.Context, supplierID uuid.UUID) error

	// CanAuthenticate reports whether a new authentication attempt is
	// allowed for the supplier right now
	CanAuthenticate(ctx context.Context, supplierID uuid.UUID) (bool, error)

	// TimeUntilNextAuth returns how long until the next authentication
	// attempt is allowed; zero when one is allowed now
	TimeUntilNextAuth(ctx context.Context, supplierID uuid.UUID) (time.Duration, error)

	// Invalidate drops the cached tokens for the supplier so the next call
	// path re-reads persisted state
	Invalidate(ctx context.Context, supplierID uuid.UUID) error
}

// AuthGate grants short-lived exclusive auth slots per supplier. Backed by
// Redis SET NX in production so concurrent instances cannot log in to the
// same supplier inside one backoff window.
type AuthGate interface {
	// TryAcquire attempts to take the auth slot for the supplier for ttl.
	// It returns false without error when another holder has the slot.
	TryAcquire(ctx context.Context, supplierID uuid.UUID, ttl time.Duration) (bool, error)
}
