package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/partner"
	"github.com/google/uuid"
)

// SupplierTokenRepository implements integration.TokenRepository on top of
// the supplier table. Tokens are cached per process and re-read from the
// suppliers row on a cache miss, so a restart never loses a valid token.
// The persisted last_auth_attempt_at column carries the auth backoff window
// across instances.
type SupplierTokenRepository struct {
	suppliers       partner.SupplierRepository
	minAuthInterval time.Duration
	now             func() time.Time

	mu    sync.RWMutex
	cache map[uuid.UUID]*cachedTokens
}

type cachedTokens struct {
	tokens        integration.TokenData
	lastAuthAt    *time.Time
	loadedFromRow bool
}

// NewSupplierTokenRepository creates a SupplierTokenRepository
func NewSupplierTokenRepository(suppliers partner.SupplierRepository, minAuthInterval time.Duration) *SupplierTokenRepository {
	if minAuthInterval <= 0 {
		minAuthInterval = integration.MinAuthInterval
	}
	return &SupplierTokenRepository{
		suppliers:       suppliers,
		minAuthInterval: minAuthInterval,
		now:             time.Now,
		cache:           make(map[uuid.UUID]*cachedTokens),
	}
}

// WithClock replaces the time source, for tests
func (r *SupplierTokenRepository) WithClock(now func() time.Time) *SupplierTokenRepository {
	r.now = now
	return r
}

// GetAccessToken returns a usable access token for the supplier. It never
// triggers a login; callers get ErrNoValidToken when authentication is due.
func (r *SupplierTokenRepository) GetAccessToken(ctx context.Context, supplierID uuid.UUID) (string, error) {
	entry, err := r.entryFor(ctx, supplierID)
	if err != nil {
		return "", err
	}
	if !entry.tokens.AccessValid(r.now()) {
		return "", integration.ErrNoValidToken
	}
	return entry.tokens.AccessToken, nil
}

// GetRefreshToken returns a usable refresh token for the supplier
func (r *SupplierTokenRepository) GetRefreshToken(ctx context.Context, supplierID uuid.UUID) (string, error) {
	entry, err := r.entryFor(ctx, supplierID)
	if err != nil {
		return "", err
	}
	if !entry.tokens.RefreshValid(r.now()) {
		return "", integration.ErrNoValidToken
	}
	return entry.tokens.RefreshToken, nil
}

// StoreTokens persists a freshly acquired token pair and refreshes the cache
func (r *SupplierTokenRepository) StoreTokens(ctx context.Context, supplierID uuid.UUID, tokens *integration.TokenData) error {
	supplier, err := r.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		return err
	}

	if err := supplier.UpdateTokens(tokens.AccessToken, tokens.RefreshToken, tokens.AccessExpiresAt, tokens.RefreshExpiresAt); err != nil {
		return err
	}
	if err := r.suppliers.UpdateTokenFields(ctx, supplier); err != nil {
		return err
	}

	r.mu.Lock()
	r.cache[supplierID] = &cachedTokens{
		tokens:        *tokens,
		lastAuthAt:    supplier.LastAuthAttemptAt,
		loadedFromRow: true,
	}
	r.mu.Unlock()
	return nil
}

// RecordAuthAttempt stamps the auth-attempt time before a login, successful
// or not, so failed logins also start a backoff window
func (r *SupplierTokenRepository) RecordAuthAttempt(ctx context.Context, supplierID uuid.UUID) error {
	supplier, err := r.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		return err
	}

	at := r.now()
	supplier.RecordAuthAttempt(at)
	if err := r.suppliers.UpdateTokenFields(ctx, supplier); err != nil {
		return err
	}

	r.mu.Lock()
	if entry, ok := r.cache[supplierID]; ok {
		entry.lastAuthAt = &at
	} else {
		r.cache[supplierID] = &cachedTokens{lastAuthAt: &at, loadedFromRow: true}
	}
	r.mu.Unlock()
	return nil
}

// CanAuthenticate reports whether a new authentication attempt is allowed
func (r *SupplierTokenRepository) CanAuthenticate(ctx context.Context, supplierID uuid.UUID) (bool, error) {
	wait, err := r.TimeUntilNextAuth(ctx, supplierID)
	if err != nil {
		return false, err
	}
	return wait == 0, nil
}

// TimeUntilNextAuth returns how long until the next authentication attempt
// is allowed; zero when one is allowed now
func (r *SupplierTokenRepository) TimeUntilNextAuth(ctx context.Context, supplierID uuid.UUID) (time.Duration, error) {
	entry, err := r.entryFor(ctx, supplierID)
	if err != nil {
		return 0, err
	}
	if entry.lastAuthAt == nil {
		return 0, nil
	}
	elapsed := r.now().Sub(*entry.lastAuthAt)
	if elapsed >= r.minAuthInterval {
		return 0, nil
	}
	return r.minAuthInterval - elapsed, nil
}

// Invalidate drops the cached tokens for the supplier so the next call
// re-reads persisted state
func (r *SupplierTokenRepository) Invalidate(ctx context.Context, supplierID uuid.UUID) error {
	r.mu.Lock()
	delete(r.cache, supplierID)
	r.mu.Unlock()
	return nil
}

// entryFor returns the cached entry for the supplier, loading it from the
// suppliers row on a miss
func (r *SupplierTokenRepository) entryFor(ctx context.Context, supplierID uuid.UUID) (*cachedTokens, error) {
	r.mu.RLock()
	entry, ok := r.cache[supplierID]
	r.mu.RUnlock()
	if ok && entry.loadedFromRow {
		return entry, nil
	}

	supplier, err := r.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	loaded := &cachedTokens{
		tokens: integration.TokenData{
			AccessToken:      supplier.AccessToken,
			RefreshToken:     supplier.RefreshToken,
			AccessExpiresAt:  supplier.AccessExpiresAt,
			RefreshExpiresAt: supplier.RefreshExpiresAt,
		},
		lastAuthAt:    supplier.LastAuthAttemptAt,
		loadedFromRow: true,
	}

	r.mu.Lock()
	r.cache[supplierID] = loaded
	r.mu.Unlock()
	return loaded, nil
}

// Ensure SupplierTokenRepository implements TokenRepository
var _ integration.TokenRepository = (*SupplierTokenRepository)(nil)
