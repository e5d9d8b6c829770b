package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dropship/backend/internal/domain/integration"
	"github.com/google/uuid"
)

// authSlot represents a held auth slot with expiration
type authSlot struct {
	expiresAt time.Time
}

// InMemoryAuthGate implements integration.AuthGate using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryAuthGate struct {
	mu    sync.Mutex
	slots map[uuid.UUID]authSlot
	now   func() time.Time
}

// NewInMemoryAuthGate creates a new in-memory auth gate
func NewInMemoryAuthGate() *InMemoryAuthGate {
	return &InMemoryAuthGate{
		slots: make(map[uuid.UUID]authSlot),
		now:   time.Now,
	}
}

// WithClock replaces the time source, for tests
func (g *InMemoryAuthGate) WithClock(now func() time.Time) *InMemoryAuthGate {
	g.now = now
	return g
}

// TryAcquire attempts to take the auth slot for the supplier for ttl.
// Returns false when another holder has an unexpired slot.
func (g *InMemoryAuthGate) TryAcquire(ctx context.Context, supplierID uuid.UUID, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if slot, exists := g.slots[supplierID]; exists {
		if g.now().Before(slot.expiresAt) {
			return false, nil
		}
		// Slot exists but expired, will be overwritten
	}

	g.slots[supplierID] = authSlot{
		expiresAt: g.now().Add(ttl),
	}

	return true, nil
}

// Ensure InMemoryAuthGate implements AuthGate
var _ integration.AuthGate = (*InMemoryAuthGate)(nil)
