package supplierapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/partner"
)

// GatewayBuilder constructs a gateway from a supplier's configuration
type GatewayBuilder func(supplier *partner.Supplier) (integration.SupplierGateway, error)

// Registry resolves gateways from the supplier's configured type tag.
// One gateway instance is cached per supplier id, so the rate gate and
// category cache are shared by dispatch and reconciliation.
type Registry struct {
	builders map[partner.SupplierType]GatewayBuilder

	mu        sync.Mutex
	instances map[uuid.UUID]integration.SupplierGateway
}

// RegistryOptions carries the client settings every adapter family shares
type RegistryOptions struct {
	RequestTimeout   time.Duration
	RequestSpacing   time.Duration
	MinAuthInterval  time.Duration
	CategoryCacheTTL time.Duration
}

// NewRegistry creates a registry with the standard adapter families wired
func NewRegistry(opts RegistryOptions, tokens integration.TokenRepository, authGate integration.AuthGate, logger *zap.Logger) *Registry {
	r := &Registry{
		builders:  make(map[partner.SupplierType]GatewayBuilder),
		instances: make(map[uuid.UUID]integration.SupplierGateway),
	}

	cjBuilder := func(supplier *partner.Supplier) (integration.SupplierGateway, error) {
		return NewCJAdapter(supplier, &CJConfig{
			APIEmail:         supplier.APIEmail,
			APIKey:           supplier.APIKey,
			APIBaseURL:       supplier.APIEndpoint,
			RequestTimeout:   opts.RequestTimeout,
			RequestSpacing:   opts.RequestSpacing,
			MinAuthInterval:  opts.MinAuthInterval,
			CategoryCacheTTL: opts.CategoryCacheTTL,
		}, tokens, authGate, logger)
	}

	r.Register(partner.SupplierTypeCJ, cjBuilder)
	// Generic suppliers speak the same REST shape without vendor quirks
	r.Register(partner.SupplierTypeGeneric, cjBuilder)

	return r
}

// Register adds or replaces the builder for a supplier type
func (r *Registry) Register(supplierType partner.SupplierType, builder GatewayBuilder) {
	r.builders[supplierType] = builder
}

// GatewayFor returns the cached gateway for a supplier, building it on
// first use
func (r *Registry) GatewayFor(ctx context.Context, supplier *partner.Supplier) (integration.SupplierGateway, error) {
	if !supplier.IsCallable() {
		return nil, integration.ErrConfiguration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gw, ok := r.instances[supplier.ID]; ok {
		return gw, nil
	}

	builder, ok := r.builders[supplier.Type]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for supplier type %q", integration.ErrConfiguration, supplier.Type)
	}

	gw, err := builder(supplier)
	if err != nil {
		return nil, err
	}
	r.instances[supplier.ID] = gw
	return gw, nil
}

// SupportedTypes lists the adapter families this registry can construct
func (r *Registry) SupportedTypes() []partner.SupplierType {
	types := make([]partner.SupplierType, 0, len(r.builders))
	for t := range r.builders {
		types = append(types, t)
	}
	return types
}

// Evict drops the cached gateway for a supplier, e.g. after its credentials
// or endpoint changed
func (r *Registry) Evict(supplierID uuid.UUID) {
	r.mu.Lock()
	delete(r.instances, supplierID)
	r.mu.Unlock()
}

// Ensure Registry implements GatewayRegistry
var _ integration.GatewayRegistry = (*Registry)(nil)
