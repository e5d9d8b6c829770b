package integration

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/partner"
)

// CatalogService exposes supplier catalog lookups through the gateway
// registry. It exists so the HTTP layer never touches adapters directly.
type CatalogService struct {
	supplierRepo partner.SupplierRepository
	gateways     integration.GatewayRegistry
	logger       *zap.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(supplierRepo partner.SupplierRepository, gateways integration.GatewayRegistry, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		supplierRepo: supplierRepo,
		gateways:     gateways,
		logger:       logger,
	}
}

// GetSupplierCategories returns a supplier's category tree. The list may be
// flagged stale when the supplier is rate limiting and a cached copy exists.
func (s *CatalogService) GetSupplierCategories(ctx context.Context, supplierID uuid.UUID) (*integration.CategoryList, error) {
	gateway, err := s.gatewayFor(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	return gateway.GetCategories(ctx)
}

// GetSupplierProduct looks up one product by its supplier-side id, in any of
// that id's string encodings
func (s *CatalogService) GetSupplierProduct(ctx context.Context, supplierID uuid.UUID, externalProductID string) (*integration.ProductDetail, error) {
	gateway, err := s.gatewayFor(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	return gateway.GetProductDetail(ctx, externalProductID)
}

func (s *CatalogService) gatewayFor(ctx context.Context, supplierID uuid.UUID) (integration.SupplierGateway, error) {
	supplier, err := s.supplierRepo.FindByID(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	return s.gateways.GatewayFor(ctx, supplier)
}
