package partner

import (
	"context"

	"github.com/google/uuid"
)

// SupplierRepository defines the persistence interface for suppliers
type SupplierRepository interface {
	// FindByID finds a supplier by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)

	// FindByCode finds a supplier by its code
	FindByCode(ctx context.Context, code string) (*Supplier, error)

	// FindByStatus finds suppliers by status
	FindByStatus(ctx context.Context, status SupplierStatus) ([]Supplier, error)

	// FindActive finds all active suppliers
	FindActive(ctx context.Context) ([]Supplier, error)

	// FindByIDs finds multiple suppliers by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Supplier, error)

	// Save creates or updates a supplier
	Save(ctx context.Context, supplier *Supplier) error

	// UpdateTokenFields persists only the token columns of a supplier row.
	// Writes are set-to-value so duplicate passes converge.
	UpdateTokenFields(ctx context.Context, supplier *Supplier) error
}
