package fulfillment

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository defines read access to customer orders plus the single
// write this core owns: the fulfillment status.
type OrderRepository interface {
	// FindByID finds an order by its ID, without items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIDWithItems finds an order with all its items preloaded
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*Order, error)

	// UpdateFulfillmentStatus persists the derived fulfillment status
	UpdateFulfillmentStatus(ctx context.Context, orderID uuid.UUID, status FulfillmentStatus) error
}

// OrderItemRepository defines persistence for order line items
type OrderItemRepository interface {
	// FindByOrder returns all items of an order
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)

	// FindBySupplierOrder returns the items linked to a supplier order
	FindBySupplierOrder(ctx context.Context, supplierOrderID uuid.UUID) ([]OrderItem, error)

	// Save creates or updates an item
	Save(ctx context.Context, item *OrderItem) error

	// SaveBatch creates or updates multiple items
	SaveBatch(ctx context.Context, items []*OrderItem) error
}

// SupplierOrderRepository defines persistence for supplier orders
type SupplierOrderRepository interface {
	// FindByID finds a supplier order by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SupplierOrder, error)

	// FindByOrder returns all supplier orders created for a customer order
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]SupplierOrder, error)

	// FindOpenBySupplier returns dispatched supplier orders that have not
	// reached a terminal state, i.e. the reconciliation work list for one
	// supplier
	FindOpenBySupplier(ctx context.Context, supplierID uuid.UUID) ([]SupplierOrder, error)

	// Save creates or updates a supplier order
	Save(ctx context.Context, order *SupplierOrder) error

	// SaveWithItems persists a supplier order together with its linked
	// items in a single transaction, so a failed item write cannot leave
	// an orphaned supplier order behind
	SaveWithItems(ctx context.Context, order *SupplierOrder, items []*OrderItem) error
}
