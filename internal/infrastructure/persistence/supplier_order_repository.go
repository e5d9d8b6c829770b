package persistence

import (
	"context"
	"errors"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSupplierOrderRepository implements SupplierOrderRepository using GORM
type GormSupplierOrderRepository struct {
	db *gorm.DB
}

// NewGormSupplierOrderRepository creates a new GormSupplierOrderRepository
func NewGormSupplierOrderRepository(db *gorm.DB) *GormSupplierOrderRepository {
	return &GormSupplierOrderRepository{db: db}
}

// FindByID finds a supplier order by its ID
func (r *GormSupplierOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.SupplierOrder, error) {
	var order fulfillment.SupplierOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByOrder finds all supplier orders belonging to a customer order
func (r *GormSupplierOrderRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]fulfillment.SupplierOrder, error) {
	var orders []fulfillment.SupplierOrder
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindOpenBySupplier finds supplier orders for one supplier that are awaiting
// remote status updates: dispatched but not yet in a terminal state
func (r *GormSupplierOrderRepository) FindOpenBySupplier(ctx context.Context, supplierID uuid.UUID) ([]fulfillment.SupplierOrder, error) {
	var orders []fulfillment.SupplierOrder
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND external_order_id IS NOT NULL AND status IN ?",
			supplierID,
			[]fulfillment.SupplierOrderStatus{
				fulfillment.SupplierOrderStatusProcessing,
				fulfillment.SupplierOrderStatusShipped,
				fulfillment.SupplierOrderStatusError,
			}).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save creates or updates a supplier order
func (r *GormSupplierOrderRepository) Save(ctx context.Context, order *fulfillment.SupplierOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// SaveWithItems persists the supplier order and its linked items in one
// transaction. Either the order and every item land together or nothing does.
func (r *GormSupplierOrderRepository) SaveWithItems(ctx context.Context, order *fulfillment.SupplierOrder, items []*fulfillment.OrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.Save(item).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure GormSupplierOrderRepository implements SupplierOrderRepository
var _ fulfillment.SupplierOrderRepository = (*GormSupplierOrderRepository)(nil)
