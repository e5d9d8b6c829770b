package persistence

import (
	"context"
	"errors"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.Order, error) {
	var order fulfillment.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByIDWithItems finds an order with its line items preloaded
func (r *GormOrderRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*fulfillment.Order, error) {
	var order fulfillment.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateFulfillmentStatus writes only the fulfillment status column
func (r *GormOrderRepository) UpdateFulfillmentStatus(ctx context.Context, id uuid.UUID, status fulfillment.FulfillmentStatus) error {
	result := r.db.WithContext(ctx).
		Model(&fulfillment.Order{}).
		Where("id = ?", id).
		Update("fulfillment_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Save creates or updates an order
func (r *GormOrderRepository) Save(ctx context.Context, order *fulfillment.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// Ensure GormOrderRepository implements OrderRepository
var _ fulfillment.OrderRepository = (*GormOrderRepository)(nil)

// GormOrderItemRepository implements OrderItemRepository using GORM
type GormOrderItemRepository struct {
	db *gorm.DB
}

// NewGormOrderItemRepository creates a new GormOrderItemRepository
func NewGormOrderItemRepository(db *gorm.DB) *GormOrderItemRepository {
	return &GormOrderItemRepository{db: db}
}

// FindByOrder finds all items belonging to an order
func (r *GormOrderItemRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]fulfillment.OrderItem, error) {
	var items []fulfillment.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindBySupplierOrder finds all items attached to a supplier order
func (r *GormOrderItemRepository) FindBySupplierOrder(ctx context.Context, supplierOrderID uuid.UUID) ([]fulfillment.OrderItem, error) {
	var items []fulfillment.OrderItem
	if err := r.db.WithContext(ctx).
		Where("supplier_order_id = ?", supplierOrderID).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save creates or updates an order item
func (r *GormOrderItemRepository) Save(ctx context.Context, item *fulfillment.OrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// SaveBatch creates or updates multiple order items
func (r *GormOrderItemRepository) SaveBatch(ctx context.Context, items []*fulfillment.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(items).Error
}

// Ensure GormOrderItemRepository implements OrderItemRepository
var _ fulfillment.OrderItemRepository = (*GormOrderItemRepository)(nil)
