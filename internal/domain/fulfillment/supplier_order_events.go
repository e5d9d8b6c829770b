package fulfillment

import (
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types for the supplier order aggregate
const (
	EventTypeSupplierOrderCreated        = "fulfillment.supplier_order.created"
	EventTypeSupplierOrderStatusChanged  = "fulfillment.supplier_order.status_changed"
	EventTypeSupplierOrderDispatchFailed = "fulfillment.supplier_order.dispatch_failed"
)

// SupplierOrderCreatedEvent is raised when fan-out creates a supplier order
type SupplierOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	SupplierID uuid.UUID `json:"supplier_id"`
}

// NewSupplierOrderCreatedEvent creates a new SupplierOrderCreatedEvent
func NewSupplierOrderCreatedEvent(o *SupplierOrder) *SupplierOrderCreatedEvent {
	return &SupplierOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderCreated, "SupplierOrder", o.ID),
		OrderID:         o.OrderID,
		SupplierID:      o.SupplierID,
	}
}

// SupplierOrderStatusChangedEvent is raised on every status transition
type SupplierOrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID           `json:"order_id"`
	OldStatus SupplierOrderStatus `json:"old_status"`
	NewStatus SupplierOrderStatus `json:"new_status"`
}

// NewSupplierOrderStatusChangedEvent creates a new SupplierOrderStatusChangedEvent
func NewSupplierOrderStatusChangedEvent(o *SupplierOrder, oldStatus, newStatus SupplierOrderStatus) *SupplierOrderStatusChangedEvent {
	return &SupplierOrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderStatusChanged, "SupplierOrder", o.ID),
		OrderID:         o.OrderID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// SupplierOrderDispatchFailedEvent is raised when a dispatch attempt fails
type SupplierOrderDispatchFailedEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

// NewSupplierOrderDispatchFailedEvent creates a new SupplierOrderDispatchFailedEvent
func NewSupplierOrderDispatchFailedEvent(o *SupplierOrder, reason string) *SupplierOrderDispatchFailedEvent {
	return &SupplierOrderDispatchFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderDispatchFailed, "SupplierOrder", o.ID),
		OrderID:         o.OrderID,
		Reason:          reason,
	}
}
