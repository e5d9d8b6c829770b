package partner

import (
	"github.com/dropship/backend/internal/domain/shared"
)

// Event types for the supplier aggregate
const (
	EventTypeSupplierCreated       = "partner.supplier.created"
	EventTypeSupplierStatusChanged = "partner.supplier.status_changed"
	EventTypeSupplierTokensUpdated = "partner.supplier.tokens_updated"
)

// SupplierCreatedEvent is raised when a new supplier is registered
type SupplierCreatedEvent struct {
	shared.BaseDomainEvent
	Code string       `json:"code"`
	Name string       `json:"name"`
	Type SupplierType `json:"supplier_type"`
}

// NewSupplierCreatedEvent creates a new SupplierCreatedEvent
func NewSupplierCreatedEvent(s *Supplier) *SupplierCreatedEvent {
	return &SupplierCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierCreated, "Supplier", s.ID),
		Code:            s.Code,
		Name:            s.Name,
		Type:            s.Type,
	}
}

// SupplierStatusChangedEvent is raised when a supplier is activated or deactivated
type SupplierStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus SupplierStatus `json:"old_status"`
	NewStatus SupplierStatus `json:"new_status"`
}

// NewSupplierStatusChangedEvent creates a new SupplierStatusChangedEvent
func NewSupplierStatusChangedEvent(s *Supplier, oldStatus, newStatus SupplierStatus) *SupplierStatusChangedEvent {
	return &SupplierStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierStatusChanged, "Supplier", s.ID),
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// SupplierTokensUpdatedEvent is raised when the stored token pair is replaced
type SupplierTokensUpdatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
}

// NewSupplierTokensUpdatedEvent creates a new SupplierTokensUpdatedEvent
func NewSupplierTokensUpdatedEvent(s *Supplier) *SupplierTokensUpdatedEvent {
	return &SupplierTokensUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierTokensUpdated, "Supplier", s.ID),
		Code:            s.Code,
	}
}
