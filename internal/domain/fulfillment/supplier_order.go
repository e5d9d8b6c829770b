package fulfillment

import (
	"fmt"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierOrderStatus represents the status of a supplier order
type SupplierOrderStatus string

const (
	SupplierOrderStatusPending    SupplierOrderStatus = "PENDING"
	SupplierOrderStatusProcessing SupplierOrderStatus = "PROCESSING"
	SupplierOrderStatusShipped    SupplierOrderStatus = "SHIPPED"
	SupplierOrderStatusCompleted  SupplierOrderStatus = "COMPLETED"
	SupplierOrderStatusCancelled  SupplierOrderStatus = "CANCELLED"
	SupplierOrderStatusError      SupplierOrderStatus = "ERROR"
	// SupplierOrderStatusUnknown is the mapping target for unrecognized vendor
	// status strings. It is never persisted: the reconciler treats it as
	// "no information" and leaves the stored status untouched.
	SupplierOrderStatusUnknown SupplierOrderStatus = "UNKNOWN"
)

// IsValid checks if the status is a valid SupplierOrderStatus
func (s SupplierOrderStatus) IsValid() bool {
	switch s {
	case SupplierOrderStatusPending, SupplierOrderStatusProcessing, SupplierOrderStatusShipped,
		SupplierOrderStatusCompleted, SupplierOrderStatusCancelled, SupplierOrderStatusError,
		SupplierOrderStatusUnknown:
		return true
	}
	return false
}

// String returns the string representation of SupplierOrderStatus
func (s SupplierOrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for states that never transition again
func (s SupplierOrderStatus) IsTerminal() bool {
	return s == SupplierOrderStatusCompleted || s == SupplierOrderStatusCancelled
}

// IsFulfilled returns true if the status counts toward order fulfillment
func (s SupplierOrderStatus) IsFulfilled() bool {
	return s == SupplierOrderStatusShipped || s == SupplierOrderStatusCompleted
}

// CanTransitionTo checks if the status can transition to the target status
func (s SupplierOrderStatus) CanTransitionTo(target SupplierOrderStatus) bool {
	if target == SupplierOrderStatusUnknown {
		return false
	}
	switch s {
	case SupplierOrderStatusPending:
		return target == SupplierOrderStatusProcessing || target == SupplierOrderStatusCancelled
	case SupplierOrderStatusProcessing:
		return target == SupplierOrderStatusShipped || target == SupplierOrderStatusCompleted ||
			target == SupplierOrderStatusCancelled || target == SupplierOrderStatusError
	case SupplierOrderStatusShipped:
		return target == SupplierOrderStatusCompleted || target == SupplierOrderStatusCancelled
	case SupplierOrderStatusError:
		// An errored order may recover once the vendor reports progress again
		return target == SupplierOrderStatusProcessing || target == SupplierOrderStatusShipped ||
			target == SupplierOrderStatusCompleted || target == SupplierOrderStatusCancelled
	case SupplierOrderStatusCompleted, SupplierOrderStatusCancelled:
		return false
	}
	return false
}

// TrackingUpdate carries shipment fields reported by the supplier
type TrackingUpdate struct {
	TrackingNumber    string
	TrackingURL       string
	Carrier           string
	EstimatedDelivery *time.Time
}

// IsEmpty returns true when no tracking field is set
func (t TrackingUpdate) IsEmpty() bool {
	return t.TrackingNumber == "" && t.TrackingURL == "" && t.Carrier == "" && t.EstimatedDelivery == nil
}

// SupplierOrder represents the fulfillment request tracked against one
// supplier for one customer order's subset of items. It is the aggregate
// root of the dispatch and reconciliation lifecycle; it is never deleted,
// only transitioned or annotated.
type SupplierOrder struct {
	shared.BaseAggregateRoot
	OrderID           uuid.UUID           `gorm:"type:uuid;not null;index"`
	SupplierID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status            SupplierOrderStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	OrderDate         time.Time           `gorm:"not null"`
	TotalCost         decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingCost      decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Currency          string              `gorm:"type:varchar(10);not null;default:'USD'"`
	ExternalOrderID   *string             `gorm:"type:varchar(100);index"`
	TrackingNumber    *string             `gorm:"type:varchar(100)"`
	TrackingURL       *string             `gorm:"type:varchar(500)"`
	Carrier           *string             `gorm:"type:varchar(100)"`
	EstimatedDelivery *time.Time
	ErrorMessage      *string `gorm:"type:text"`
	Notes             string  `gorm:"type:text"` // Append-only audit trail, one timestamped line per entry
}

// TableName returns the table name for GORM
func (SupplierOrder) TableName() string {
	return "supplier_orders"
}

// NewSupplierOrder creates a new supplier order in PENDING state
func NewSupplierOrder(orderID, supplierID uuid.UUID, totalCost, shippingCost decimal.Decimal, currency string) (*SupplierOrder, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier ID cannot be empty")
	}
	if totalCost.IsNegative() || shippingCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Costs cannot be negative")
	}
	if currency == "" {
		currency = "USD"
	}

	so := &SupplierOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		SupplierID:        supplierID,
		Status:            SupplierOrderStatusPending,
		OrderDate:         time.Now(),
		TotalCost:         totalCost,
		ShippingCost:      shippingCost,
		Currency:          currency,
	}
	so.AppendNote("supplier order created")
	so.AddDomainEvent(NewSupplierOrderCreatedEvent(so))

	return so, nil
}

// AppendNote appends a timestamped line to the audit trail
func (o *SupplierOrder) AppendNote(note string) {
	line := fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), note)
	if o.Notes == "" {
		o.Notes = line
	} else {
		o.Notes = o.Notes + "\n" + line
	}
	o.Touch()
}

// MarkDispatched records a successful hand-off to the supplier. The order
// transitions to PROCESSING and any previous dispatch error is cleared;
// the failed attempts remain visible in the notes.
func (o *SupplierOrder) MarkDispatched(externalOrderID string, tracking TrackingUpdate) error {
	if externalOrderID == "" {
		return shared.NewDomainError("INVALID_EXTERNAL_ID", "External order ID cannot be empty")
	}
	if o.Status != SupplierOrderStatusPending {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot dispatch supplier order in status %s", o.Status))
	}

	oldStatus := o.Status
	o.ExternalOrderID = &externalOrderID
	o.Status = SupplierOrderStatusProcessing
	o.ErrorMessage = nil
	o.applyTracking(tracking)
	o.AppendNote("dispatched to supplier, external order id " + externalOrderID)
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewSupplierOrderStatusChangedEvent(o, oldStatus, o.Status))

	return nil
}

// RecordDispatchFailure annotates a failed dispatch attempt. The status is
// deliberately left unchanged so the order remains eligible for retry.
func (o *SupplierOrder) RecordDispatchFailure(message string) {
	if message == "" {
		message = "dispatch failed"
	}
	o.ErrorMessage = &message
	o.AppendNote("dispatch failed: " + message)
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewSupplierOrderDispatchFailedEvent(o, message))
}

// RecordReconcileFailure annotates a failed status poll without touching the
// last known-good status.
func (o *SupplierOrder) RecordReconcileFailure(message string) {
	if message == "" {
		message = "status check failed"
	}
	o.ErrorMessage = &message
	o.AppendNote("status check failed: " + message)
	o.Touch()
	o.IncrementVersion()
}

// ApplyRemoteStatus merges a supplier-reported status and tracking data into
// the order. UNKNOWN and repeats of the current status only refresh tracking
// fields; invalid transitions are rejected.
func (o *SupplierOrder) ApplyRemoteStatus(status SupplierOrderStatus, tracking TrackingUpdate) (changed bool, err error) {
	if status == SupplierOrderStatusUnknown {
		return false, nil
	}
	if !status.IsValid() {
		return false, shared.NewDomainError("INVALID_STATUS", "Unknown supplier order status "+status.String())
	}
	if status == o.Status {
		o.applyTracking(tracking)
		o.Touch()
		return false, nil
	}
	if !o.Status.CanTransitionTo(status) {
		return false, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot transition supplier order from %s to %s", o.Status, status))
	}

	oldStatus := o.Status
	o.Status = status
	o.applyTracking(tracking)
	o.AppendNote(fmt.Sprintf("status %s -> %s (reported by supplier)", oldStatus, status))
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewSupplierOrderStatusChangedEvent(o, oldStatus, status))

	return true, nil
}

// applyTracking copies non-empty tracking fields. Set-to-value only, so a
// duplicate reconciliation pass converges to the same state.
func (o *SupplierOrder) applyTracking(t TrackingUpdate) {
	if t.TrackingNumber != "" {
		v := t.TrackingNumber
		o.TrackingNumber = &v
	}
	if t.TrackingURL != "" {
		v := t.TrackingURL
		o.TrackingURL = &v
	}
	if t.Carrier != "" {
		v := t.Carrier
		o.Carrier = &v
	}
	if t.EstimatedDelivery != nil {
		v := *t.EstimatedDelivery
		o.EstimatedDelivery = &v
	}
}

// IsDispatchable returns true if the order can be (re)sent to its supplier
func (o *SupplierOrder) IsDispatchable() bool {
	return o.Status == SupplierOrderStatusPending
}

// IsOpen returns true if the order should be polled during reconciliation
func (o *SupplierOrder) IsOpen() bool {
	return o.Status == SupplierOrderStatusProcessing && o.ExternalOrderID != nil
}

// TotalWithShipping returns the full amount owed to the supplier
func (o *SupplierOrder) TotalWithShipping() decimal.Decimal {
	return o.TotalCost.Add(o.ShippingCost)
}
