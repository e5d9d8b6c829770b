package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropship/backend/internal/domain/fulfillment"
)

// SupplierOutcome is the per-supplier result of fanning out one order
type SupplierOutcome struct {
	SupplierID      uuid.UUID       `json:"supplier_id"`
	SupplierCode    string          `json:"supplier_code,omitempty"`
	SupplierOrderID uuid.UUID       `json:"supplier_order_id,omitempty"`
	ItemCount       int             `json:"item_count"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	Error           string          `json:"error,omitempty"`
}

// Succeeded returns true if a supplier order was created for this group
func (o SupplierOutcome) Succeeded() bool {
	return o.Error == ""
}

// FanoutResult summarizes the fan-out of one customer order
type FanoutResult struct {
	OrderID      uuid.UUID         `json:"order_id"`
	OrderNumber  string            `json:"order_number"`
	Outcomes     []SupplierOutcome `json:"outcomes"`
	SkippedItems int               `json:"skipped_items"` // Items without a supplier assignment
}

// CreatedCount returns the number of supplier orders actually created
func (r *FanoutResult) CreatedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// DispatchResult summarizes a successful hand-off of one supplier order
type DispatchResult struct {
	SupplierOrderID uuid.UUID                       `json:"supplier_order_id"`
	SupplierCode    string                          `json:"supplier_code"`
	ExternalOrderID string                          `json:"external_order_id"`
	Status          fulfillment.SupplierOrderStatus `json:"status"`
	TrackingNumber  string                          `json:"tracking_number,omitempty"`
}

// SupplierSweep is the per-supplier slice of a reconciliation run
type SupplierSweep struct {
	SupplierID   uuid.UUID `json:"supplier_id"`
	SupplierCode string    `json:"supplier_code"`
	Checked      int       `json:"checked"`
	Updated      int       `json:"updated"`
	Failed       int       `json:"failed"`
	RateLimited  bool      `json:"rate_limited,omitempty"` // Sweep cut short by supplier pacing
	Error        string    `json:"error,omitempty"`        // Supplier-level failure, e.g. gateway construction
}

// ReconcileResult summarizes one full reconciliation run across suppliers
type ReconcileResult struct {
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Suppliers []SupplierSweep `json:"suppliers"`
}

// Totals sums the per-supplier counters
func (r *ReconcileResult) Totals() (checked, updated, failed int) {
	for _, s := range r.Suppliers {
		checked += s.Checked
		updated += s.Updated
		failed += s.Failed
	}
	return checked, updated, failed
}
