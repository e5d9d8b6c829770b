package fulfillment

import (
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FulfillmentStatus is the aggregate shipment-completeness of a customer
// order, derived from its items' supplier order statuses.
type FulfillmentStatus string

const (
	FulfillmentStatusUnfulfilled        FulfillmentStatus = "UNFULFILLED"
	FulfillmentStatusPartiallyFulfilled FulfillmentStatus = "PARTIALLY_FULFILLED"
	FulfillmentStatusFulfilled          FulfillmentStatus = "FULFILLED"
)

// String returns the string representation of FulfillmentStatus
func (s FulfillmentStatus) String() string {
	return string(s)
}

// PaymentStatus is the payment state of a customer order. Orders are only
// fanned out once paid; payment processing itself is external to this core.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Order is the customer order. It is created by the storefront; this core
// reads it for fan-out and dispatch and owns exactly one field: FulfillmentStatus.
type Order struct {
	shared.BaseEntity
	OrderNumber       string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	BuyerEmail        string            `gorm:"type:varchar(200)"`
	PaymentStatus     PaymentStatus     `gorm:"type:varchar(20);not null;default:'PENDING'"`
	FulfillmentStatus FulfillmentStatus `gorm:"type:varchar(30);not null;default:'UNFULFILLED';index"`
	Currency          string            `gorm:"type:varchar(10);not null;default:'USD'"`
	ShippingName      string            `gorm:"type:varchar(200)"`
	ShippingPhone     string            `gorm:"type:varchar(50)"`
	ShippingAddress   string            `gorm:"type:varchar(500)"`
	ShippingCity      string            `gorm:"type:varchar(100)"`
	ShippingProvince  string            `gorm:"type:varchar(100)"`
	ShippingCountry   string            `gorm:"type:varchar(100)"`
	ShippingPostcode  string            `gorm:"type:varchar(20)"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a paid, unfulfilled order shell. The storefront normally
// creates orders; this constructor serves imports and tests.
func NewOrder(orderNumber, buyerEmail, currency string) *Order {
	if currency == "" {
		currency = "USD"
	}
	return &Order{
		BaseEntity:        shared.NewBaseEntity(),
		OrderNumber:       orderNumber,
		BuyerEmail:        buyerEmail,
		PaymentStatus:     PaymentStatusPaid,
		FulfillmentStatus: FulfillmentStatusUnfulfilled,
		Currency:          currency,
	}
}

// IsPaid returns true if the order has been paid and may be fanned out
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// RecomputeFulfillment derives the fulfillment status from the given items
// (all items of the order). Returns true if the status changed.
func (o *Order) RecomputeFulfillment(items []OrderItem) bool {
	derived := DeriveFulfillmentStatus(items)
	if derived == o.FulfillmentStatus {
		return false
	}
	o.FulfillmentStatus = derived
	o.Touch()
	return true
}

// DeriveFulfillmentStatus computes the order-level fulfillment status:
// FULFILLED when every item's supplier status is SHIPPED or COMPLETED,
// PARTIALLY_FULFILLED when at least one but not all qualify, UNFULFILLED
// otherwise. Items without a supplier status never qualify.
func DeriveFulfillmentStatus(items []OrderItem) FulfillmentStatus {
	if len(items) == 0 {
		return FulfillmentStatusUnfulfilled
	}
	fulfilled := 0
	for _, item := range items {
		if item.SupplierOrderStatus != nil && item.SupplierOrderStatus.IsFulfilled() {
			fulfilled++
		}
	}
	switch {
	case fulfilled == len(items):
		return FulfillmentStatusFulfilled
	case fulfilled > 0:
		return FulfillmentStatusPartiallyFulfilled
	default:
		return FulfillmentStatusUnfulfilled
	}
}

// OrderItem is one line of a customer order. Fan-out assigns it to a
// supplier order; reconciliation mirrors the supplier order's status onto it.
type OrderItem struct {
	shared.BaseEntity
	OrderID                uuid.UUID            `gorm:"type:uuid;not null;index"`
	ProductID              uuid.UUID            `gorm:"type:uuid;not null"`
	ProductName            string               `gorm:"type:varchar(200);not null"`
	VariantName            string               `gorm:"type:varchar(200)"`
	ExternalProductID      string               `gorm:"type:varchar(100)"` // Supplier-side product id, any of its string encodings
	SupplierID             *uuid.UUID           `gorm:"type:uuid;index"`   // Nil for internally fulfilled items
	SupplierOrderID        *uuid.UUID           `gorm:"type:uuid;index"`
	SupplierOrderStatus    *SupplierOrderStatus `gorm:"type:varchar(20)"`
	SupplierTrackingNumber *string              `gorm:"type:varchar(100)"`
	SupplierTrackingURL    *string              `gorm:"type:varchar(500)"`
	Quantity               int                  `gorm:"not null;default:1"`
	Price                  decimal.Decimal      `gorm:"type:decimal(18,4);not null"` // Unit sale price
	CostPrice              *decimal.Decimal     `gorm:"type:decimal(18,4)"`          // Unit supplier cost, nil when unknown
	ProfitAmount           *decimal.Decimal     `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderItem creates an order line
func NewOrderItem(orderID, productID uuid.UUID, productName, externalProductID string, quantity int, price decimal.Decimal) *OrderItem {
	if quantity <= 0 {
		quantity = 1
	}
	return &OrderItem{
		BaseEntity:        shared.NewBaseEntity(),
		OrderID:           orderID,
		ProductID:         productID,
		ProductName:       productName,
		ExternalProductID: externalProductID,
		Quantity:          quantity,
		Price:             price,
	}
}

// LineTotal returns quantity * unit sale price
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CostBasis returns the supplier cost for the whole line. When the unit cost
// is unknown the supplied fallback factor of the sale price is used.
func (i *OrderItem) CostBasis(fallbackCostFactor decimal.Decimal) decimal.Decimal {
	unit := i.Price.Mul(fallbackCostFactor)
	if i.CostPrice != nil {
		unit = *i.CostPrice
	}
	return unit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AssignToSupplierOrder links the item to its supplier order after fan-out
func (i *OrderItem) AssignToSupplierOrder(supplierOrderID uuid.UUID, profit decimal.Decimal) error {
	if supplierOrderID == uuid.Nil {
		return shared.NewDomainError("INVALID_SUPPLIER_ORDER", "Supplier order ID cannot be empty")
	}
	status := SupplierOrderStatusPending
	i.SupplierOrderID = &supplierOrderID
	i.SupplierOrderStatus = &status
	i.ProfitAmount = &profit
	i.Touch()
	return nil
}

// MirrorSupplierStatus copies the owning supplier order's status and tracking
// onto the item. Set-to-value only.
func (i *OrderItem) MirrorSupplierStatus(status SupplierOrderStatus, trackingNumber, trackingURL *string) {
	s := status
	i.SupplierOrderStatus = &s
	if trackingNumber != nil {
		v := *trackingNumber
		i.SupplierTrackingNumber = &v
	}
	if trackingURL != nil {
		v := *trackingURL
		i.SupplierTrackingURL = &v
	}
	i.Touch()
}
