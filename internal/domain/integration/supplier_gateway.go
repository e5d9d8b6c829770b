package integration

import (
	"context"
	"time"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/partner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// Category is one entry of a supplier's product category tree
type Category struct {
	// CategoryID is the supplier-side category identifier
	CategoryID string
	// Name is the display name
	Name string
	// ParentID is the parent category, empty for roots
	ParentID string
}

// CategoryList is the result of a category lookup. Stale is true when the
// list was served from the adapter cache because the supplier rate-limited
// a fresh fetch.
type CategoryList struct {
	Categories []Category
	Stale      bool
	FetchedAt  time.Time
}

// ProductDetail is a supplier-side product lookup result
type ProductDetail struct {
	// ExternalProductID is the normalized supplier product id
	ExternalProductID string
	// Name is the supplier's product name
	Name string
	// SellPrice is the supplier's unit price
	SellPrice decimal.Decimal
	// Currency is the price currency
	Currency string
	// CategoryID is the supplier category this product belongs to
	CategoryID string
	// Variants contains the purchasable variants
	Variants []ProductVariantDetail
}

// ProductVariantDetail is one purchasable variant of a supplier product
type ProductVariantDetail struct {
	VariantID string
	Name      string
	SellPrice decimal.Decimal
	Stock     int
}

// ShippingRecipient is the delivery target sent with an order
type ShippingRecipient struct {
	Name     string
	Phone    string
	Email    string
	Address  string
	City     string
	Province string
	Country  string
	Postcode string
}

// CreateOrderItem is one line of an outbound supplier order
type CreateOrderItem struct {
	// ExternalProductID is the supplier product id in any of its encodings;
	// the adapter normalizes it before it reaches the wire
	ExternalProductID string
	// VariantID is the supplier variant id, optional
	VariantID string
	Quantity  int
}

// CreateOrderRequest is the generic outbound order payload. The adapter owns
// the translation to its vendor's wire format.
type CreateOrderRequest struct {
	// OrderNumber is our order number, doubling as the idempotency key on
	// vendors that deduplicate by client order number
	OrderNumber string
	Recipient   ShippingRecipient
	Items       []CreateOrderItem
	Remark      string
}

// Validate checks the request before it is handed to an adapter
func (r *CreateOrderRequest) Validate() error {
	if r.OrderNumber == "" {
		return ErrConfiguration
	}
	if len(r.Items) == 0 {
		return ErrConfiguration
	}
	for _, item := range r.Items {
		if item.ExternalProductID == "" || item.Quantity <= 0 {
			return ErrConfiguration
		}
	}
	return nil
}

// CreateOrderResult is the supplier's answer to an order creation
type CreateOrderResult struct {
	// ExternalOrderID is the vendor's opaque order identifier
	ExternalOrderID string
	// Tracking holds any tracking data returned synchronously; usually empty
	Tracking fulfillment.TrackingUpdate
}

// OrderStatusResult is the supplier's answer to a status poll
type OrderStatusResult struct {
	ExternalOrderID string
	// VendorStatus is the raw vendor status string, kept for audit notes
	VendorStatus string
	// Status is the vendor status mapped to the internal enum; UNKNOWN when
	// the vendor string is not in the adapter's mapping table
	Status   fulfillment.SupplierOrderStatus
	Tracking fulfillment.TrackingUpdate
}

// ---------------------------------------------------------------------------
// SupplierGateway Port Interface
// ---------------------------------------------------------------------------

// SupplierGateway is the port to one supplier's API. Implementations own the
// token lifecycle and the per-supplier rate gate; every method may block up
// to the rate-gate spacing before sending and is bounded by a hard timeout.
// One gateway instance serves all callers for its supplier so the rate gate
// is genuinely shared between dispatch and reconciliation.
type SupplierGateway interface {
	// SupplierType returns the adapter family this gateway implements
	SupplierType() partner.SupplierType

	// SupplierID returns the supplier this gateway is bound to
	SupplierID() uuid.UUID

	// GetCategories returns the supplier's category list, possibly served
	// stale from cache under rate limiting
	GetCategories(ctx context.Context) (*CategoryList, error)

	// GetProductDetail looks up one product by external id
	GetProductDetail(ctx context.Context, externalProductID string) (*ProductDetail, error)

	// CreateOrder places an order with the supplier
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResult, error)

	// GetOrderStatus polls the status of a previously created order
	GetOrderStatus(ctx context.Context, externalOrderID string) (*OrderStatusResult, error)
}

// GatewayRegistry resolves the gateway for a supplier from its configured
// type tag. Resolution happens at configuration time, not per call, and the
// registry caches one gateway instance per supplier id.
type GatewayRegistry interface {
	// GatewayFor returns the (cached) gateway bound to the supplier
	GatewayFor(ctx context.Context, supplier *partner.Supplier) (SupplierGateway, error)

	// SupportedTypes lists the adapter families this registry can construct
	SupportedTypes() []partner.SupplierType
}
