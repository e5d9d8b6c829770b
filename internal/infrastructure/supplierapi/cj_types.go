package supplierapi

import (
	"encoding/json"
)

// ---------------------------------------------------------------------------
// Common CJ API Response Types
// ---------------------------------------------------------------------------

// CJResponse is the base response wrapper for all CJ API calls
type CJResponse struct {
	// Code is the vendor status code (200 for success)
	Code int `json:"code"`
	// Result mirrors Code for boolean-minded clients
	Result bool `json:"result"`
	// Message is the vendor status message
	Message string `json:"message"`
	// RequestID is the vendor trace id for debugging
	RequestID string `json:"requestId,omitempty"`
}

// IsSuccess returns true if the response indicates success
func (r *CJResponse) IsSuccess() bool {
	return r.Code == cjCodeOK
}

// IsRateLimited returns true if the vendor rejected the call for pacing
func (r *CJResponse) IsRateLimited() bool {
	return r.Code == cjCodeTooManyRequests
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// CJAuthRequest is the payload for full login
type CJAuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` // The account API key
}

// CJRefreshRequest is the payload for a refresh-token exchange
type CJRefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// CJAuthResponse is the response for both login and refresh
type CJAuthResponse struct {
	CJResponse
	Data *CJAuthData `json:"data,omitempty"`
}

// CJAuthData carries the token pair. Expiry dates are vendor-formatted
// timestamps, e.g. "2026-08-30T10:15:00+00:00".
type CJAuthData struct {
	AccessToken            string `json:"accessToken"`
	AccessTokenExpiryDate  string `json:"accessTokenExpiryDate"`
	RefreshToken           string `json:"refreshToken"`
	RefreshTokenExpiryDate string `json:"refreshTokenExpiryDate"`
}

// ---------------------------------------------------------------------------
// Categories and Products
// ---------------------------------------------------------------------------

// CJCategoryListResponse is the response for the category list API
type CJCategoryListResponse struct {
	CJResponse
	Data []CJCategory `json:"data,omitempty"`
}

// CJCategory is one node of the vendor's category tree
type CJCategory struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	ParentID     string `json:"parentId,omitempty"`
}

// CJProductQueryResponse is the response for the product detail API
type CJProductQueryResponse struct {
	CJResponse
	Data *CJProduct `json:"data,omitempty"`
}

// CJProduct is the vendor's product detail
type CJProduct struct {
	PID         string      `json:"pid"`
	ProductName string      `json:"productName"`
	SellPrice   json.Number `json:"sellPrice"`
	Currency    string      `json:"currency,omitempty"`
	CategoryID  string      `json:"categoryId,omitempty"`
	Variants    []CJVariant `json:"variants,omitempty"`
}

// CJVariant is one purchasable variant of a vendor product
type CJVariant struct {
	VID              string      `json:"vid"`
	VariantName      string      `json:"variantName"`
	VariantSellPrice json.Number `json:"variantSellPrice"`
	VariantStock     int         `json:"variantStock"`
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// CJCreateOrderRequest is the payload for order creation
type CJCreateOrderRequest struct {
	OrderNumber     string            `json:"orderNumber"`
	ShippingAddress CJShippingAddress `json:"shippingAddress"`
	Remark          string            `json:"remark,omitempty"`
	ProductList     []CJOrderProduct  `json:"productList"`
}

// CJShippingAddress is the vendor's delivery target shape
type CJShippingAddress struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Province string `json:"province,omitempty"`
	Country  string `json:"country"`
	Zip      string `json:"zip,omitempty"`
}

// CJOrderProduct is one line of an outbound vendor order. The pid must be in
// the structured "pid:<digits>:null" form.
type CJOrderProduct struct {
	PID      string `json:"pid"`
	VID      string `json:"vid,omitempty"`
	Quantity int    `json:"quantity"`
}

// CJCreateOrderResponse is the response for order creation
type CJCreateOrderResponse struct {
	CJResponse
	Data *CJCreateOrderData `json:"data,omitempty"`
}

// CJCreateOrderData carries the vendor's opaque order identifier
type CJCreateOrderData struct {
	OrderID     string `json:"orderId"`
	TrackNumber string `json:"trackNumber,omitempty"`
}

// CJOrderStatusResponse is the response for the order detail API
type CJOrderStatusResponse struct {
	CJResponse
	Data *CJOrderStatusData `json:"data,omitempty"`
}

// CJOrderStatusData is the vendor's view of an order's progress
type CJOrderStatusData struct {
	OrderID      string `json:"orderId"`
	OrderStatus  string `json:"orderStatus"`
	TrackNumber  string `json:"trackNumber,omitempty"`
	TrackURL     string `json:"trackUrl,omitempty"`
	LogisticName string `json:"logisticName,omitempty"`
	DeliveryTime string `json:"deliveryTime,omitempty"`
}
