package supplierapi

import (
	"errors"
	"strings"
	"time"
)

// CJConfig holds configuration for the CJ Dropshipping API family
type CJConfig struct {
	// APIEmail is the account email used for full authentication
	APIEmail string
	// APIKey is the account API key
	APIKey string
	// APIBaseURL is the base URL of the supplier's API
	APIBaseURL string
	// RequestTimeout bounds each individual API call
	RequestTimeout time.Duration
	// RequestSpacing is the minimum gap between consecutive calls
	RequestSpacing time.Duration
	// MinAuthInterval is the minimum spacing between full logins
	MinAuthInterval time.Duration
	// CategoryCacheTTL is how long a fetched category list stays fresh
	CategoryCacheTTL time.Duration
}

// API paths of the CJ-style wire protocol
const (
	cjPathAuthLogin    = "/authentication/getAccessToken"
	cjPathAuthRefresh  = "/authentication/refreshAccessToken"
	cjPathCategoryList = "/product/getCategory"
	cjPathProductQuery = "/product/query"
	cjPathOrderCreate  = "/shopping/order/createOrder"
	cjPathOrderStatus  = "/shopping/order/getOrderDetail"
)

const (
	// cjCodeOK is the vendor's success code
	cjCodeOK = 200
	// cjCodeTooManyRequests is the vendor's rate limit code
	cjCodeTooManyRequests = 1600200
	// cjDefaultRetryAfter applies when the vendor rate-limits without
	// advertising an interval
	cjDefaultRetryAfter = 300 * time.Second
)

// Errors for CJ configuration
var (
	ErrCJConfigMissingAPIKey  = errors.New("cj: API key is required")
	ErrCJConfigMissingBaseURL = errors.New("cj: API base URL is required")
)

// Validate validates the CJ configuration and fills defaults
func (c *CJConfig) Validate() error {
	if c.APIKey == "" {
		return ErrCJConfigMissingAPIKey
	}
	if c.APIBaseURL == "" {
		return ErrCJConfigMissingBaseURL
	}
	c.APIBaseURL = strings.TrimSuffix(c.APIBaseURL, "/")
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.RequestSpacing <= 0 {
		c.RequestSpacing = 1100 * time.Millisecond
	}
	if c.MinAuthInterval <= 0 {
		c.MinAuthInterval = 5 * time.Minute
	}
	if c.CategoryCacheTTL <= 0 {
		c.CategoryCacheTTL = time.Hour
	}
	return nil
}
