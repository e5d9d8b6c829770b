package supplierapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/partner"
)

// maxCJResponseSize limits the response body size to prevent memory exhaustion
const maxCJResponseSize = 10 * 1024 * 1024 // 10MB max response

// CJAdapter implements integration.SupplierGateway for the CJ Dropshipping
// API family. One instance serves one supplier; the rate gate and category
// cache are therefore shared by every caller touching that supplier.
type CJAdapter struct {
	supplierID   uuid.UUID
	supplierCode string
	config       *CJConfig

	tokens     integration.TokenRepository
	authGate   integration.AuthGate
	gate       *RateGate
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	// Category cache, guarded by catMu
	catMu        sync.Mutex
	catList      []integration.Category
	catFetchedAt time.Time
}

// NewCJAdapter creates a CJ adapter bound to one supplier
func NewCJAdapter(supplier *partner.Supplier, config *CJConfig, tokens integration.TokenRepository, authGate integration.AuthGate, logger *zap.Logger) (*CJAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CJAdapter{
		supplierID:   supplier.ID,
		supplierCode: supplier.Code,
		config:       config,
		tokens:       tokens,
		authGate:     authGate,
		gate:         NewRateGate(config.RequestSpacing),
		httpClient:   &http.Client{Timeout: config.RequestTimeout},
		logger:       logger.With(zap.String("supplier", supplier.Code)),
		now:          time.Now,
	}, nil
}

// WithClock replaces the time source, for tests. The rate gate keeps its own
// clock; swap it via RateGate.WithClock when a test needs both.
func (a *CJAdapter) WithClock(now func() time.Time) *CJAdapter {
	a.now = now
	return a
}

// Gate exposes the shared rate gate, for tests
func (a *CJAdapter) Gate() *RateGate {
	return a.gate
}

// SupplierType returns the adapter family this gateway implements
func (a *CJAdapter) SupplierType() partner.SupplierType {
	return partner.SupplierTypeCJ
}

// SupplierID returns the supplier this gateway is bound to
func (a *CJAdapter) SupplierID() uuid.UUID {
	return a.supplierID
}

// ---------------------------------------------------------------------------
// Token Acquisition
// ---------------------------------------------------------------------------

// ensureAccessToken returns a usable access token, acquiring one if needed.
// Order: cached access token, then refresh-token exchange, then full login
// behind the 5-minute auth gate. A blocked gate yields a RateLimitError.
func (a *CJAdapter) ensureAccessToken(ctx context.Context) (string, error) {
	token, err := a.tokens.GetAccessToken(ctx, a.supplierID)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, integration.ErrNoValidToken) {
		return "", err
	}

	// Refresh-token exchange; failure falls through to full login
	if refresh, rerr := a.tokens.GetRefreshToken(ctx, a.supplierID); rerr == nil {
		if token, rerr = a.refreshTokens(ctx, refresh); rerr == nil {
			return token, nil
		}
		a.logger.Warn("refresh token exchange failed, falling back to login", zap.Error(rerr))
	}

	return a.login(ctx)
}

// refreshTokens exchanges a refresh token for a new token pair
func (a *CJAdapter) refreshTokens(ctx context.Context, refreshToken string) (string, error) {
	body, err := a.doRequest(ctx, http.MethodPost, cjPathAuthRefresh, CJRefreshRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return "", err
	}

	var resp CJAuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", integration.ErrMalformedResponse, err)
	}
	if !resp.IsSuccess() || resp.Data == nil || resp.Data.AccessToken == "" {
		return "", fmt.Errorf("%w: refresh rejected: %d %s", integration.ErrAuthenticationFailed, resp.Code, resp.Message)
	}

	return a.storeAuthData(ctx, resp.Data)
}

// login performs a full credential authentication. The attempt is stamped
// before the call so a failed login still starts the backoff window.
func (a *CJAdapter) login(ctx context.Context) (string, error) {
	allowed, err := a.tokens.CanAuthenticate(ctx, a.supplierID)
	if err != nil {
		return "", err
	}
	if !allowed {
		wait, werr := a.tokens.TimeUntilNextAuth(ctx, a.supplierID)
		if werr != nil {
			return "", werr
		}
		return "", integration.NewRateLimitError(wait)
	}

	if a.authGate != nil {
		acquired, gerr := a.authGate.TryAcquire(ctx, a.supplierID, a.config.MinAuthInterval)
		if gerr != nil {
			return "", gerr
		}
		if !acquired {
			// Another instance holds the auth slot for this supplier
			return "", integration.NewRateLimitError(a.config.MinAuthInterval)
		}
	}

	if err := a.tokens.RecordAuthAttempt(ctx, a.supplierID); err != nil {
		return "", err
	}

	body, err := a.doRequest(ctx, http.MethodPost, cjPathAuthLogin, CJAuthRequest{
		Email:    a.config.APIEmail,
		Password: a.config.APIKey,
	}, "")
	if err != nil {
		return "", err
	}

	var resp CJAuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", integration.ErrMalformedResponse, err)
	}
	if !resp.IsSuccess() || resp.Data == nil || resp.Data.AccessToken == "" {
		return "", fmt.Errorf("%w: login rejected: %d %s", integration.ErrAuthenticationFailed, resp.Code, resp.Message)
	}

	return a.storeAuthData(ctx, resp.Data)
}

// storeAuthData persists a vendor token pair and returns the access token
func (a *CJAdapter) storeAuthData(ctx context.Context, data *CJAuthData) (string, error) {
	tokens := &integration.TokenData{
		AccessToken:      data.AccessToken,
		RefreshToken:     data.RefreshToken,
		AccessExpiresAt:  parseCJTime(data.AccessTokenExpiryDate),
		RefreshExpiresAt: parseCJTime(data.RefreshTokenExpiryDate),
	}
	if err := a.tokens.StoreTokens(ctx, a.supplierID, tokens); err != nil {
		return "", err
	}
	return data.AccessToken, nil
}

// parseCJTime parses a vendor expiry timestamp; nil when unparseable
func parseCJTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Gateway Operations
// ---------------------------------------------------------------------------

// GetCategories returns the supplier's category list. The last successful
// list is memoized; under a fresh rate limit the cached copy is returned
// flagged stale rather than failing the caller.
func (a *CJAdapter) GetCategories(ctx context.Context) (*integration.CategoryList, error) {
	a.catMu.Lock()
	if a.catList != nil && a.now().Sub(a.catFetchedAt) < a.config.CategoryCacheTTL {
		list := &integration.CategoryList{
			Categories: a.catList,
			Stale:      false,
			FetchedAt:  a.catFetchedAt,
		}
		a.catMu.Unlock()
		return list, nil
	}
	a.catMu.Unlock()

	fresh, err := a.fetchCategories(ctx)
	if err != nil {
		if errors.Is(err, integration.ErrRateLimited) {
			a.catMu.Lock()
			defer a.catMu.Unlock()
			if a.catList != nil {
				a.logger.Warn("category fetch rate limited, serving cached list",
					zap.Time("fetched_at", a.catFetchedAt))
				return &integration.CategoryList{
					Categories: a.catList,
					Stale:      true,
					FetchedAt:  a.catFetchedAt,
				}, nil
			}
		}
		return nil, err
	}

	a.catMu.Lock()
	a.catList = fresh
	a.catFetchedAt = a.now()
	list := &integration.CategoryList{
		Categories: a.catList,
		Stale:      false,
		FetchedAt:  a.catFetchedAt,
	}
	a.catMu.Unlock()
	return list, nil
}

// fetchCategories performs the network fetch of the category list
func (a *CJAdapter) fetchCategories(ctx context.Context) ([]integration.Category, error) {
	token, err := a.ensureAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := a.doRequest(ctx, http.MethodGet, cjPathCategoryList, nil, token)
	if err != nil {
		return nil, err
	}

	var resp CJCategoryListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrMalformedResponse, err)
	}
	if verr := a.vendorError(&resp.CJResponse); verr != nil {
		return nil, verr
	}

	categories := make([]integration.Category, 0, len(resp.Data))
	for _, c := range resp.Data {
		categories = append(categories, integration.Category{
			CategoryID: c.CategoryID,
			Name:       c.CategoryName,
			ParentID:   c.ParentID,
		})
	}
	return categories, nil
}

// GetProductDetail looks up one product by external id. The query endpoint
// wants the bare numeric id, not the structured form.
func (a *CJAdapter) GetProductDetail(ctx context.Context, externalProductID string) (*integration.ProductDetail, error) {
	pid, ok := NumericProductID(externalProductID)
	if !ok {
		a.logger.Warn("product id normalization miss", zap.String("product_id", externalProductID))
	}

	token, err := a.ensureAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	path := cjPathProductQuery + "?pid=" + url.QueryEscape(pid)
	body, err := a.doRequest(ctx, http.MethodGet, path, nil, token)
	if err != nil {
		return nil, err
	}

	var resp CJProductQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrMalformedResponse, err)
	}
	if verr := a.vendorError(&resp.CJResponse); verr != nil {
		return nil, verr
	}
	if resp.Data == nil || resp.Data.PID == "" {
		return nil, integration.ErrProductNotFound
	}

	detail := &integration.ProductDetail{
		ExternalProductID: a.normalizePID(resp.Data.PID),
		Name:              resp.Data.ProductName,
		SellPrice:         parseCJPrice(resp.Data.SellPrice),
		Currency:          resp.Data.Currency,
		CategoryID:        resp.Data.CategoryID,
	}
	for _, v := range resp.Data.Variants {
		detail.Variants = append(detail.Variants, integration.ProductVariantDetail{
			VariantID: v.VID,
			Name:      v.VariantName,
			SellPrice: parseCJPrice(v.VariantSellPrice),
			Stock:     v.VariantStock,
		})
	}
	return detail, nil
}

// CreateOrder places an order with the supplier
func (a *CJAdapter) CreateOrder(ctx context.Context, req *integration.CreateOrderRequest) (*integration.CreateOrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token, err := a.ensureAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := CJCreateOrderRequest{
		OrderNumber: req.OrderNumber,
		Remark:      req.Remark,
		ShippingAddress: CJShippingAddress{
			Name:     req.Recipient.Name,
			Phone:    req.Recipient.Phone,
			Email:    req.Recipient.Email,
			Address:  req.Recipient.Address,
			City:     req.Recipient.City,
			Province: req.Recipient.Province,
			Country:  req.Recipient.Country,
			Zip:      req.Recipient.Postcode,
		},
	}
	for _, item := range req.Items {
		payload.ProductList = append(payload.ProductList, CJOrderProduct{
			PID:      a.normalizePID(item.ExternalProductID),
			VID:      item.VariantID,
			Quantity: item.Quantity,
		})
	}

	body, err := a.doRequest(ctx, http.MethodPost, cjPathOrderCreate, payload, token)
	if err != nil {
		return nil, err
	}

	var resp CJCreateOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrMalformedResponse, err)
	}
	if verr := a.vendorError(&resp.CJResponse); verr != nil {
		return nil, verr
	}
	if resp.Data == nil || resp.Data.OrderID == "" {
		return nil, fmt.Errorf("%w: order creation returned no order id", integration.ErrMalformedResponse)
	}

	return &integration.CreateOrderResult{
		ExternalOrderID: resp.Data.OrderID,
		Tracking: fulfillment.TrackingUpdate{
			TrackingNumber: resp.Data.TrackNumber,
		},
	}, nil
}

// GetOrderStatus polls the status of a previously created order
func (a *CJAdapter) GetOrderStatus(ctx context.Context, externalOrderID string) (*integration.OrderStatusResult, error) {
	if externalOrderID == "" {
		return nil, integration.ErrOrderNotFound
	}

	token, err := a.ensureAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	path := cjPathOrderStatus + "?orderId=" + url.QueryEscape(externalOrderID)
	body, err := a.doRequest(ctx, http.MethodGet, path, nil, token)
	if err != nil {
		return nil, err
	}

	var resp CJOrderStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrMalformedResponse, err)
	}
	if verr := a.vendorError(&resp.CJResponse); verr != nil {
		return nil, verr
	}
	if resp.Data == nil {
		return nil, integration.ErrOrderNotFound
	}

	result := &integration.OrderStatusResult{
		ExternalOrderID: resp.Data.OrderID,
		VendorStatus:    resp.Data.OrderStatus,
		Status:          MapVendorStatus(resp.Data.OrderStatus),
		Tracking: fulfillment.TrackingUpdate{
			TrackingNumber: resp.Data.TrackNumber,
			TrackingURL:    resp.Data.TrackURL,
			Carrier:        resp.Data.LogisticName,
		},
	}
	if t := parseCJTime(resp.Data.DeliveryTime); t != nil {
		result.Tracking.EstimatedDelivery = t
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs one rate-gated HTTP call and translates transport-level
// failures into the integration error taxonomy
func (a *CJAdapter) doRequest(ctx context.Context, method, path string, payload any, accessToken string) ([]byte, error) {
	if err := a.gate.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("cj: failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("cj: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("CJ-Access-Token", accessToken)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", integration.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCJResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrTransport, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, integration.NewRateLimitError(retryAfterFromHeader(resp.Header))
	}
	if resp.StatusCode >= 400 {
		return nil, integration.NewRemoteError(resp.StatusCode, body)
	}

	return body, nil
}

// vendorError translates a non-success vendor envelope into the taxonomy
func (a *CJAdapter) vendorError(resp *CJResponse) error {
	if resp.IsSuccess() {
		return nil
	}
	if resp.IsRateLimited() {
		return integration.NewRateLimitError(retryAfterFromMessage(resp.Message))
	}
	return fmt.Errorf("%w: vendor code %d: %s", integration.ErrMalformedResponse, resp.Code, resp.Message)
}

// cjRetrySecondsPattern picks the advertised wait out of vendor rate-limit
// messages like "too many requests, try again in 60 seconds"
var cjRetrySecondsPattern = regexp.MustCompile(`(\d+)\s*second`)

// retryAfterFromHeader reads a delay-seconds Retry-After header, falling back
// to the vendor default when absent or unparseable (the HTTP-date form is not
// worth supporting; CJ never sends it)
func retryAfterFromHeader(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return cjDefaultRetryAfter
}

// retryAfterFromMessage extracts the advertised interval from the vendor's
// rate-limit message, falling back to the vendor default
func retryAfterFromMessage(msg string) time.Duration {
	m := cjRetrySecondsPattern.FindStringSubmatch(strings.ToLower(msg))
	if m == nil {
		return cjDefaultRetryAfter
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil || secs <= 0 {
		return cjDefaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

// normalizePID applies product-id normalization, logging misses
func (a *CJAdapter) normalizePID(id string) string {
	normalized, ok := NormalizeProductID(id)
	if !ok {
		a.logger.Warn("product id normalization miss", zap.String("product_id", id))
	}
	return normalized
}

// parseCJPrice converts a vendor numeric to a decimal, zero on garbage
func parseCJPrice(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// MapVendorStatus maps a vendor status string, case-insensitively, to the
// internal enum. Unrecognized values map to UNKNOWN; callers never advance
// state on UNKNOWN.
func MapVendorStatus(vendorStatus string) fulfillment.SupplierOrderStatus {
	switch strings.ToLower(strings.TrimSpace(vendorStatus)) {
	case "created", "pending":
		return fulfillment.SupplierOrderStatusPending
	case "processing", "inprocess", "unshipped":
		return fulfillment.SupplierOrderStatusProcessing
	case "shipped", "dispatched", "intransit":
		return fulfillment.SupplierOrderStatusShipped
	case "delivered", "completed", "finished":
		return fulfillment.SupplierOrderStatusCompleted
	case "cancelled", "canceled", "closed":
		return fulfillment.SupplierOrderStatusCancelled
	case "error", "failed":
		return fulfillment.SupplierOrderStatusError
	default:
		return fulfillment.SupplierOrderStatusUnknown
	}
}

// Ensure CJAdapter implements SupplierGateway
var _ integration.SupplierGateway = (*CJAdapter)(nil)
