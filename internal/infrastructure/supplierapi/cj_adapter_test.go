package supplierapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/partner"
)

// ---------------------------------------------------------------------------
// Test Fakes
// ---------------------------------------------------------------------------

// fakeTokenRepo is an in-memory integration.TokenRepository for adapter tests
type fakeTokenRepo struct {
	access       string
	refresh      string
	canAuth      bool
	wait         time.Duration
	authAttempts int
	stored       *integration.TokenData
}

func (f *fakeTokenRepo) GetAccessToken(ctx context.Context, supplierID uuid.UUID) (string, error) {
	if f.access == "" {
		return "", integration.ErrNoValidToken
	}
	return f.access, nil
}

func (f *fakeTokenRepo) GetRefreshToken(ctx context.Context, supplierID uuid.UUID) (string, error) {
	if f.refresh == "" {
		return "", integration.ErrNoValidToken
	}
	return f.refresh, nil
}

func (f *fakeTokenRepo) StoreTokens(ctx context.Context, supplierID uuid.UUID, tokens *integration.TokenData) error {
	f.stored = tokens
	f.access = tokens.AccessToken
	f.refresh = tokens.RefreshToken
	return nil
}

func (f *fakeTokenRepo) RecordAuthAttempt(ctx context.Context, supplierID uuid.UUID) error {
	f.authAttempts++
	return nil
}

func (f *fakeTokenRepo) CanAuthenticate(ctx context.Context, supplierID uuid.UUID) (bool, error) {
	return f.canAuth, nil
}

func (f *fakeTokenRepo) TimeUntilNextAuth(ctx context.Context, supplierID uuid.UUID) (time.Duration, error) {
	return f.wait, nil
}

func (f *fakeTokenRepo) Invalidate(ctx context.Context, supplierID uuid.UUID) error {
	f.access = ""
	f.refresh = ""
	return nil
}

var _ integration.TokenRepository = (*fakeTokenRepo)(nil)

func newTestSupplier(t *testing.T, endpoint string) *partner.Supplier {
	supplier, err := partner.NewSupplier("CJ01", "CJ Dropshipping", partner.SupplierTypeCJ)
	require.NoError(t, err)
	require.NoError(t, supplier.SetCredentials("api@example.com", "secret-key", endpoint))
	return supplier
}

func newTestAdapter(t *testing.T, endpoint string, tokens integration.TokenRepository) *CJAdapter {
	adapter, err := NewCJAdapter(newTestSupplier(t, endpoint), &CJConfig{
		APIEmail:        "api@example.com",
		APIKey:          "secret-key",
		APIBaseURL:      endpoint,
		RequestSpacing:  time.Millisecond,
		RequestTimeout:  5 * time.Second,
		MinAuthInterval: 5 * time.Minute,
	}, tokens, nil, zap.NewNop())
	require.NoError(t, err)
	return adapter
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestCJConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *CJConfig
		wantErr error
	}{
		{
			name:    "valid config",
			config:  &CJConfig{APIKey: "key", APIBaseURL: "https://api.example.com"},
			wantErr: nil,
		},
		{
			name:    "missing API key",
			config:  &CJConfig{APIBaseURL: "https://api.example.com"},
			wantErr: ErrCJConfigMissingAPIKey,
		},
		{
			name:    "missing base URL",
			config:  &CJConfig{APIKey: "key"},
			wantErr: ErrCJConfigMissingBaseURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 30*time.Second, tt.config.RequestTimeout)
			assert.Equal(t, 1100*time.Millisecond, tt.config.RequestSpacing)
			assert.Equal(t, 5*time.Minute, tt.config.MinAuthInterval)
			assert.Equal(t, time.Hour, tt.config.CategoryCacheTTL)
		})
	}

	t.Run("trims trailing slash", func(t *testing.T) {
		cfg := &CJConfig{APIKey: "key", APIBaseURL: "https://api.example.com/"}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	})
}

// ---------------------------------------------------------------------------
// Rate Gate Tests
// ---------------------------------------------------------------------------

func TestRateGate_Wait(t *testing.T) {
	t.Run("first call passes immediately", func(t *testing.T) {
		now := time.Now()
		var slept []time.Duration
		gate := NewRateGate(1100*time.Millisecond).WithClock(
			func() time.Time { return now },
			func(ctx context.Context, d time.Duration) error {
				slept = append(slept, d)
				now = now.Add(d)
				return nil
			},
		)

		require.NoError(t, gate.Wait(context.Background()))
		assert.Empty(t, slept)
	})

	t.Run("back-to-back calls wait out the spacing", func(t *testing.T) {
		now := time.Now()
		var slept []time.Duration
		gate := NewRateGate(1100*time.Millisecond).WithClock(
			func() time.Time { return now },
			func(ctx context.Context, d time.Duration) error {
				slept = append(slept, d)
				now = now.Add(d)
				return nil
			},
		)

		require.NoError(t, gate.Wait(context.Background()))
		now = now.Add(300 * time.Millisecond)
		require.NoError(t, gate.Wait(context.Background()))

		require.Len(t, slept, 1)
		assert.Equal(t, 800*time.Millisecond, slept[0])
	})

	t.Run("calls beyond the spacing pass without sleeping", func(t *testing.T) {
		now := time.Now()
		var slept []time.Duration
		gate := NewRateGate(1100*time.Millisecond).WithClock(
			func() time.Time { return now },
			func(ctx context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			},
		)

		require.NoError(t, gate.Wait(context.Background()))
		now = now.Add(2 * time.Second)
		require.NoError(t, gate.Wait(context.Background()))
		assert.Empty(t, slept)
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		gate := NewRateGate(time.Hour)
		require.NoError(t, gate.Wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := gate.Wait(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// ---------------------------------------------------------------------------
// Product ID Normalization Tests
// ---------------------------------------------------------------------------

func TestNormalizeProductID(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"123", "pid:123:null", true},
		{"pid:123", "pid:123:null", true},
		{"pid:123:null", "pid:123:null", true},
		{"pid:pid:123:null", "pid:123:null", true},
		{"SKU-00456-B", "pid:00456:null", true},
		{"no-digits-here", "no-digits-here", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeProductID(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}

	t.Run("normalization is idempotent", func(t *testing.T) {
		for _, in := range []string{"123", "pid:123", "pid:123:null", "pid:pid:123:null"} {
			once, ok := NormalizeProductID(in)
			require.True(t, ok)
			twice, ok := NormalizeProductID(once)
			require.True(t, ok)
			assert.Equal(t, once, twice)
		}
	})
}

func TestNumericProductID(t *testing.T) {
	got, ok := NumericProductID("pid:987:null")
	assert.True(t, ok)
	assert.Equal(t, "987", got)

	got, ok = NumericProductID("no-digits")
	assert.False(t, ok)
	assert.Equal(t, "no-digits", got)
}

// ---------------------------------------------------------------------------
// Status Mapping Tests
// ---------------------------------------------------------------------------

func TestMapVendorStatus(t *testing.T) {
	tests := []struct {
		vendor string
		want   fulfillment.SupplierOrderStatus
	}{
		{"CREATED", fulfillment.SupplierOrderStatusPending},
		{"pending", fulfillment.SupplierOrderStatusPending},
		{"Processing", fulfillment.SupplierOrderStatusProcessing},
		{"INPROCESS", fulfillment.SupplierOrderStatusProcessing},
		{"unshipped", fulfillment.SupplierOrderStatusProcessing},
		{"SHIPPED", fulfillment.SupplierOrderStatusShipped},
		{"dispatched", fulfillment.SupplierOrderStatusShipped},
		{"InTransit", fulfillment.SupplierOrderStatusShipped},
		{"delivered", fulfillment.SupplierOrderStatusCompleted},
		{"COMPLETED", fulfillment.SupplierOrderStatusCompleted},
		{"finished", fulfillment.SupplierOrderStatusCompleted},
		{"cancelled", fulfillment.SupplierOrderStatusCancelled},
		{"canceled", fulfillment.SupplierOrderStatusCancelled},
		{"closed", fulfillment.SupplierOrderStatusCancelled},
		{"error", fulfillment.SupplierOrderStatusError},
		{"FAILED", fulfillment.SupplierOrderStatusError},
		{"some-new-vendor-state", fulfillment.SupplierOrderStatusUnknown},
		{"", fulfillment.SupplierOrderStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			assert.Equal(t, tt.want, MapVendorStatus(tt.vendor))
		})
	}
}

// ---------------------------------------------------------------------------
// Token Acquisition Tests
// ---------------------------------------------------------------------------

func TestCJAdapter_TokenAcquisition(t *testing.T) {
	t.Run("cached token short-circuits auth", func(t *testing.T) {
		var authCalls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case cjPathAuthLogin, cjPathAuthRefresh:
				authCalls.Add(1)
				w.WriteHeader(http.StatusInternalServerError)
			case cjPathOrderStatus:
				assert.Equal(t, "cached-token", r.Header.Get("CJ-Access-Token"))
				writeJSON(t, w, CJOrderStatusResponse{
					CJResponse: CJResponse{Code: 200, Result: true},
					Data:       &CJOrderStatusData{OrderID: "EXT-1", OrderStatus: "SHIPPED"},
				})
			}
		}))
		defer server.Close()

		tokens := &fakeTokenRepo{access: "cached-token"}
		adapter := newTestAdapter(t, server.URL, tokens)

		result, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		require.NoError(t, err)
		assert.Equal(t, fulfillment.SupplierOrderStatusShipped, result.Status)
		assert.Equal(t, int32(0), authCalls.Load())
	})

	t.Run("refresh exchange runs before full login", func(t *testing.T) {
		var loginCalls, refreshCalls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case cjPathAuthRefresh:
				refreshCalls.Add(1)
				writeJSON(t, w, CJAuthResponse{
					CJResponse: CJResponse{Code: 200, Result: true},
					Data: &CJAuthData{
						AccessToken:           "refreshed-token",
						AccessTokenExpiryDate: time.Now().Add(2 * time.Hour).Format(time.RFC3339),
					},
				})
			case cjPathAuthLogin:
				loginCalls.Add(1)
				w.WriteHeader(http.StatusInternalServerError)
			case cjPathOrderStatus:
				assert.Equal(t, "refreshed-token", r.Header.Get("CJ-Access-Token"))
				writeJSON(t, w, CJOrderStatusResponse{
					CJResponse: CJResponse{Code: 200, Result: true},
					Data:       &CJOrderStatusData{OrderID: "EXT-1", OrderStatus: "processing"},
				})
			}
		}))
		defer server.Close()

		tokens := &fakeTokenRepo{refresh: "refresh-token", canAuth: true}
		adapter := newTestAdapter(t, server.URL, tokens)

		result, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		require.NoError(t, err)
		assert.Equal(t, fulfillment.SupplierOrderStatusProcessing, result.Status)
		assert.Equal(t, int32(1), refreshCalls.Load())
		assert.Equal(t, int32(0), loginCalls.Load())
		assert.Equal(t, 0, tokens.authAttempts)
		require.NotNil(t, tokens.stored)
		assert.Equal(t, "refreshed-token", tokens.stored.AccessToken)
	})

	t.Run("full login stamps the attempt and stores tokens", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case cjPathAuthLogin:
				var req CJAuthRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "api@example.com", req.Email)
				assert.Equal(t, "secret-key", req.Password)
				writeJSON(t, w, CJAuthResponse{
					CJResponse: CJResponse{Code: 200, Result: true},
					Data: &CJAuthData{
						AccessToken:            "fresh-token",
						AccessTokenExpiryDate:  time.Now().Add(2 * time.Hour).Format(time.RFC3339),
						RefreshToken:           "fresh-refresh",
						RefreshTokenExpiryDate: time.Now().Add(48 * time.Hour).Format(time.RFC3339),
					},
				})
			case cjPathOrderStatus:
				assert.Equal(t, "fresh-token", r.Header.Get("CJ-Access-Token"))
				writeJSON(t, w, CJOrderStatusResponse{
					CJResponse: CJResponse{Code: 200, Result: true},
					Data:       &CJOrderStatusData{OrderID: "EXT-1", OrderStatus: "created"},
				})
			}
		}))
		defer server.Close()

		tokens := &fakeTokenRepo{canAuth: true}
		adapter := newTestAdapter(t, server.URL, tokens)

		_, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		require.NoError(t, err)
		assert.Equal(t, 1, tokens.authAttempts)
		require.NotNil(t, tokens.stored)
		assert.Equal(t, "fresh-token", tokens.stored.AccessToken)
		assert.Equal(t, "fresh-refresh", tokens.stored.RefreshToken)
	})

	t.Run("failed login still counts as an attempt", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, CJAuthResponse{
				CJResponse: CJResponse{Code: 1600300, Message: "bad credentials"},
			})
		}))
		defer server.Close()

		tokens := &fakeTokenRepo{canAuth: true}
		adapter := newTestAdapter(t, server.URL, tokens)

		_, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		assert.ErrorIs(t, err, integration.ErrAuthenticationFailed)
		assert.Equal(t, 1, tokens.authAttempts)
	})

	t.Run("blocked auth window yields RateLimitError with wait", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no HTTP call expected while the auth window is blocked")
		}))
		defer server.Close()

		tokens := &fakeTokenRepo{canAuth: false, wait: 3 * time.Minute}
		adapter := newTestAdapter(t, server.URL, tokens)

		_, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		require.ErrorIs(t, err, integration.ErrRateLimited)

		seconds, ok := integration.RetryAfterSeconds(err)
		require.True(t, ok)
		assert.Equal(t, 180, seconds)
		assert.Equal(t, 0, tokens.authAttempts)
	})
}

// ---------------------------------------------------------------------------
// Error Translation Tests
// ---------------------------------------------------------------------------

func TestCJAdapter_ErrorTranslation(t *testing.T) {
	t.Run("vendor rate limit code maps to RateLimitError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, CJOrderStatusResponse{
				CJResponse: CJResponse{Code: 1600200, Message: "too many requests"},
			})
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		require.ErrorIs(t, err, integration.ErrRateLimited)

		seconds, ok := integration.RetryAfterSeconds(err)
		require.True(t, ok)
		assert.Equal(t, 300, seconds)
	})

	t.Run("vendor message advertising an interval overrides the default", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, CJOrderStatusResponse{
				CJResponse: CJResponse{Code: 1600200, Message: "Too many requests, try again in 60 seconds"},
			})
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		require.ErrorIs(t, err, integration.ErrRateLimited)

		seconds, ok := integration.RetryAfterSeconds(err)
		require.True(t, ok)
		assert.Equal(t, 60, seconds)
	})

	t.Run("HTTP 429 maps to RateLimitError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		require.ErrorIs(t, err, integration.ErrRateLimited)

		seconds, ok := integration.RetryAfterSeconds(err)
		require.True(t, ok)
		assert.Equal(t, 300, seconds)
	})

	t.Run("HTTP 429 honors a Retry-After header", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		require.ErrorIs(t, err, integration.ErrRateLimited)

		seconds, ok := integration.RetryAfterSeconds(err)
		require.True(t, ok)
		assert.Equal(t, 120, seconds)
	})

	t.Run("non-2xx maps to RemoteError with body excerpt", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream exploded"))
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		var remoteErr *integration.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, http.StatusBadGateway, remoteErr.StatusCode)
		assert.Contains(t, remoteErr.BodyExcerpt, "upstream exploded")
	})

	t.Run("connection failure maps to ErrTransport", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // Closed immediately so the dial fails

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		assert.ErrorIs(t, err, integration.ErrTransport)
	})

	t.Run("non-JSON body maps to ErrMalformedResponse", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.GetOrderStatus(context.Background(), "EXT-1")
		assert.ErrorIs(t, err, integration.ErrMalformedResponse)
	})
}

// ---------------------------------------------------------------------------
// Category Cache Tests
// ---------------------------------------------------------------------------

func TestCJAdapter_GetCategories(t *testing.T) {
	categoriesPayload := CJCategoryListResponse{
		CJResponse: CJResponse{Code: 200, Result: true},
		Data: []CJCategory{
			{CategoryID: "c1", CategoryName: "Electronics"},
			{CategoryID: "c2", CategoryName: "Toys", ParentID: "c1"},
		},
	}

	t.Run("call inside the TTL serves the cache without a network call", func(t *testing.T) {
		var fetches atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == cjPathCategoryList {
				fetches.Add(1)
				writeJSON(t, w, categoriesPayload)
			}
		}))
		defer server.Close()

		now := time.Now()
		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"}).
			WithClock(func() time.Time { return now })

		first, err := adapter.GetCategories(context.Background())
		require.NoError(t, err)
		assert.False(t, first.Stale)
		assert.Len(t, first.Categories, 2)

		now = now.Add(10 * time.Minute)

		second, err := adapter.GetCategories(context.Background())
		require.NoError(t, err)
		assert.False(t, second.Stale)
		assert.Equal(t, int32(1), fetches.Load())
	})

	t.Run("call after the TTL triggers a fresh fetch", func(t *testing.T) {
		var fetches atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == cjPathCategoryList {
				fetches.Add(1)
				writeJSON(t, w, categoriesPayload)
			}
		}))
		defer server.Close()

		now := time.Now()
		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"}).
			WithClock(func() time.Time { return now })

		_, err := adapter.GetCategories(context.Background())
		require.NoError(t, err)

		now = now.Add(61 * time.Minute)

		_, err = adapter.GetCategories(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(2), fetches.Load())
	})

	t.Run("rate limited refresh serves the cached list flagged stale", func(t *testing.T) {
		var fetches atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != cjPathCategoryList {
				return
			}
			if fetches.Add(1) == 1 {
				writeJSON(t, w, categoriesPayload)
				return
			}
			writeJSON(t, w, CJCategoryListResponse{
				CJResponse: CJResponse{Code: 1600200, Message: "too many requests"},
			})
		}))
		defer server.Close()

		now := time.Now()
		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"}).
			WithClock(func() time.Time { return now })

		_, err := adapter.GetCategories(context.Background())
		require.NoError(t, err)

		now = now.Add(61 * time.Minute)

		stale, err := adapter.GetCategories(context.Background())
		require.NoError(t, err)
		assert.True(t, stale.Stale)
		assert.Len(t, stale.Categories, 2)
	})

	t.Run("rate limit without a cache propagates the error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, CJCategoryListResponse{
				CJResponse: CJResponse{Code: 1600200, Message: "too many requests"},
			})
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.GetCategories(context.Background())
		assert.ErrorIs(t, err, integration.ErrRateLimited)
	})
}

// ---------------------------------------------------------------------------
// Order Operation Tests
// ---------------------------------------------------------------------------

func TestCJAdapter_CreateOrder(t *testing.T) {
	t.Run("normalizes product ids on the wire", func(t *testing.T) {
		var received CJCreateOrderRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, cjPathOrderCreate, r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			writeJSON(t, w, CJCreateOrderResponse{
				CJResponse: CJResponse{Code: 200, Result: true},
				Data:       &CJCreateOrderData{OrderID: "CJ-77001"},
			})
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		result, err := adapter.CreateOrder(context.Background(), &integration.CreateOrderRequest{
			OrderNumber: "SO-1001",
			Recipient: integration.ShippingRecipient{
				Name: "Jane Buyer", Address: "1 Main St", City: "Springfield", Country: "US",
			},
			Items: []integration.CreateOrderItem{
				{ExternalProductID: "pid:pid:123:null", Quantity: 2},
				{ExternalProductID: "456", Quantity: 1},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "CJ-77001", result.ExternalOrderID)

		require.Len(t, received.ProductList, 2)
		assert.Equal(t, "pid:123:null", received.ProductList[0].PID)
		assert.Equal(t, 2, received.ProductList[0].Quantity)
		assert.Equal(t, "pid:456:null", received.ProductList[1].PID)
	})

	t.Run("rejects an empty request before any network call", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no HTTP call expected for an invalid request")
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.CreateOrder(context.Background(), &integration.CreateOrderRequest{})
		assert.ErrorIs(t, err, integration.ErrConfiguration)
	})

	t.Run("missing order id in response is malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, CJCreateOrderResponse{
				CJResponse: CJResponse{Code: 200, Result: true},
			})
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.CreateOrder(context.Background(), &integration.CreateOrderRequest{
			OrderNumber: "SO-1001",
			Items:       []integration.CreateOrderItem{{ExternalProductID: "123", Quantity: 1}},
		})
		assert.ErrorIs(t, err, integration.ErrMalformedResponse)
	})
}

func TestCJAdapter_GetProductDetail(t *testing.T) {
	t.Run("queries with the bare numeric id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "987", r.URL.Query().Get("pid"))
			writeJSON(t, w, CJProductQueryResponse{
				CJResponse: CJResponse{Code: 200, Result: true},
				Data: &CJProduct{
					PID:         "987",
					ProductName: "Widget",
					SellPrice:   "12.50",
					Currency:    "USD",
				},
			})
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		detail, err := adapter.GetProductDetail(context.Background(), "pid:987:null")
		require.NoError(t, err)
		assert.Equal(t, "pid:987:null", detail.ExternalProductID)
		assert.Equal(t, "Widget", detail.Name)
		assert.True(t, detail.SellPrice.Equal(decimal.RequireFromString("12.50")))
	})

	t.Run("empty payload maps to ErrProductNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, CJProductQueryResponse{
				CJResponse: CJResponse{Code: 200, Result: true},
			})
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		_, err := adapter.GetProductDetail(context.Background(), "987")
		assert.ErrorIs(t, err, integration.ErrProductNotFound)
	})
}

func TestCJAdapter_GetOrderStatus(t *testing.T) {
	t.Run("returns tracking data with the mapped status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "EXT-9", r.URL.Query().Get("orderId"))
			writeJSON(t, w, CJOrderStatusResponse{
				CJResponse: CJResponse{Code: 200, Result: true},
				Data: &CJOrderStatusData{
					OrderID:      "EXT-9",
					OrderStatus:  "InTransit",
					TrackNumber:  "TRK-555",
					TrackURL:     "https://track.example.com/TRK-555",
					LogisticName: "YunExpress",
				},
			})
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server.URL, &fakeTokenRepo{access: "token"})

		result, err := adapter.GetOrderStatus(context.Background(), "EXT-9")
		require.NoError(t, err)
		assert.Equal(t, fulfillment.SupplierOrderStatusShipped, result.Status)
		assert.Equal(t, "InTransit", result.VendorStatus)
		assert.Equal(t, "TRK-555", result.Tracking.TrackingNumber)
		assert.Equal(t, "YunExpress", result.Tracking.Carrier)
	})
}

// ---------------------------------------------------------------------------
// Registry Tests
// ---------------------------------------------------------------------------

func TestRegistry_GatewayFor(t *testing.T) {
	opts := RegistryOptions{
		RequestTimeout:   5 * time.Second,
		RequestSpacing:   time.Millisecond,
		MinAuthInterval:  5 * time.Minute,
		CategoryCacheTTL: time.Hour,
	}

	t.Run("caches one gateway instance per supplier", func(t *testing.T) {
		registry := NewRegistry(opts, &fakeTokenRepo{}, nil, zap.NewNop())
		supplier := newTestSupplier(t, "https://api.example.com")

		first, err := registry.GatewayFor(context.Background(), supplier)
		require.NoError(t, err)
		second, err := registry.GatewayFor(context.Background(), supplier)
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("rejects suppliers without credentials", func(t *testing.T) {
		registry := NewRegistry(opts, &fakeTokenRepo{}, nil, zap.NewNop())
		supplier, err := partner.NewSupplier("BARE", "No Credentials", partner.SupplierTypeCJ)
		require.NoError(t, err)

		_, err = registry.GatewayFor(context.Background(), supplier)
		assert.ErrorIs(t, err, integration.ErrConfiguration)
	})

	t.Run("evict forces a rebuild", func(t *testing.T) {
		registry := NewRegistry(opts, &fakeTokenRepo{}, nil, zap.NewNop())
		supplier := newTestSupplier(t, "https://api.example.com")

		first, err := registry.GatewayFor(context.Background(), supplier)
		require.NoError(t, err)

		registry.Evict(supplier.ID)

		second, err := registry.GatewayFor(context.Background(), supplier)
		require.NoError(t, err)
		assert.NotSame(t, first, second)
	})

	t.Run("supported types cover both families", func(t *testing.T) {
		registry := NewRegistry(opts, &fakeTokenRepo{}, nil, zap.NewNop())
		assert.ElementsMatch(t,
			[]partner.SupplierType{partner.SupplierTypeCJ, partner.SupplierTypeGeneric},
			registry.SupportedTypes())
	})
}
