package partner

import (
	"strings"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SupplierStatus represents the status of a supplier
type SupplierStatus string

const (
	SupplierStatusActive   SupplierStatus = "active"
	SupplierStatusInactive SupplierStatus = "inactive"
)

// SupplierType identifies the API family a supplier speaks. The fulfillment
// gateway registry resolves the concrete adapter from this tag, never from
// the endpoint URL.
type SupplierType string

const (
	// SupplierTypeCJ is the CJ Dropshipping API family
	SupplierTypeCJ SupplierType = "cjdropshipping"
	// SupplierTypeGeneric is a plain REST supplier with no vendor quirks
	SupplierTypeGeneric SupplierType = "generic"
)

// IsValid returns true if the supplier type is a known adapter family
func (t SupplierType) IsValid() bool {
	switch t {
	case SupplierTypeCJ, SupplierTypeGeneric:
		return true
	default:
		return false
	}
}

// String returns the string representation of SupplierType
func (t SupplierType) String() string {
	return string(t)
}

// Supplier represents an external dropshipping fulfillment partner.
// It is the aggregate root for supplier configuration and token state.
type Supplier struct {
	shared.BaseAggregateRoot
	Code              string         `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name              string         `gorm:"type:varchar(200);not null"`
	Type              SupplierType   `gorm:"type:varchar(30);not null;default:'generic'"`
	Status            SupplierStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	APIEmail          string         `gorm:"type:varchar(200)"`
	APIKey            string         `gorm:"type:varchar(500)"`
	APIEndpoint       string         `gorm:"type:varchar(500)"`
	AccessToken       string         `gorm:"type:text"`
	RefreshToken      string         `gorm:"type:text"`
	AccessExpiresAt   *time.Time     `gorm:"index"`
	RefreshExpiresAt  *time.Time
	LastAuthAttemptAt *time.Time
	AverageShipping   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Flat shipping estimate per supplier order
	Currency          string          `gorm:"type:varchar(10);not null;default:'USD'"`
	Notes             string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Supplier) TableName() string {
	return "suppliers"
}

// NewSupplier creates a new supplier with required fields
func NewSupplier(code, name string, supplierType SupplierType) (*Supplier, error) {
	if err := validateSupplierCode(code); err != nil {
		return nil, err
	}
	if err := validateSupplierName(name); err != nil {
		return nil, err
	}
	if !supplierType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Invalid supplier type")
	}

	supplier := &Supplier{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Type:              supplierType,
		Status:            SupplierStatusActive,
		AverageShipping:   decimal.Zero,
		Currency:          "USD",
	}

	supplier.AddDomainEvent(NewSupplierCreatedEvent(supplier))

	return supplier, nil
}

// SetCredentials sets the API credentials used to authenticate with the supplier
func (s *Supplier) SetCredentials(apiEmail, apiKey, apiEndpoint string) error {
	if apiKey == "" {
		return shared.NewDomainError("INVALID_API_KEY", "API key cannot be empty")
	}
	if apiEndpoint == "" {
		return shared.NewDomainError("INVALID_API_ENDPOINT", "API endpoint cannot be empty")
	}
	if !strings.HasPrefix(apiEndpoint, "http://") && !strings.HasPrefix(apiEndpoint, "https://") {
		return shared.NewDomainError("INVALID_API_ENDPOINT", "API endpoint must be an HTTP(S) URL")
	}

	s.APIEmail = apiEmail
	s.APIKey = apiKey
	s.APIEndpoint = strings.TrimSuffix(apiEndpoint, "/")
	s.Touch()
	s.IncrementVersion()

	return nil
}

// HasCredentials returns true if the supplier can be called over its API
func (s *Supplier) HasCredentials() bool {
	return s.APIKey != "" && s.APIEndpoint != ""
}

// IsCallable returns true if API calls to this supplier are allowed
func (s *Supplier) IsCallable() bool {
	return s.Status == SupplierStatusActive && s.HasCredentials()
}

// UpdateTokens replaces the stored token pair after an authentication or
// refresh. Expiries may be nil when the vendor response carried none.
func (s *Supplier) UpdateTokens(accessToken, refreshToken string, accessExpires, refreshExpires *time.Time) error {
	if accessToken == "" {
		return shared.NewDomainError("INVALID_TOKEN", "Access token cannot be empty")
	}

	now := time.Now()
	s.AccessToken = accessToken
	s.RefreshToken = refreshToken
	s.AccessExpiresAt = accessExpires
	s.RefreshExpiresAt = refreshExpires
	s.LastAuthAttemptAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()

	s.AddDomainEvent(NewSupplierTokensUpdatedEvent(s))

	return nil
}

// RecordAuthAttempt stamps the last full-authentication attempt.
// It is called even when the login fails so the backoff window holds.
func (s *Supplier) RecordAuthAttempt(at time.Time) {
	s.LastAuthAttemptAt = &at
	s.Touch()
	s.IncrementVersion()
}

// SetAverageShipping sets the flat per-order shipping estimate
func (s *Supplier) SetAverageShipping(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_SHIPPING", "Average shipping cannot be negative")
	}
	s.AverageShipping = amount
	s.Touch()
	s.IncrementVersion()
	return nil
}

// Activate activates the supplier
func (s *Supplier) Activate() error {
	if s.Status == SupplierStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Supplier is already active")
	}

	oldStatus := s.Status
	s.Status = SupplierStatusActive
	s.Touch()
	s.IncrementVersion()

	s.AddDomainEvent(NewSupplierStatusChangedEvent(s, oldStatus, SupplierStatusActive))

	return nil
}

// Deactivate deactivates the supplier. Open supplier orders are left as-is;
// fan-out and reconciliation skip inactive suppliers.
func (s *Supplier) Deactivate() error {
	if s.Status == SupplierStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Supplier is already inactive")
	}

	oldStatus := s.Status
	s.Status = SupplierStatusInactive
	s.Touch()
	s.IncrementVersion()

	s.AddDomainEvent(NewSupplierStatusChangedEvent(s, oldStatus, SupplierStatusInactive))

	return nil
}

// IsActive returns true if the supplier is active
func (s *Supplier) IsActive() bool {
	return s.Status == SupplierStatusActive
}

func validateSupplierCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Supplier code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Supplier code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Supplier code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateSupplierName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Supplier name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Supplier name cannot exceed 200 characters")
	}
	return nil
}
