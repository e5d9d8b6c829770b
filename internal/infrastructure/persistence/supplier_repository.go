package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/dropship/backend/internal/domain/partner"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSupplierRepository implements SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindByID finds a supplier by its ID
func (r *GormSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Supplier, error) {
	var supplier partner.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// FindByCode finds a supplier by its code
func (r *GormSupplierRepository) FindByCode(ctx context.Context, code string) (*partner.Supplier, error) {
	var supplier partner.Supplier
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &supplier, nil
}

// FindByStatus finds suppliers by status
func (r *GormSupplierRepository) FindByStatus(ctx context.Context, status partner.SupplierStatus) ([]partner.Supplier, error) {
	var suppliers []partner.Supplier
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("code ASC").
		Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// FindActive finds all active suppliers
func (r *GormSupplierRepository) FindActive(ctx context.Context) ([]partner.Supplier, error) {
	return r.FindByStatus(ctx, partner.SupplierStatusActive)
}

// FindByIDs finds multiple suppliers by their IDs
func (r *GormSupplierRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]partner.Supplier, error) {
	if len(ids) == 0 {
		return []partner.Supplier{}, nil
	}

	var suppliers []partner.Supplier
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// Save creates or updates a supplier
func (r *GormSupplierRepository) Save(ctx context.Context, supplier *partner.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

// UpdateTokenFields writes only the token columns for a supplier. A targeted
// update keeps concurrent token refreshes from clobbering unrelated edits.
func (r *GormSupplierRepository) UpdateTokenFields(ctx context.Context, supplier *partner.Supplier) error {
	result := r.db.WithContext(ctx).
		Model(&partner.Supplier{}).
		Where("id = ?", supplier.ID).
		Updates(map[string]interface{}{
			"access_token":         supplier.AccessToken,
			"refresh_token":        supplier.RefreshToken,
			"access_expires_at":    supplier.AccessExpiresAt,
			"refresh_expires_at":   supplier.RefreshExpiresAt,
			"last_auth_attempt_at": supplier.LastAuthAttemptAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormSupplierRepository implements SupplierRepository
var _ partner.SupplierRepository = (*GormSupplierRepository)(nil)
