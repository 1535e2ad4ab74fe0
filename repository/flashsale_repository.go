package repository

import (
	"context"
	"time"

	"storefront/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FlashSaleRepository defines flash-sale and price-override data access.
type FlashSaleRepository interface {
	WithTx(tx *gorm.DB) FlashSaleRepository
	Create(ctx context.Context, sale *models.FlashSale) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.FlashSale, error)
	// CountOverlapping counts active sales for the product whose
	// [starts_at, ends_at) window intersects the given one.
	CountOverlapping(ctx context.Context, productID uuid.UUID, startsAt, endsAt time.Time) (int64, error)
	FindExpired(ctx context.Context, now time.Time) ([]models.FlashSale, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	CreateOverride(ctx context.Context, override *models.PriceOverride) error
	FindOverrideBySaleID(ctx context.Context, saleID uuid.UUID) (*models.PriceOverride, error)
	ReleaseOverride(ctx context.Context, overrideID uuid.UUID, at time.Time) error
}

// GormFlashSaleRepository implements FlashSaleRepository using GORM.
type GormFlashSaleRepository struct {
	db *gorm.DB
}

// NewGormFlashSaleRepository creates a new GormFlashSaleRepository.
func NewGormFlashSaleRepository(db *gorm.DB) FlashSaleRepository {
	return &GormFlashSaleRepository{db: db}
}

func (r *GormFlashSaleRepository) WithTx(tx *gorm.DB) FlashSaleRepository {
	if tx == nil {
		return r
	}
	return &GormFlashSaleRepository{db: tx}
}

func (r *GormFlashSaleRepository) Create(ctx context.Context, sale *models.FlashSale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *GormFlashSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.FlashSale, error) {
	var sale models.FlashSale
	if err := r.db.WithContext(ctx).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *GormFlashSaleRepository) CountOverlapping(ctx context.Context, productID uuid.UUID, startsAt, endsAt time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FlashSale{}).
		Where("product_id = ? AND is_active = ? AND starts_at < ? AND ends_at > ?",
			productID, true, endsAt, startsAt).
		Count(&count).Error
	return count, err
}

func (r *GormFlashSaleRepository) FindExpired(ctx context.Context, now time.Time) ([]models.FlashSale, error) {
	var sales []models.FlashSale
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND ends_at <= ?", true, now).
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *GormFlashSaleRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.FlashSale{}).
		Where("id = ?", id).
		Update("is_active", false).
		Error
}

func (r *GormFlashSaleRepository) CreateOverride(ctx context.Context, override *models.PriceOverride) error {
	return r.db.WithContext(ctx).Create(override).Error
}

func (r *GormFlashSaleRepository) FindOverrideBySaleID(ctx context.Context, saleID uuid.UUID) (*models.PriceOverride, error) {
	var override models.PriceOverride
	err := r.db.WithContext(ctx).
		First(&override, "flash_sale_id = ? AND released_at IS NULL", saleID).Error
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *GormFlashSaleRepository) ReleaseOverride(ctx context.Context, overrideID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PriceOverride{}).
		Where("id = ?", overrideID).
		Update("released_at", at).
		Error
}
