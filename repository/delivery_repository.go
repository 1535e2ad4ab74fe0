package repository

import (
	"context"

	"storefront/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryRepository defines lookups for zones, addresses and riders.
type DeliveryRepository interface {
	FindZone(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error)
	ListZones(ctx context.Context) ([]models.DeliveryZone, error)
	FindAddressByIDAndUserID(ctx context.Context, id, userID uuid.UUID) (*models.DeliveryAddress, error)
	FindRider(ctx context.Context, id uuid.UUID) (*models.Rider, error)
}

// GormDeliveryRepository implements DeliveryRepository using GORM.
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewGormDeliveryRepository creates a new GormDeliveryRepository.
func NewGormDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

func (r *GormDeliveryRepository) FindZone(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	var zone models.DeliveryZone
	if err := r.db.WithContext(ctx).First(&zone, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *GormDeliveryRepository) ListZones(ctx context.Context) ([]models.DeliveryZone, error) {
	var zones []models.DeliveryZone
	if err := r.db.WithContext(ctx).Order("name").Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

func (r *GormDeliveryRepository) FindAddressByIDAndUserID(ctx context.Context, id, userID uuid.UUID) (*models.DeliveryAddress, error) {
	var addr models.DeliveryAddress
	if err := r.db.WithContext(ctx).First(&addr, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *GormDeliveryRepository) FindRider(ctx context.Context, id uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	if err := r.db.WithContext(ctx).First(&rider, "id = ? AND is_active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &rider, nil
}
