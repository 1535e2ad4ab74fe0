package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientStock is matched with errors.Is against the typed
// InsufficientStockError that carries the product name.
var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError reports which product ran short.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ProductRepository defines catalog data access used by checkout and flash sales.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// ReserveStock locks the product row, verifies availability and decrements
	// stock. A nil stock means unlimited and passes without decrement.
	ReserveStock(ctx context.Context, productID uuid.UUID, quantity int) (*models.Product, error)
	UpdatePrice(ctx context.Context, productID uuid.UUID, price float64) error
}

// GormProductRepository implements ProductRepository using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository.
func NewGormProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ReserveStock takes a SELECT ... FOR UPDATE on the product row so two
// concurrent checkouts for the last unit serialize instead of overselling.
// Must run inside the checkout transaction.
func (r *GormProductRepository) ReserveStock(ctx context.Context, productID uuid.UUID, quantity int) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", productID).Error
	if err != nil {
		return nil, err
	}

	if !product.IsActive {
		return nil, &InsufficientStockError{ProductName: product.Name}
	}
	if product.Stock == nil {
		return &product, nil
	}
	if *product.Stock < quantity {
		return nil, &InsufficientStockError{ProductName: product.Name}
	}

	err = r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity)).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormProductRepository) UpdatePrice(ctx context.Context, productID uuid.UUID, price float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("price", price).
		Error
}
