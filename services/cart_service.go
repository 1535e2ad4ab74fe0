package services

import (
	"context"
	"errors"

	"storefront/models"
	"storefront/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CartService manages the pre-checkout cart in redis. It validates products
// against the catalog on write but never reserves stock; reservation is
// checkout's job.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, *ServiceError)
	AddItem(ctx context.Context, userID uuid.UUID, req *models.AddCartItemRequest) (*models.Cart, *ServiceError)
	UpdateItem(ctx context.Context, userID uuid.UUID, req *models.UpdateCartItemRequest) (*models.Cart, *ServiceError)
	ClearCart(ctx context.Context, userID uuid.UUID) *ServiceError
}

type cartServiceImpl struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *zap.Logger) CartService {
	return &cartServiceImpl{carts: carts, products: products, logger: logger}
}

func (s *cartServiceImpl) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, *ServiceError) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		s.logger.Error("cart fetch failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch cart"}
	}
	if cart == nil {
		cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}
	return cart, nil
}

func (s *cartServiceImpl) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddCartItemRequest) (*models.Cart, *ServiceError) {
	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Product not found"}
		}
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch product"}
	}
	if !product.IsActive {
		return nil, &ServiceError{StatusCode: 400, Message: "Product is not available"}
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	cart, svcErr := s.GetCart(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == req.ProductID {
			cart.Items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, models.CartItem{ProductID: req.ProductID, Quantity: quantity})
	}

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		s.logger.Error("cart save failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to update cart"}
	}
	return cart, nil
}

// UpdateItem sets a line's quantity; zero removes the line.
func (s *cartServiceImpl) UpdateItem(ctx context.Context, userID uuid.UUID, req *models.UpdateCartItemRequest) (*models.Cart, *ServiceError) {
	cart, svcErr := s.GetCart(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	items := cart.Items[:0]
	found := false
	for _, item := range cart.Items {
		if item.ProductID == req.ProductID {
			found = true
			if req.Quantity > 0 {
				item.Quantity = req.Quantity
				items = append(items, item)
			}
			continue
		}
		items = append(items, item)
	}
	if !found {
		return nil, &ServiceError{StatusCode: 404, Message: "Item not in cart"}
	}
	cart.Items = items

	if len(cart.Items) == 0 {
		if err := s.carts.DeleteCart(ctx, userID); err != nil {
			return nil, &ServiceError{StatusCode: 500, Message: "Failed to update cart"}
		}
		return cart, nil
	}

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		s.logger.Error("cart save failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to update cart"}
	}
	return cart, nil
}

func (s *cartServiceImpl) ClearCart(ctx context.Context, userID uuid.UUID) *ServiceError {
	if err := s.carts.DeleteCart(ctx, userID); err != nil {
		s.logger.Error("cart clear failed", zap.String("user_id", userID.String()), zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to clear cart"}
	}
	return nil
}
