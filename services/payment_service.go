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

// PaymentService starts or retries payment for an existing order, covering
// carts that checked out while a provider was down and customers who switch
// methods.
type PaymentService interface {
	StartPayment(ctx context.Context, orderID, userID uuid.UUID, req *models.StartPaymentRequest) (*models.Payment, *PaymentInstructions, *ServiceError)
	ListPayments(ctx context.Context, status string, limit int) ([]models.Payment, *ServiceError)
}

type paymentServiceImpl struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	adapters map[string]PaymentAdapter
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	adapters map[string]PaymentAdapter,
	logger *zap.Logger,
) PaymentService {
	return &paymentServiceImpl{orders: orders, payments: payments, adapters: adapters, logger: logger}
}

func (s *paymentServiceImpl) StartPayment(ctx context.Context, orderID, userID uuid.UUID, req *models.StartPaymentRequest) (*models.Payment, *PaymentInstructions, *ServiceError) {
	adapter, ok := s.adapters[req.Method]
	if !ok {
		return nil, nil, &ServiceError{StatusCode: 400, Message: "Unsupported payment method"}
	}
	if req.Method == models.PaymentMethodMpesa && req.Phone == "" {
		return nil, nil, &ServiceError{StatusCode: 400, Message: "Phone number is required for M-Pesa payments"}
	}

	order, err := s.orders.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		return nil, nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, nil, &ServiceError{StatusCode: 409, Message: "Order is cancelled"}
	}

	existing, err := s.payments.FindByOrderID(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch payment"}
	}
	if existing != nil && existing.Status == models.PaymentStatusPaid {
		return nil, nil, &ServiceError{StatusCode: 409, Message: "Order is already paid"}
	}

	payment, instructions, err := adapter.BeginSettlement(ctx, order, req.Phone)
	if err != nil {
		s.logger.Error("payment retry failed",
			zap.String("order_id", order.ID.String()),
			zap.String("method", req.Method),
			zap.Error(err))
		return payment, nil, &ServiceError{StatusCode: 502, Message: "Payment could not be started"}
	}
	return payment, instructions, nil
}

func (s *paymentServiceImpl) ListPayments(ctx context.Context, status string, limit int) ([]models.Payment, *ServiceError) {
	payments, err := s.payments.FindAll(ctx, status, limit)
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to list payments"}
	}
	return payments, nil
}
