package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/events"
	"storefront/models"
	"storefront/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCancellationWindowExpired    = errors.New("cancellation window has expired")
	ErrCancellationBlockedByPayment = errors.New("order has a completed payment")
	ErrCancellationBlocked          = errors.New("order can no longer be cancelled")
)

// cancellableStatuses are the states a user may still cancel from. Once an
// order is on the way it belongs to fulfilment.
var cancellableStatuses = map[string]bool{
	models.OrderStatusPending: true,
	models.OrderStatusPlaced:  true,
	models.OrderStatusPacked:  true,
}

// adminStatuses are the targets an admin override may set.
var adminStatuses = map[string]bool{
	models.OrderStatusPending:   true,
	models.OrderStatusPacked:    true,
	models.OrderStatusOnTheWay:  true,
	models.OrderStatusDelivered: true,
	models.OrderStatusConfirmed: true,
	models.OrderStatusCancelled: true,
}

// OrderService owns order lifecycle after checkout: listings, user
// cancellation, admin overrides and rider assignment.
type OrderService interface {
	GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.OrderDetailResponse, *ServiceError)
	ListUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) (*models.OrderListResponse, *ServiceError)
	ListAllOrders(ctx context.Context, page, limit int) (*models.OrderListResponse, *ServiceError)
	CancelOrder(ctx context.Context, orderID, userID uuid.UUID) *ServiceError
	AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, status string, adminID uuid.UUID) *ServiceError
	AssignRider(ctx context.Context, orderID, riderID, adminID uuid.UUID) *ServiceError
}

type orderServiceImpl struct {
	tx        TxRunner
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	delivery  repository.DeliveryRepository
	notifier  Notifier
	publisher events.Publisher

	cancelWindow time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewOrderService creates a new OrderService. cancelWindow bounds how long
// after creation a user may cancel.
func NewOrderService(
	tx TxRunner,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	delivery repository.DeliveryRepository,
	notifier Notifier,
	publisher events.Publisher,
	cancelWindow time.Duration,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		tx:           tx,
		orders:       orders,
		payments:     payments,
		delivery:     delivery,
		notifier:     notifier,
		publisher:    publisher,
		cancelWindow: cancelWindow,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *orderServiceImpl) canCancel(order *models.Order, now time.Time) bool {
	if !cancellableStatuses[order.Status] {
		return false
	}
	if now.Sub(order.CreatedAt) > s.cancelWindow {
		return false
	}
	if order.Payment != nil && order.Payment.Status == models.PaymentStatusPaid {
		return false
	}
	return true
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.OrderDetailResponse, *ServiceError) {
	order, err := s.orders.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}

	logs, err := s.orders.FindStatusLogs(ctx, orderID)
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order history"}
	}

	return &models.OrderDetailResponse{
		Order:     order,
		CanCancel: s.canCancel(order, s.now()),
		Logs:      logs,
	}, nil
}

func (s *orderServiceImpl) ListUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) (*models.OrderListResponse, *ServiceError) {
	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch orders"}
	}
	return buildOrderList(orders, total, page, limit), nil
}

func (s *orderServiceImpl) ListAllOrders(ctx context.Context, page, limit int) (*models.OrderListResponse, *ServiceError) {
	orders, total, err := s.orders.FindAll(ctx, page, limit)
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch orders"}
	}
	return buildOrderList(orders, total, page, limit), nil
}

func buildOrderList(orders []models.Order, total int64, page, limit int) *models.OrderListResponse {
	totalPages := (total + int64(limit) - 1) / int64(limit)
	return &models.OrderListResponse{
		Orders: orders,
		Meta: models.ListMetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  totalPages,
			HasMore:     int64(page) < totalPages,
		},
	}
}

// CancelOrder cancels the caller's own order. The order row is locked for the
// check-then-update so a settlement landing at the same moment cannot slip a
// paid payment past the guard.
func (s *orderServiceImpl) CancelOrder(ctx context.Context, orderID, userID uuid.UUID) *ServiceError {
	var cancelled *models.Order
	txErr := s.tx.InTx(ctx, func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		payments := s.payments.WithTx(tx)

		order, err := orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return gorm.ErrRecordNotFound
		}
		if !cancellableStatuses[order.Status] {
			return ErrCancellationBlocked
		}
		if s.now().Sub(order.CreatedAt) > s.cancelWindow {
			return ErrCancellationWindowExpired
		}
		payment, err := payments.FindByOrderID(ctx, order.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if payment != nil && payment.Status == models.PaymentStatusPaid {
			return ErrCancellationBlockedByPayment
		}

		if err := orders.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled); err != nil {
			return err
		}
		if err := orders.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:   order.ID,
			Status:    models.OrderStatusCancelled,
			Notes:     "Cancelled by user",
			UpdatedBy: &userID,
		}); err != nil {
			return err
		}
		order.Status = models.OrderStatusCancelled
		cancelled = order
		return nil
	})
	if txErr != nil {
		switch {
		case errors.Is(txErr, gorm.ErrRecordNotFound):
			return &ServiceError{StatusCode: 404, Message: "Order not found"}
		case errors.Is(txErr, ErrCancellationBlocked):
			return &ServiceError{StatusCode: 409, Message: ErrCancellationBlocked.Error()}
		case errors.Is(txErr, ErrCancellationWindowExpired):
			return &ServiceError{StatusCode: 409, Message: ErrCancellationWindowExpired.Error()}
		case errors.Is(txErr, ErrCancellationBlockedByPayment):
			return &ServiceError{StatusCode: 409, Message: ErrCancellationBlockedByPayment.Error()}
		default:
			s.logger.Error("order cancellation failed",
				zap.String("order_id", orderID.String()),
				zap.Error(txErr))
			return &ServiceError{StatusCode: 500, Message: "Failed to cancel order"}
		}
	}

	s.publishStatus(ctx, cancelled)
	return nil
}

// AdminUpdateStatus force-sets an order status. No transition matrix applies
// here, admins own the escape hatch, but every change still lands in the log.
func (s *orderServiceImpl) AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, status string, adminID uuid.UUID) *ServiceError {
	if !adminStatuses[status] {
		return &ServiceError{StatusCode: 400, Message: "Unknown order status"}
	}

	var updated *models.Order
	var oldStatus string
	txErr := s.tx.InTx(ctx, func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		order, err := orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		oldStatus = order.Status
		if err := orders.UpdateStatus(ctx, order.ID, status); err != nil {
			return err
		}
		if err := orders.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:   order.ID,
			Status:    status,
			Notes:     fmt.Sprintf("Admin updated from %s to %s", oldStatus, status),
			UpdatedBy: &adminID,
		}); err != nil {
			return err
		}
		order.Status = status
		updated = order
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		s.logger.Error("admin status update failed",
			zap.String("order_id", orderID.String()),
			zap.Error(txErr))
		return &ServiceError{StatusCode: 500, Message: "Failed to update order status"}
	}

	s.notifier.NotifyStatusChanged(ctx, updated, oldStatus)
	s.publishStatus(ctx, updated)
	return nil
}

func (s *orderServiceImpl) AssignRider(ctx context.Context, orderID, riderID, adminID uuid.UUID) *ServiceError {
	rider, err := s.delivery.FindRider(ctx, riderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ServiceError{StatusCode: 404, Message: "Rider not found"}
		}
		return &ServiceError{StatusCode: 500, Message: "Failed to fetch rider"}
	}

	txErr := s.tx.InTx(ctx, func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		order, err := orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := orders.AssignRider(ctx, order.ID, rider.ID); err != nil {
			return err
		}
		return orders.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:   order.ID,
			Status:    order.Status,
			Notes:     "Rider assigned: " + rider.Name,
			UpdatedBy: &adminID,
		})
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		s.logger.Error("rider assignment failed",
			zap.String("order_id", orderID.String()),
			zap.Error(txErr))
		return &ServiceError{StatusCode: 500, Message: "Failed to assign rider"}
	}
	return nil
}

func (s *orderServiceImpl) publishStatus(ctx context.Context, order *models.Order) {
	if err := s.publisher.PublishOrderStatus(ctx, models.OrderStatusEvent{
		EventType: "order.status_changed",
		OrderID:   order.ID.String(),
		UserID:    order.UserID.String(),
		Status:    order.Status,
		Timestamp: s.now().UTC(),
	}); err != nil {
		s.logger.Warn("order status event publish failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}
}
