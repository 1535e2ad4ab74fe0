package services

import (
	"context"
	"errors"

	"storefront/events"
	"storefront/models"
	"storefront/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// confirmableStatuses are the order states a successful settlement may move
// to confirmed. A cancelled order keeps its paid payment on record but is
// never revived.
var confirmableStatuses = map[string]bool{
	models.OrderStatusPending:   true,
	models.OrderStatusPlaced:    true,
	models.OrderStatusConfirmed: true,
}

// SettlementService reconciles provider callbacks against payment records.
// Settle is idempotent: replaying the same callback any number of times
// produces exactly one paid transition and one notification.
type SettlementService interface {
	Settle(ctx context.Context, event *SettlementEvent) error
}

type settlementServiceImpl struct {
	tx        TxRunner
	payments  repository.PaymentRepository
	orders    repository.OrderRepository
	notifier  Notifier
	publisher events.Publisher
	logger    *zap.Logger
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	tx TxRunner,
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	notifier Notifier,
	publisher events.Publisher,
	logger *zap.Logger,
) SettlementService {
	return &settlementServiceImpl{
		tx:        tx,
		payments:  payments,
		orders:    orders,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// Settle applies one settlement event. The payment row is locked before the
// idempotency check so two concurrent deliveries of the same callback
// serialize instead of both passing the check. Unresolvable events are
// acknowledged as no-ops; returning an error would only make the provider
// retry a callback that can never match.
func (s *settlementServiceImpl) Settle(ctx context.Context, event *SettlementEvent) error {
	var (
		settledOrder   *models.Order
		settledPayment *models.Payment
		notify         bool
	)

	txErr := s.tx.InTx(ctx, func(tx *gorm.DB) error {
		payments := s.payments.WithTx(tx)
		orders := s.orders.WithTx(tx)

		payment, err := s.resolvePayment(ctx, payments, event)
		if err != nil {
			return err
		}
		if payment == nil {
			s.logger.Warn("settlement event matched no payment, acknowledging",
				zap.String("reference", event.Reference),
				zap.String("order_id", event.OrderID))
			return nil
		}

		if payment.Status == models.PaymentStatusPaid {
			s.logger.Info("duplicate settlement callback skipped",
				zap.String("payment_id", payment.ID.String()))
			return nil
		}

		updates := map[string]interface{}{
			"raw_payload": string(event.Raw),
		}
		if payment.Reference == nil && event.Reference != "" {
			updates["reference"] = event.Reference
		}

		if !event.Succeeded {
			updates["status"] = models.PaymentStatusFailed
			return payments.Update(ctx, payment.ID, updates)
		}

		updates["status"] = models.PaymentStatusPaid
		if err := payments.Update(ctx, payment.ID, updates); err != nil {
			return err
		}
		payment.Status = models.PaymentStatusPaid

		order, err := orders.FindByIDForUpdate(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if confirmableStatuses[order.Status] {
			if order.Status != models.OrderStatusConfirmed {
				if err := orders.UpdateStatus(ctx, order.ID, models.OrderStatusConfirmed); err != nil {
					return err
				}
				if err := orders.AppendStatusLog(ctx, &models.OrderStatusLog{
					OrderID: order.ID,
					Status:  models.OrderStatusConfirmed,
					Notes:   "Payment confirmed",
				}); err != nil {
					return err
				}
				order.Status = models.OrderStatusConfirmed
			}
		} else {
			s.logger.Warn("payment settled for non-confirmable order, status untouched",
				zap.String("order_id", order.ID.String()),
				zap.String("status", order.Status))
		}

		settledOrder = order
		settledPayment = payment
		notify = true
		return nil
	})
	if txErr != nil {
		s.logger.Error("settlement transaction failed",
			zap.String("reference", event.Reference),
			zap.Error(txErr))
		return txErr
	}

	if notify {
		s.notifier.NotifyPaymentSettled(ctx, settledOrder, settledPayment)
		if err := s.publisher.PublishPayment(ctx, models.PaymentEvent{
			EventType: "payment.settled",
			OrderID:   settledOrder.ID.String(),
			PaymentID: settledPayment.ID.String(),
			Method:    settledPayment.Method,
			Amount:    settledPayment.Amount,
			Status:    settledPayment.Status,
			Timestamp: settledPayment.UpdatedAt.UTC(),
		}); err != nil {
			s.logger.Warn("payment event publish failed",
				zap.String("order_id", settledOrder.ID.String()),
				zap.Error(err))
		}
	}
	return nil
}

// resolvePayment finds the payment for an event, first by provider reference,
// then by the order id carried in provider metadata. The second path covers
// payments initiated while the provider was unreachable and left without a
// reference. nil, nil means unresolvable.
func (s *settlementServiceImpl) resolvePayment(ctx context.Context, payments repository.PaymentRepository, event *SettlementEvent) (*models.Payment, error) {
	if event.Reference != "" {
		payment, err := payments.FindByReferenceForUpdate(ctx, event.Reference)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if event.OrderID != "" {
		orderID, err := uuid.Parse(event.OrderID)
		if err != nil {
			return nil, nil
		}
		payment, err := payments.FindByOrderIDForUpdate(ctx, orderID)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}
