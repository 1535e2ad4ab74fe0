package services_test

import (
	"context"
	"testing"

	"storefront/models"
	"storefront/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type settlementFixture struct {
	orders   *mockOrderRepo
	payments *mockPaymentRepo
	notifier *mockNotifier
	events   *mockPublisher
	service  services.SettlementService
}

func newSettlementFixture() *settlementFixture {
	f := &settlementFixture{
		orders:   newMockOrderRepo(),
		payments: newMockPaymentRepo(),
		notifier: &mockNotifier{},
		events:   &mockPublisher{},
	}
	logger, _ := zap.NewDevelopment()
	tx := newFakeTxRunner(f.orders, f.payments)
	f.service = services.NewSettlementService(tx, f.payments, f.orders, f.notifier, f.events, logger)
	return f
}

func (f *settlementFixture) seedPendingPayment(t *testing.T, orderStatus string, reference *string) (*models.Order, *models.Payment) {
	t.Helper()
	order := &models.Order{
		OrderNumber: "ORD-SETTLE",
		UserID:      uuid.New(),
		Status:      orderStatus,
		TotalAmount: 250,
	}
	require.NoError(t, f.orders.Create(context.Background(), order))

	payment := &models.Payment{
		OrderID:   order.ID,
		Method:    models.PaymentMethodMpesa,
		Reference: reference,
		Amount:    order.TotalAmount,
		Status:    models.PaymentStatusPending,
	}
	require.NoError(t, f.payments.Create(context.Background(), payment))
	return order, payment
}

func strPtr(s string) *string { return &s }

func TestSettleSuccessConfirmsOrder(t *testing.T) {
	f := newSettlementFixture()
	order, payment := f.seedPendingPayment(t, models.OrderStatusPlaced, strPtr("ws_CO_1"))

	err := f.service.Settle(context.Background(), &services.SettlementEvent{
		Reference: "ws_CO_1",
		Succeeded: true,
		Raw:       []byte(`{"ResultCode":0}`),
	})
	require.NoError(t, err)

	gotPayment, _ := f.payments.FindByReferenceForUpdate(context.Background(), "ws_CO_1")
	assert.Equal(t, models.PaymentStatusPaid, gotPayment.Status)
	require.NotNil(t, gotPayment.RawPayload)
	assert.Contains(t, *gotPayment.RawPayload, "ResultCode")

	gotOrder, _ := f.orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusConfirmed, gotOrder.Status)

	logs, _ := f.orders.FindStatusLogs(context.Background(), order.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, "Payment confirmed", logs[0].Notes)

	assert.Equal(t, 1, f.notifier.settlements)
	require.Len(t, f.events.payment, 1)
	assert.Equal(t, payment.ID.String(), f.events.payment[0].PaymentID)
}

func TestSettleDuplicateCallbackIsIdempotent(t *testing.T) {
	f := newSettlementFixture()
	order, _ := f.seedPendingPayment(t, models.OrderStatusPlaced, strPtr("ws_CO_2"))

	event := &services.SettlementEvent{
		Reference: "ws_CO_2",
		Succeeded: true,
		Raw:       []byte(`{}`),
	}
	require.NoError(t, f.service.Settle(context.Background(), event))
	require.NoError(t, f.service.Settle(context.Background(), event))

	gotOrder, _ := f.orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusConfirmed, gotOrder.Status)

	// One paid transition, one log, one notification.
	logs, _ := f.orders.FindStatusLogs(context.Background(), order.ID)
	assert.Len(t, logs, 1)
	assert.Equal(t, 1, f.notifier.settlements)
	assert.Len(t, f.events.payment, 1)
}

func TestSettleFailureLeavesOrderUntouched(t *testing.T) {
	f := newSettlementFixture()
	order, _ := f.seedPendingPayment(t, models.OrderStatusPlaced, strPtr("ws_CO_3"))

	err := f.service.Settle(context.Background(), &services.SettlementEvent{
		Reference: "ws_CO_3",
		Succeeded: false,
		Raw:       []byte(`{"ResultCode":1032}`),
	})
	require.NoError(t, err)

	gotPayment, _ := f.payments.FindByReferenceForUpdate(context.Background(), "ws_CO_3")
	assert.Equal(t, models.PaymentStatusFailed, gotPayment.Status)

	gotOrder, _ := f.orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusPlaced, gotOrder.Status)
	assert.Equal(t, 0, f.notifier.settlements)
}

func TestSettleUnresolvableIsAcked(t *testing.T) {
	f := newSettlementFixture()

	err := f.service.Settle(context.Background(), &services.SettlementEvent{
		Reference: "never-seen",
		OrderID:   uuid.New().String(),
		Succeeded: true,
		Raw:       []byte(`{}`),
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, f.notifier.settlements)
	assert.Empty(t, f.events.payment)
}

func TestSettleCancelledOrderNotRevived(t *testing.T) {
	f := newSettlementFixture()
	order, _ := f.seedPendingPayment(t, models.OrderStatusCancelled, strPtr("ws_CO_4"))

	err := f.service.Settle(context.Background(), &services.SettlementEvent{
		Reference: "ws_CO_4",
		Succeeded: true,
		Raw:       []byte(`{}`),
	})
	require.NoError(t, err)

	// Money moved, so the payment record says paid, but the order stays dead.
	gotPayment, _ := f.payments.FindByReferenceForUpdate(context.Background(), "ws_CO_4")
	assert.Equal(t, models.PaymentStatusPaid, gotPayment.Status)

	gotOrder, _ := f.orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusCancelled, gotOrder.Status)

	logs, _ := f.orders.FindStatusLogs(context.Background(), order.ID)
	assert.Empty(t, logs)
}

func TestSettleFallbackByOrderID(t *testing.T) {
	f := newSettlementFixture()
	order, _ := f.seedPendingPayment(t, models.OrderStatusPlaced, nil)

	err := f.service.Settle(context.Background(), &services.SettlementEvent{
		Reference: "late-ref",
		OrderID:   order.ID.String(),
		Succeeded: true,
		Raw:       []byte(`{}`),
	})
	require.NoError(t, err)

	// The reference gets backfilled from the event.
	gotPayment, findErr := f.payments.FindByReferenceForUpdate(context.Background(), "late-ref")
	require.NoError(t, findErr)
	assert.Equal(t, models.PaymentStatusPaid, gotPayment.Status)

	gotOrder, _ := f.orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, models.OrderStatusConfirmed, gotOrder.Status)
}
