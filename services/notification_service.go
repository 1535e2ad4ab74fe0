package services

import (
	"context"
	"fmt"

	"storefront/models"
	"storefront/sender"

	"go.uber.org/zap"
)

// Notifier fans out customer-facing notifications. Every method is
// best-effort: failures are logged and swallowed so a dead SMTP relay never
// blocks an order or a settlement.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, order *models.Order)
	NotifyPaymentSettled(ctx context.Context, order *models.Order, payment *models.Payment)
	NotifyStatusChanged(ctx context.Context, order *models.Order, oldStatus string)
}

type emailNotifier struct {
	email    sender.EmailSender
	opsEmail string
	logger   *zap.Logger
}

// NewEmailNotifier sends order lifecycle mail to the store operations inbox.
func NewEmailNotifier(email sender.EmailSender, opsEmail string, logger *zap.Logger) Notifier {
	return &emailNotifier{email: email, opsEmail: opsEmail, logger: logger}
}

func (n *emailNotifier) send(ctx context.Context, subject, body string) {
	if n.email == nil || n.opsEmail == "" {
		return
	}
	if _, err := n.email.SendEmail(ctx, n.opsEmail, subject, body); err != nil {
		n.logger.Warn("notification email failed",
			zap.String("subject", subject),
			zap.Error(err))
	}
}

func (n *emailNotifier) NotifyOrderCreated(ctx context.Context, order *models.Order) {
	n.send(ctx,
		fmt.Sprintf("New order %s", order.OrderNumber),
		fmt.Sprintf("<p>Order <b>%s</b> placed for %.2f (%d items).</p>",
			order.OrderNumber, order.TotalAmount, len(order.Items)))
}

func (n *emailNotifier) NotifyPaymentSettled(ctx context.Context, order *models.Order, payment *models.Payment) {
	n.send(ctx,
		fmt.Sprintf("Payment received for %s", order.OrderNumber),
		fmt.Sprintf("<p>Payment of %.2f via %s settled for order <b>%s</b>.</p>",
			payment.Amount, payment.Method, order.OrderNumber))
}

func (n *emailNotifier) NotifyStatusChanged(ctx context.Context, order *models.Order, oldStatus string) {
	n.send(ctx,
		fmt.Sprintf("Order %s is now %s", order.OrderNumber, order.Status),
		fmt.Sprintf("<p>Order <b>%s</b> moved from %s to %s.</p>",
			order.OrderNumber, oldStatus, order.Status))
}

// NoopNotifier stands in when no SMTP relay is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyOrderCreated(context.Context, *models.Order)                    {}
func (NoopNotifier) NotifyPaymentSettled(context.Context, *models.Order, *models.Payment) {}
func (NoopNotifier) NotifyStatusChanged(context.Context, *models.Order, string)           {}
