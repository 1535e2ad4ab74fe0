package services

import (
	"context"

	"storefront/models"

	"gorm.io/gorm"
)

// ServiceError represents a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// TxRunner runs a function inside a database transaction. Services depend on
// this instead of *gorm.DB directly so tests can run the function with a nil
// tx against in-memory repositories.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GormTxRunner implements TxRunner over a live gorm connection.
type GormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) *GormTxRunner {
	return &GormTxRunner{db: db}
}

func (r *GormTxRunner) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// PaymentInstructions tells the client what to do next after a payment is
// initiated: follow a redirect URL (stripe) or wait for a push prompt (mpesa).
type PaymentInstructions struct {
	CheckoutURL string
	Message     string
	Pending     bool
}

// SettlementEvent is the provider-neutral form of a payment callback. Exactly
// one of Reference or OrderID may be empty; the reconciler tries the reference
// first and falls back to the order id carried in provider metadata.
type SettlementEvent struct {
	Reference string
	OrderID   string
	Succeeded bool
	Raw       []byte
}

// PaymentAdapter is the contract both payment providers implement.
// BeginSettlement creates the Payment row for the order and kicks off the
// provider flow; it must leave a usable Payment record behind even when the
// provider is unreachable or unconfigured.
type PaymentAdapter interface {
	Method() string
	BeginSettlement(ctx context.Context, order *models.Order, phone string) (*models.Payment, *PaymentInstructions, error)
}
