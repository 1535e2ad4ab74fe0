package models

import "time"

// OrderStatusEvent is pushed to the realtime topic whenever an order changes
// status. Delivery is best-effort; nothing in the core depends on it landing.
type OrderStatusEvent struct {
	EventType string    `json:"event_type"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentEvent is published when a payment settles (or fails to).
type PaymentEvent struct {
	EventType string    `json:"event_type"`
	OrderID   string    `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	Method    string    `json:"method"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent is published after a checkout commits.
type OrderCreatedEvent struct {
	EventType   string    `json:"event_type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	TotalAmount float64   `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}
