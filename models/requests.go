package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutRequest is the payload for placing an order from the current cart.
// Pickup orders carry no zone or address; mpesa orders need a phone number.
type CheckoutRequest struct {
	ZoneID        *uuid.UUID `json:"zone_id"`
	Pickup        bool       `json:"pickup"`
	AddressID     *uuid.UUID `json:"address_id"`
	CouponCode    string     `json:"coupon_code"`
	PaymentMethod string     `json:"payment_method" binding:"required,oneof=mpesa stripe cod"`
	Phone         string     `json:"phone"`
	TimeSlot      string     `json:"time_slot"`
	Instructions  string     `json:"instructions"`
}

// CheckoutResponse is returned after a successful checkout. Warning carries a
// non-fatal coupon failure; PaymentPending signals that payment initiation was
// skipped or degraded and the order awaits manual payment.
type CheckoutResponse struct {
	Order          *Order  `json:"order"`
	Warning        string  `json:"warning,omitempty"`
	CheckoutURL    string  `json:"checkout_url,omitempty"`
	Instructions   string  `json:"instructions,omitempty"`
	PaymentPending bool    `json:"payment_pending"`
	PaymentRef     *string `json:"payment_reference,omitempty"`
}

// AddCartItemRequest adds (or increments) one product in the cart.
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"omitempty,min=1"`
}

// UpdateCartItemRequest sets the quantity of a cart line; 0 removes it.
type UpdateCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"min=0"`
}

// CreateCouponRequest creates a promotional code. Either a flat amount or a
// percentage; the amount wins when both are set.
type CreateCouponRequest struct {
	Code            string     `json:"code" binding:"required"`
	DiscountPercent int        `json:"discount_percent" binding:"omitempty,gt=0,lte=100"`
	DiscountAmount  float64    `json:"discount_amount" binding:"omitempty,gt=0"`
	MinOrderValue   float64    `json:"min_order_value" binding:"omitempty,gte=0"`
	MaxUsage        *int       `json:"max_usage" binding:"omitempty"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

// ApplyCouponRequest previews a coupon against a subtotal without consuming a use.
type ApplyCouponRequest struct {
	Code     string  `json:"code" binding:"required"`
	Subtotal float64 `json:"subtotal" binding:"required,gt=0"`
}

// ApplyCouponResponse is the preview result.
type ApplyCouponResponse struct {
	Valid    bool    `json:"valid"`
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
	Message  string  `json:"message,omitempty"`
}

// UpdateOrderStatusRequest is the admin status override payload.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending packed on_the_way delivered confirmed cancelled"`
}

// AssignRiderRequest assigns a rider to an order.
type AssignRiderRequest struct {
	RiderID uuid.UUID `json:"rider_id" binding:"required"`
}

// CreateFlashSaleRequest creates a time-boxed price override for a product.
type CreateFlashSaleRequest struct {
	ProductID         uuid.UUID `json:"product_id" binding:"required"`
	DiscountPercent   int       `json:"discount_percent" binding:"required,gt=0,lte=100"`
	StartsAt          string    `json:"starts_at" binding:"required"` // RFC3339
	EndsAt            string    `json:"ends_at" binding:"required"`   // RFC3339
	QuantityAvailable *int      `json:"quantity_available"`
}

// StartPaymentRequest retries payment initiation for an existing order.
type StartPaymentRequest struct {
	Method string `json:"method" binding:"required,oneof=mpesa stripe"`
	Phone  string `json:"phone"`
}

// OrderListResponse is the paginated order listing envelope.
type OrderListResponse struct {
	Orders []Order      `json:"orders"`
	Meta   ListMetaData `json:"meta"`
}

// ListMetaData carries pagination info.
type ListMetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderDetailResponse includes the cancel eligibility flag and audit trail.
type OrderDetailResponse struct {
	Order     *Order           `json:"order"`
	CanCancel bool             `json:"can_cancel"`
	Logs      []OrderStatusLog `json:"logs"`
}
