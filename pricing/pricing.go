// Package pricing computes order money amounts. Every function here is pure:
// no I/O, no clock reads (callers pass `now`), results rounded to two decimal
// places with round-half-away-from-zero.
package pricing

import (
	"errors"
	"math"
	"time"

	"storefront/models"
)

var (
	ErrCouponInvalid      = errors.New("coupon missing or inactive")
	ErrCouponExpired      = errors.New("coupon has expired")
	ErrCouponBelowMinimum = errors.New("order total does not meet coupon minimum")
	ErrCouponExhausted    = errors.New("coupon usage limit reached")
)

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LineTotal is the total for one order line at its snapshot unit price.
func LineTotal(unitPrice float64, quantity int) float64 {
	return Round2(unitPrice * float64(quantity))
}

// Subtotal sums line totals over order items, each at its snapshot unit price.
func Subtotal(items []models.OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += LineTotal(it.UnitPrice, it.Quantity)
	}
	return Round2(total)
}

// DeliveryFee resolves the fee for an order. Pickup is always free; a
// non-zero freeThreshold waives the fee once the subtotal reaches it; with no
// zone there is nothing to charge.
func DeliveryFee(zoneFee, subtotal, freeThreshold float64, isPickup bool) float64 {
	if isPickup {
		return 0
	}
	if freeThreshold > 0 && subtotal >= freeThreshold {
		return 0
	}
	return Round2(zoneFee)
}

// CouponDiscount validates a coupon against a subtotal and returns the
// discount it grants. A flat amount wins over a percentage and is clamped so
// the discount never exceeds the subtotal.
func CouponDiscount(coupon *models.Coupon, subtotal float64, now time.Time) (float64, error) {
	if coupon == nil || !coupon.IsActive {
		return 0, ErrCouponInvalid
	}
	if coupon.ExpiresAt != nil && coupon.ExpiresAt.Before(now) {
		return 0, ErrCouponExpired
	}
	if subtotal < coupon.MinOrderValue {
		return 0, ErrCouponBelowMinimum
	}
	if coupon.MaxUsage != nil && coupon.UsageCount >= *coupon.MaxUsage {
		return 0, ErrCouponExhausted
	}
	if coupon.DiscountAmount > 0 {
		return Round2(math.Min(coupon.DiscountAmount, subtotal)), nil
	}
	if coupon.DiscountPercent > 0 {
		return Round2(subtotal * float64(coupon.DiscountPercent) / 100), nil
	}
	return 0, nil
}

// OrderTotal is subtotal + fee - discount, floored at zero.
func OrderTotal(subtotal, fee, discount float64) float64 {
	return Round2(math.Max(0, subtotal+fee-discount))
}

// SalePrice applies a flash-sale percentage to a product price.
func SalePrice(originalPrice float64, discountPercent int) float64 {
	return Round2(originalPrice * (1 - float64(discountPercent)/100))
}
