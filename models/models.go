package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order statuses. Settlement may only set StatusConfirmed; everything else is
// set by checkout, the owning user, or an admin override.
const (
	OrderStatusPending   = "pending"
	OrderStatusPlaced    = "placed"
	OrderStatusPacked    = "packed"
	OrderStatusOnTheWay  = "on_the_way"
	OrderStatusConfirmed = "confirmed"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Payment statuses and methods.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"

	PaymentMethodMpesa  = "mpesa"
	PaymentMethodStripe = "stripe"
	PaymentMethodCOD    = "cod"
)

// Product is a catalog entity. Stock is nil for unlimited-stock products;
// when set it is never negative.
type Product struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name"`
	Slug      string         `gorm:"type:varchar(220);uniqueIndex;not null" json:"slug"`
	Price     float64        `gorm:"type:numeric(10,2);not null" json:"price"`
	Stock     *int           `gorm:"check:stock IS NULL OR stock >= 0" json:"stock"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Coupon is a promotional code. DiscountAmount takes precedence over
// DiscountPercent when both are set.
type Coupon struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code            string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	DiscountPercent int            `gorm:"not null;default:0" json:"discount_percent"`
	DiscountAmount  float64        `gorm:"type:numeric(10,2);not null;default:0" json:"discount_amount"`
	MinOrderValue   float64        `gorm:"type:numeric(10,2);not null;default:0" json:"min_order_value"`
	MaxUsage        *int           `json:"max_usage"` // nil = unlimited
	UsageCount      int            `gorm:"not null;default:0" json:"usage_count"`
	ExpiresAt       *time.Time     `json:"expires_at"` // nil = never expires
	IsActive        bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// FlashSale is a time-boxed price override on a single product. The live
// product price is rewritten for the sale window; the pre-sale price lives in
// a PriceOverride row so reversion is a lookup.
type FlashSale struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"product_id"`
	DiscountPercent   int            `gorm:"not null" json:"discount_percent"`
	StartsAt          time.Time      `gorm:"not null" json:"starts_at"`
	EndsAt            time.Time      `gorm:"not null" json:"ends_at"`
	QuantityAvailable *int           `json:"quantity_available"` // advisory, not enforced against orders
	IsActive          bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// PriceOverride records the original price of a product while a flash sale
// rewrites the live price. ReleasedAt is stamped when the override is reverted.
type PriceOverride struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	FlashSaleID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"flash_sale_id"`
	OriginalPrice float64    `gorm:"type:numeric(10,2);not null" json:"original_price"`
	Reason        string     `gorm:"type:varchar(32);not null;default:'flash_sale'" json:"reason"`
	ReleasedAt    *time.Time `json:"released_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// DeliveryZone carries a flat delivery fee and a human-readable ETA.
type DeliveryZone struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"name"`
	Fee       float64   `gorm:"type:numeric(10,2);not null;default:0" json:"fee"`
	ETA       string    `gorm:"type:varchar(120)" json:"eta"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DeliveryAddress is a customer shipping address.
type DeliveryAddress struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Line1      string    `gorm:"type:varchar(200);not null" json:"line1"`
	Line2      string    `gorm:"type:varchar(200)" json:"line2"`
	City       string    `gorm:"type:varchar(100)" json:"city"`
	Zone       string    `gorm:"type:varchar(100)" json:"zone"`
	PostalCode string    `gorm:"type:varchar(20)" json:"postal_code"`
	IsDefault  bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Rider is a delivery rider that admins assign to orders.
type Rider struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(32);uniqueIndex" json:"phone"`
	Vehicle   string    `gorm:"type:varchar(50)" json:"vehicle"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Order is the checkout aggregate root. A nil DeliveryZoneID means pickup
// fulfillment; AddressID is nil for pickup too.
type Order struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber      string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_number"`
	UserID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Status           string           `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalAmount      float64          `gorm:"type:numeric(10,2);not null;default:0" json:"total_amount"`
	DeliveryFee      float64          `gorm:"type:numeric(10,2);not null;default:0" json:"delivery_fee"`
	DiscountAmount   float64          `gorm:"type:numeric(10,2);not null;default:0" json:"discount_amount"`
	CouponCode       *string          `gorm:"type:varchar(50)" json:"coupon_code"`
	DeliveryZoneID   *uuid.UUID       `gorm:"type:uuid" json:"delivery_zone_id"`
	AddressID        *uuid.UUID       `gorm:"type:uuid" json:"address_id"`
	RiderID          *uuid.UUID       `gorm:"type:uuid" json:"rider_id"`
	DeliveryTimeSlot string           `gorm:"type:varchar(128)" json:"delivery_time_slot"`
	Instructions     string           `gorm:"type:text" json:"instructions"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`
	Items            []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Payment          *Payment         `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
	StatusLogs       []OrderStatusLog `gorm:"foreignKey:OrderID" json:"status_logs,omitempty"`
}

// OrderItem snapshots product name and unit price at checkout time. Immutable
// after creation.
type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	ProductName string    `gorm:"type:varchar(200);not null" json:"product_name"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	UnitPrice   float64   `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// OrderStatusLog is an append-only audit trail; one row per transition.
type OrderStatusLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	Status    string     `gorm:"type:varchar(32);not null" json:"status"`
	Notes     string     `gorm:"type:text" json:"notes"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid" json:"updated_by"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Payment tracks one settlement attempt for an order. Reference is the
// provider-assigned correlation id and the idempotency key for callbacks.
type Payment struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"order_id"`
	Method      string         `gorm:"type:varchar(32);not null;default:'mpesa'" json:"method"`
	Reference   *string        `gorm:"type:varchar(120);uniqueIndex" json:"reference"`
	Amount      float64        `gorm:"type:numeric(10,2);not null" json:"amount"`
	Status      string         `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	RawPayload  *string        `gorm:"type:jsonb" json:"-"`
	CheckoutURL *string        `gorm:"type:varchar(1024)" json:"checkout_url,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CartItem is one line of a user's cart. Carts live in Redis, not Postgres.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Cart is the whole cart for one user, stored as a JSON blob with a TTL.
type Cart struct {
	UserID    uuid.UUID  `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}
