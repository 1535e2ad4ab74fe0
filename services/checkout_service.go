package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/events"
	"storefront/models"
	"storefront/pricing"
	"storefront/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrEmptyCart is returned when checkout runs against an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// CheckoutService turns a cart into a priced, stock-reserved order and kicks
// off payment.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, req *models.CheckoutRequest) (*models.CheckoutResponse, *ServiceError)
}

type checkoutServiceImpl struct {
	tx        TxRunner
	carts     repository.CartRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	coupons   repository.CouponRepository
	delivery  repository.DeliveryRepository
	adapters  map[string]PaymentAdapter
	notifier  Notifier
	publisher events.Publisher

	freeDeliveryThreshold float64
	logger                *zap.Logger
	now                   func() time.Time
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	tx TxRunner,
	carts repository.CartRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	coupons repository.CouponRepository,
	delivery repository.DeliveryRepository,
	adapters map[string]PaymentAdapter,
	notifier Notifier,
	publisher events.Publisher,
	freeDeliveryThreshold float64,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		tx:                    tx,
		carts:                 carts,
		products:              products,
		orders:                orders,
		coupons:               coupons,
		delivery:              delivery,
		adapters:              adapters,
		notifier:              notifier,
		publisher:             publisher,
		freeDeliveryThreshold: freeDeliveryThreshold,
		logger:                logger,
		now:                   time.Now,
	}
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", time.Now().Unix(), strings.Split(uuid.New().String(), "-")[0])
}

// initialStatus is placed for prepaid methods and pending for cash on
// delivery, which stays pending until an admin confirms it.
func initialStatus(paymentMethod string) string {
	if paymentMethod == models.PaymentMethodCOD {
		return models.OrderStatusPending
	}
	return models.OrderStatusPlaced
}

// PlaceOrder runs the whole checkout in one transaction: snapshot the cart,
// reserve stock line by line, price the order, persist it and consume the
// coupon. A failing line rolls back everything including earlier decrements.
// Payment initiation happens after commit and never undoes the order.
func (s *checkoutServiceImpl) PlaceOrder(ctx context.Context, userID uuid.UUID, req *models.CheckoutRequest) (*models.CheckoutResponse, *ServiceError) {
	if req.PaymentMethod == models.PaymentMethodMpesa && req.Phone == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "Phone number is required for M-Pesa payments"}
	}
	if _, ok := s.adapters[req.PaymentMethod]; !ok && req.PaymentMethod != models.PaymentMethodCOD {
		return nil, &ServiceError{StatusCode: 400, Message: "Unsupported payment method"}
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		s.logger.Error("cart lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Checkout failed"}
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, &ServiceError{StatusCode: 400, Message: ErrEmptyCart.Error()}
	}

	var zoneFee float64
	if !req.Pickup {
		if req.ZoneID == nil {
			return nil, &ServiceError{StatusCode: 400, Message: "Delivery zone is required for delivery orders"}
		}
		zone, err := s.delivery.FindZone(ctx, *req.ZoneID)
		if err != nil {
			return nil, &ServiceError{StatusCode: 400, Message: "Delivery zone not found"}
		}
		zoneFee = zone.Fee
		if req.AddressID != nil {
			if _, err := s.delivery.FindAddressByIDAndUserID(ctx, *req.AddressID, userID); err != nil {
				return nil, &ServiceError{StatusCode: 400, Message: "Delivery address not found"}
			}
		}
	}

	order := &models.Order{
		OrderNumber:      generateOrderNumber(),
		UserID:           userID,
		Status:           initialStatus(req.PaymentMethod),
		DeliveryTimeSlot: req.TimeSlot,
		Instructions:     req.Instructions,
	}
	if !req.Pickup {
		order.DeliveryZoneID = req.ZoneID
		order.AddressID = req.AddressID
	}

	var warning string
	txErr := s.tx.InTx(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		orders := s.orders.WithTx(tx)
		coupons := s.coupons.WithTx(tx)

		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			product, err := products.ReserveStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			items = append(items, models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
			})
		}

		subtotal := pricing.Subtotal(items)
		fee := pricing.DeliveryFee(zoneFee, subtotal, s.freeDeliveryThreshold, req.Pickup)

		var discount float64
		var appliedCoupon string
		if req.CouponCode != "" {
			coupon, err := coupons.FindActiveByCode(ctx, req.CouponCode)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				warning = "Coupon could not be applied: " + pricing.ErrCouponInvalid.Error()
			} else if err != nil {
				// A lookup failure is not a bad coupon. Abort rather than
				// silently charging full price on a possibly valid code.
				return err
			} else if d, err := pricing.CouponDiscount(coupon, subtotal, s.now()); err != nil {
				warning = "Coupon could not be applied: " + err.Error()
			} else {
				discount = d
				appliedCoupon = coupon.Code
			}
		}

		order.DeliveryFee = fee
		order.DiscountAmount = discount
		order.TotalAmount = pricing.OrderTotal(subtotal, fee, discount)
		if appliedCoupon != "" {
			order.CouponCode = &appliedCoupon
		}

		if err := orders.Create(ctx, order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := orders.CreateItems(ctx, items); err != nil {
			return err
		}
		order.Items = items

		if err := orders.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:   order.ID,
			Status:    order.Status,
			Notes:     "Order created",
			UpdatedBy: &userID,
		}); err != nil {
			return err
		}

		if appliedCoupon != "" {
			if err := coupons.IncrementUsageCount(ctx, appliedCoupon); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		var stockErr *repository.InsufficientStockError
		if errors.As(txErr, &stockErr) {
			return nil, &ServiceError{StatusCode: 409, Message: stockErr.Error()}
		}
		s.logger.Error("checkout transaction failed",
			zap.String("user_id", userID.String()),
			zap.Error(txErr))
		return nil, &ServiceError{StatusCode: 500, Message: "Checkout failed"}
	}

	if err := s.carts.DeleteCart(ctx, userID); err != nil {
		s.logger.Warn("cart clear failed after checkout",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	s.notifier.NotifyOrderCreated(ctx, order)
	if err := s.publisher.PublishOrderCreated(ctx, models.OrderCreatedEvent{
		EventType:   "order.created",
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		UserID:      userID.String(),
		TotalAmount: order.TotalAmount,
		Timestamp:   s.now().UTC(),
	}); err != nil {
		s.logger.Warn("order created event publish failed", zap.Error(err))
	}

	resp := &models.CheckoutResponse{Order: order, Warning: warning}

	if req.PaymentMethod == models.PaymentMethodCOD {
		resp.Instructions = "Pay the rider on delivery"
		return resp, nil
	}

	adapter := s.adapters[req.PaymentMethod]
	payment, instructions, err := adapter.BeginSettlement(ctx, order, req.Phone)
	if err != nil {
		s.logger.Error("payment initiation failed after checkout",
			zap.String("order_id", order.ID.String()),
			zap.String("method", req.PaymentMethod),
			zap.Error(err))
		resp.PaymentPending = true
		resp.Instructions = "Payment could not be started, retry from the order page"
		return resp, nil
	}
	if payment != nil {
		resp.PaymentRef = payment.Reference
	}
	if instructions != nil {
		resp.CheckoutURL = instructions.CheckoutURL
		resp.Instructions = instructions.Message
		resp.PaymentPending = instructions.Pending
	}
	return resp, nil
}
