package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"storefront/events"
	"storefront/models"
	"storefront/pricing"
	"storefront/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CouponService owns coupon administration and the checkout-time preview.
// Preview never consumes a use; usage counts move only inside the checkout
// transaction.
type CouponService interface {
	CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, *ServiceError)
	PreviewCoupon(ctx context.Context, req *models.ApplyCouponRequest) (*models.ApplyCouponResponse, *ServiceError)
	DeactivateCoupon(ctx context.Context, code string) *ServiceError
	ListCoupons(ctx context.Context, page, limit int) ([]models.Coupon, int64, *ServiceError)
}

type couponServiceImpl struct {
	repo        repository.CouponRepository
	sns         events.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger
	now         func() time.Time
}

// NewCouponService creates a new CouponService.
func NewCouponService(
	repo repository.CouponRepository,
	sns events.SNSPublisher,
	snsTopicArn string,
	logger *zap.Logger,
) CouponService {
	return &couponServiceImpl{
		repo:        repo,
		sns:         sns,
		snsTopicArn: snsTopicArn,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *couponServiceImpl) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, *ServiceError) {
	if req.ExpiresAt != nil && req.ExpiresAt.Before(s.now()) {
		return nil, &ServiceError{StatusCode: 400, Message: "Expiry date must be in the future"}
	}
	if req.DiscountPercent == 0 && req.DiscountAmount == 0 {
		return nil, &ServiceError{StatusCode: 400, Message: "Coupon must carry a discount"}
	}

	coupon := &models.Coupon{
		Code:            strings.ToUpper(req.Code),
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  req.DiscountAmount,
		MinOrderValue:   req.MinOrderValue,
		MaxUsage:        req.MaxUsage,
		ExpiresAt:       req.ExpiresAt,
		IsActive:        true,
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return nil, &ServiceError{StatusCode: 409, Message: "Coupon code already exists"}
		}
		s.logger.Error("coupon creation failed", zap.String("code", coupon.Code), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create coupon"}
	}

	s.publishLifecycle(ctx, "coupon.created", coupon)
	return coupon, nil
}

// PreviewCoupon validates a code against a subtotal. An invalid coupon is a
// valid=false response, not an error status; the client shows the message
// inline.
func (s *couponServiceImpl) PreviewCoupon(ctx context.Context, req *models.ApplyCouponRequest) (*models.ApplyCouponResponse, *ServiceError) {
	coupon, err := s.repo.FindActiveByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.ApplyCouponResponse{
				Valid:   false,
				Code:    req.Code,
				Message: pricing.ErrCouponInvalid.Error(),
			}, nil
		}
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to check coupon"}
	}

	discount, err := pricing.CouponDiscount(coupon, req.Subtotal, s.now())
	if err != nil {
		return &models.ApplyCouponResponse{
			Valid:   false,
			Code:    coupon.Code,
			Message: err.Error(),
		}, nil
	}

	return &models.ApplyCouponResponse{
		Valid:    true,
		Code:     coupon.Code,
		Discount: discount,
	}, nil
}

func (s *couponServiceImpl) DeactivateCoupon(ctx context.Context, code string) *ServiceError {
	if err := s.repo.Deactivate(ctx, code); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ServiceError{StatusCode: 404, Message: "Coupon not found"}
		}
		s.logger.Error("coupon deactivation failed", zap.String("code", code), zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to deactivate coupon"}
	}

	s.publishLifecycle(ctx, "coupon.deactivated", &models.Coupon{Code: strings.ToUpper(code)})
	return nil
}

func (s *couponServiceImpl) ListCoupons(ctx context.Context, page, limit int) ([]models.Coupon, int64, *ServiceError) {
	coupons, total, err := s.repo.FindAll(ctx, page, limit)
	if err != nil {
		return nil, 0, &ServiceError{StatusCode: 500, Message: "Failed to list coupons"}
	}
	return coupons, total, nil
}

func (s *couponServiceImpl) publishLifecycle(ctx context.Context, eventType string, coupon *models.Coupon) {
	if s.sns == nil || s.snsTopicArn == "" {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event_type": eventType,
		"code":       coupon.Code,
		"timestamp":  s.now().UTC(),
	})
	if err != nil {
		return
	}
	if err := s.sns.Publish(ctx, s.snsTopicArn, payload); err != nil {
		s.logger.Warn("coupon event publish failed",
			zap.String("code", coupon.Code),
			zap.Error(err))
	}
}
