package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront/events"
	"storefront/models"
	"storefront/pricing"
	"storefront/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FlashSaleService manages time-boxed price overrides. Creating a sale
// rewrites the live product price and banks the original in a PriceOverride
// row; ending the sale restores it from there, never from arithmetic.
type FlashSaleService interface {
	CreateFlashSale(ctx context.Context, req *models.CreateFlashSaleRequest) (*models.FlashSale, *ServiceError)
	EndFlashSale(ctx context.Context, saleID uuid.UUID) *ServiceError
	// ReleaseExpired ends every active sale past its window and returns how
	// many were released. Safe to call from any at-least-once scheduler.
	ReleaseExpired(ctx context.Context, now time.Time) (int, error)
}

type flashSaleServiceImpl struct {
	tx          TxRunner
	sales       repository.FlashSaleRepository
	products    repository.ProductRepository
	sns         events.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger
}

// NewFlashSaleService creates a new FlashSaleService.
func NewFlashSaleService(
	tx TxRunner,
	sales repository.FlashSaleRepository,
	products repository.ProductRepository,
	sns events.SNSPublisher,
	snsTopicArn string,
	logger *zap.Logger,
) FlashSaleService {
	return &flashSaleServiceImpl{
		tx:          tx,
		sales:       sales,
		products:    products,
		sns:         sns,
		snsTopicArn: snsTopicArn,
		logger:      logger,
	}
}

func (s *flashSaleServiceImpl) CreateFlashSale(ctx context.Context, req *models.CreateFlashSaleRequest) (*models.FlashSale, *ServiceError) {
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, &ServiceError{StatusCode: 400, Message: "starts_at must be RFC3339"}
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, &ServiceError{StatusCode: 400, Message: "ends_at must be RFC3339"}
	}
	if !endsAt.After(startsAt) {
		return nil, &ServiceError{StatusCode: 400, Message: "ends_at must be after starts_at"}
	}

	sale := &models.FlashSale{
		ProductID:         req.ProductID,
		DiscountPercent:   req.DiscountPercent,
		StartsAt:          startsAt,
		EndsAt:            endsAt,
		QuantityAvailable: req.QuantityAvailable,
		IsActive:          true,
	}

	txErr := s.tx.InTx(ctx, func(tx *gorm.DB) error {
		sales := s.sales.WithTx(tx)
		products := s.products.WithTx(tx)

		product, err := products.FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}

		overlapping, err := sales.CountOverlapping(ctx, req.ProductID, startsAt, endsAt)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return errOverlappingSale
		}

		if err := sales.Create(ctx, sale); err != nil {
			return err
		}
		if err := sales.CreateOverride(ctx, &models.PriceOverride{
			ProductID:     product.ID,
			FlashSaleID:   sale.ID,
			OriginalPrice: product.Price,
			Reason:        "flash_sale",
		}); err != nil {
			return err
		}
		return products.UpdatePrice(ctx, product.ID, pricing.SalePrice(product.Price, req.DiscountPercent))
	})
	if txErr != nil {
		switch {
		case errors.Is(txErr, gorm.ErrRecordNotFound):
			return nil, &ServiceError{StatusCode: 404, Message: "Product not found"}
		case errors.Is(txErr, errOverlappingSale):
			return nil, &ServiceError{StatusCode: 409, Message: "An active flash sale already covers this window"}
		default:
			s.logger.Error("flash sale creation failed",
				zap.String("product_id", req.ProductID.String()),
				zap.Error(txErr))
			return nil, &ServiceError{StatusCode: 500, Message: "Failed to create flash sale"}
		}
	}

	s.publishLifecycle(ctx, "flash_sale.started", sale)
	return sale, nil
}

var errOverlappingSale = errors.New("overlapping flash sale")

func (s *flashSaleServiceImpl) EndFlashSale(ctx context.Context, saleID uuid.UUID) *ServiceError {
	var ended *models.FlashSale
	txErr := s.tx.InTx(ctx, func(tx *gorm.DB) error {
		sale, err := s.endSale(ctx, tx, saleID)
		if err != nil {
			return err
		}
		ended = sale
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return &ServiceError{StatusCode: 404, Message: "Flash sale not found"}
		}
		s.logger.Error("flash sale end failed",
			zap.String("sale_id", saleID.String()),
			zap.Error(txErr))
		return &ServiceError{StatusCode: 500, Message: "Failed to end flash sale"}
	}

	if ended != nil {
		s.publishLifecycle(ctx, "flash_sale.ended", ended)
	}
	return nil
}

// endSale deactivates a sale and restores the product price from its
// override. Ending an already-ended sale is a no-op, so the sweep and a
// manual admin end cannot double-restore.
func (s *flashSaleServiceImpl) endSale(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (*models.FlashSale, error) {
	sales := s.sales.WithTx(tx)
	products := s.products.WithTx(tx)

	sale, err := sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !sale.IsActive {
		return nil, nil
	}

	override, err := sales.FindOverrideBySaleID(ctx, sale.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if override != nil {
		if err := products.UpdatePrice(ctx, override.ProductID, override.OriginalPrice); err != nil {
			return nil, err
		}
		if err := sales.ReleaseOverride(ctx, override.ID, time.Now()); err != nil {
			return nil, err
		}
	}
	if err := sales.Deactivate(ctx, sale.ID); err != nil {
		return nil, err
	}
	sale.IsActive = false
	return sale, nil
}

func (s *flashSaleServiceImpl) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.sales.FindExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, sale := range expired {
		saleID := sale.ID
		txErr := s.tx.InTx(ctx, func(tx *gorm.DB) error {
			_, err := s.endSale(ctx, tx, saleID)
			return err
		})
		if txErr != nil {
			s.logger.Error("expired flash sale release failed",
				zap.String("sale_id", saleID.String()),
				zap.Error(txErr))
			continue
		}
		released++
	}
	if released > 0 {
		s.logger.Info("released expired flash sales", zap.Int("count", released))
	}
	return released, nil
}

func (s *flashSaleServiceImpl) publishLifecycle(ctx context.Context, eventType string, sale *models.FlashSale) {
	if s.sns == nil || s.snsTopicArn == "" {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event_type":       eventType,
		"flash_sale_id":    sale.ID.String(),
		"product_id":       sale.ProductID.String(),
		"discount_percent": sale.DiscountPercent,
		"starts_at":        sale.StartsAt,
		"ends_at":          sale.EndsAt,
	})
	if err != nil {
		return
	}
	if err := s.sns.Publish(ctx, s.snsTopicArn, payload); err != nil {
		s.logger.Warn("flash sale event publish failed",
			zap.String("sale_id", sale.ID.String()),
			zap.Error(err))
	}
}
