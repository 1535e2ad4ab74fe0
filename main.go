package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/controllers"
	"storefront/database"
	"storefront/events"
	"storefront/models"
	"storefront/repository"
	"storefront/routes"
	"storefront/sender"
	"storefront/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// --- Database ---
	db, err := database.ConnectPostgres(logger, cfg.DSN(),
		&models.Product{},
		&models.Coupon{},
		&models.FlashSale{},
		&models.PriceOverride{},
		&models.DeliveryZone{},
		&models.DeliveryAddress{},
		&models.Rider{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusLog{},
		&models.Payment{},
	)
	if err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Redis connection failed", zap.Error(err))
	}

	// --- Event fan-out ---
	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}

	var snsClient events.SNSPublisher = events.NoopSNSPublisher{}
	if cfg.PromoSNSTopicARN != "" {
		awsCfg, err := events.LoadAWSConfig(context.Background())
		if err != nil {
			logger.Warn("AWS config load failed, promo events disabled", zap.Error(err))
		} else {
			snsClient = events.NewSNSClient(awsCfg)
		}
	}

	var notifier services.Notifier = services.NoopNotifier{}
	if cfg.SMTPHost != "" {
		smtpSender, err := sender.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		if err != nil {
			logger.Warn("SMTP sender init failed, email disabled", zap.Error(err))
		} else {
			notifier = services.NewEmailNotifier(smtpSender, cfg.OpsEmail, logger)
		}
	}

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())

	// Structured HTTP request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	})

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// --- Dependency injection ---
	txRunner := services.NewGormTxRunner(db)
	productRepo := repository.NewGormProductRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)
	flashSaleRepo := repository.NewGormFlashSaleRepository(db)
	deliveryRepo := repository.NewGormDeliveryRepository(db)
	cartRepo := repository.NewRedisCartRepository(redisClient, cfg.CartTTL)

	mpesa := services.NewMpesaService(services.MpesaConfig{
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaConsumerSecret,
		ShortCode:      cfg.MpesaShortCode,
		Passkey:        cfg.MpesaPasskey,
		BaseURL:        cfg.MpesaBaseURL,
		CallbackURL:    cfg.MpesaCallbackURL,
	}, paymentRepo, logger)
	stripeSvc := services.NewStripeService(services.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.StripeCurrency,
		SuccessURL:    cfg.StripeSuccessURL,
		CancelURL:     cfg.StripeCancelURL,
	}, paymentRepo, logger)
	adapters := map[string]services.PaymentAdapter{
		mpesa.Method():     mpesa,
		stripeSvc.Method(): stripeSvc,
	}

	checkoutService := services.NewCheckoutService(
		txRunner, cartRepo, productRepo, orderRepo, couponRepo, deliveryRepo,
		adapters, notifier, publisher, cfg.FreeDeliveryThreshold, logger)
	orderService := services.NewOrderService(
		txRunner, orderRepo, paymentRepo, deliveryRepo, notifier, publisher,
		cfg.CancelWindow, logger)
	settlementService := services.NewSettlementService(
		txRunner, paymentRepo, orderRepo, notifier, publisher, logger)
	paymentService := services.NewPaymentService(orderRepo, paymentRepo, adapters, logger)
	couponService := services.NewCouponService(couponRepo, snsClient, cfg.PromoSNSTopicARN, logger)
	cartService := services.NewCartService(cartRepo, productRepo, logger)
	flashSaleService := services.NewFlashSaleService(
		txRunner, flashSaleRepo, productRepo, snsClient, cfg.PromoSNSTopicARN, logger)

	routes.Register(r, &routes.Controllers{
		Checkout:  controllers.NewCheckoutController(checkoutService),
		Cart:      controllers.NewCartController(cartService),
		Order:     controllers.NewOrderController(orderService),
		Payment:   controllers.NewPaymentController(paymentService, settlementService, stripeSvc, logger),
		Coupon:    controllers.NewCouponController(couponService),
		FlashSale: controllers.NewFlashSaleController(flashSaleService),
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "storefront"})
	})

	// --- Background flash sale sweep ---
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.FlashSaleSweep)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case now := <-ticker.C:
				if _, err := flashSaleService.ReleaseExpired(sweepCtx, now); err != nil {
					logger.Error("flash sale sweep failed", zap.Error(err))
				}
			}
		}
	}()

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Storefront service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	stopSweep()

	httpShutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(httpShutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := publisher.Close(); err != nil {
		logger.Error("Event publisher close error", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	logger.Info("Storefront service stopped gracefully")
}
