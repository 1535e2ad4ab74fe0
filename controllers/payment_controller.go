package controllers

import (
	"io"
	"net/http"
	"strconv"

	"storefront/middleware"
	"storefront/models"
	"storefront/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentController handles payment initiation and provider callbacks.
type PaymentController struct {
	paymentService    services.PaymentService
	settlementService services.SettlementService
	stripe            *services.StripeService
	logger            *zap.Logger
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(
	paymentService services.PaymentService,
	settlementService services.SettlementService,
	stripe *services.StripeService,
	logger *zap.Logger,
) *PaymentController {
	return &PaymentController{
		paymentService:    paymentService,
		settlementService: settlementService,
		stripe:            stripe,
		logger:            logger,
	}
}

// StartPayment handles POST /orders/:id/pay.
func (pc *PaymentController) StartPayment(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	orderID, ok := orderIDParam(ctx)
	if !ok {
		return
	}

	var req models.StartPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	payment, instructions, svcErr := pc.paymentService.StartPayment(ctx.Request.Context(), orderID, userID, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	resp := gin.H{"payment": payment}
	if instructions != nil {
		resp["message"] = instructions.Message
		resp["payment_pending"] = instructions.Pending
		if instructions.CheckoutURL != "" {
			resp["checkout_url"] = instructions.CheckoutURL
		}
	}
	ctx.JSON(http.StatusOK, resp)
}

// MpesaCallback handles POST /payments/mpesa/callback. Daraja expects a 200
// with ResultCode 0 once the callback is taken; anything else triggers a
// retry, which is exactly what we want on a failed transaction.
func (pc *PaymentController) MpesaCallback(ctx *gin.Context) {
	raw, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
		return
	}

	event, err := services.TranslateMpesaCallback(raw)
	if err != nil {
		pc.logger.Warn("unparseable mpesa callback", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid callback"})
		return
	}

	if err := pc.settlementService.Settle(ctx.Request.Context(), event); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Settlement failed"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// StripeWebhook handles POST /payments/stripe/webhook.
func (pc *PaymentController) StripeWebhook(ctx *gin.Context) {
	stripeEvent, raw, err := pc.stripe.ParseWebhook(ctx.Request)
	if err != nil {
		pc.logger.Warn("stripe webhook verification failed", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	event, err := services.TranslateStripeEvent(stripeEvent, raw)
	if err != nil {
		pc.logger.Warn("unparseable stripe event",
			zap.String("event_type", string(stripeEvent.Type)),
			zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}
	if event == nil {
		ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := pc.settlementService.Settle(ctx.Request.Context(), event); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Settlement failed"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "received"})
}

// ListPayments handles GET /admin/payments (admin only).
func (pc *PaymentController) ListPayments(ctx *gin.Context) {
	status := ctx.Query("status")
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	payments, svcErr := pc.paymentService.ListPayments(ctx.Request.Context(), status, limit)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payments": payments})
}
