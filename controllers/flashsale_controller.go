package controllers

import (
	"net/http"
	"time"

	"storefront/models"
	"storefront/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FlashSaleController handles admin flash-sale operations.
type FlashSaleController struct {
	flashSaleService services.FlashSaleService
}

// NewFlashSaleController creates a new FlashSaleController.
func NewFlashSaleController(flashSaleService services.FlashSaleService) *FlashSaleController {
	return &FlashSaleController{flashSaleService: flashSaleService}
}

// CreateFlashSale handles POST /admin/flash-sales (admin only).
func (fc *FlashSaleController) CreateFlashSale(ctx *gin.Context) {
	var req models.CreateFlashSaleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	sale, svcErr := fc.flashSaleService.CreateFlashSale(ctx.Request.Context(), &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"flash_sale": sale})
}

// EndFlashSale handles POST /admin/flash-sales/:id/end (admin only).
func (fc *FlashSaleController) EndFlashSale(ctx *gin.Context) {
	saleID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flash sale id"})
		return
	}

	if svcErr := fc.flashSaleService.EndFlashSale(ctx.Request.Context(), saleID); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ended"})
}

// ReleaseExpired handles POST /admin/flash-sales/release-expired (admin only).
// Wired for external schedulers that prefer an HTTP trigger over the
// in-process sweep.
func (fc *FlashSaleController) ReleaseExpired(ctx *gin.Context) {
	released, err := fc.flashSaleService.ReleaseExpired(ctx.Request.Context(), time.Now())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to release expired sales"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"released": released})
}
