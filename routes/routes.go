package routes

import (
	"storefront/controllers"
	"storefront/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers bundles everything the router mounts.
type Controllers struct {
	Checkout  *controllers.CheckoutController
	Cart      *controllers.CartController
	Order     *controllers.OrderController
	Payment   *controllers.PaymentController
	Coupon    *controllers.CouponController
	FlashSale *controllers.FlashSaleController
}

// Register sets up all routes. Provider callbacks stay outside the auth
// group; Daraja and Stripe do not carry our identity headers.
func Register(r *gin.Engine, c *Controllers) {
	r.POST("/payments/mpesa/callback", c.Payment.MpesaCallback)
	r.POST("/payments/stripe/webhook", c.Payment.StripeWebhook)

	authed := r.Group("")
	authed.Use(middleware.AuthMiddleware())

	authed.GET("/cart", c.Cart.GetCart)
	authed.POST("/cart/items", c.Cart.AddItem)
	authed.PATCH("/cart/items", c.Cart.UpdateItem)
	authed.DELETE("/cart", c.Cart.ClearCart)

	authed.POST("/checkout", c.Checkout.PlaceOrder)
	authed.POST("/coupons/apply", c.Coupon.PreviewCoupon)

	authed.GET("/orders", c.Order.ListMyOrders)
	authed.GET("/orders/:id", c.Order.GetOrder)
	authed.POST("/orders/:id/cancel", c.Order.CancelOrder)
	authed.POST("/orders/:id/pay", c.Payment.StartPayment)

	admin := authed.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/orders", c.Order.ListAllOrders)
	admin.PATCH("/orders/:id/status", c.Order.UpdateStatus)
	admin.POST("/orders/:id/rider", c.Order.AssignRider)
	admin.GET("/payments", c.Payment.ListPayments)
	admin.POST("/coupons", c.Coupon.CreateCoupon)
	admin.GET("/coupons", c.Coupon.ListCoupons)
	admin.DELETE("/coupons/:code", c.Coupon.DeactivateCoupon)
	admin.POST("/flash-sales", c.FlashSale.CreateFlashSale)
	admin.POST("/flash-sales/:id/end", c.FlashSale.EndFlashSale)
	admin.POST("/flash-sales/release-expired", c.FlashSale.ReleaseExpired)
}
