// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// Handlers bundles every route handler
type Handlers struct {
	Product    *handlers.ProductHandler
	Cart       *handlers.CartHandler
	Checkout   *handlers.CheckoutHandler
	Order      *handlers.OrderHandler
	AdminOrder *handlers.AdminOrderHandler
	Invoice    *handlers.InvoiceHandler
	Coupon     *handlers.CouponHandler
	Inventory  *handlers.InventoryHandler
	Address    *handlers.AddressHandler
	Profile    *handlers.ProfileHandler
	UserAdmin  *handlers.UserAdminHandler
	VAT        *handlers.VATHandler
	Analytics  *handlers.AnalyticsHandler
}

// SetupRoutes registers every API route under rg
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	SetupProductRoutes(rg, h, cfg)
	SetupShoppingRoutes(rg, h, cfg)
	SetupOrderRoutes(rg, h, cfg)
	SetupUserRoutes(rg, h, cfg)
	SetupAdminRoutes(rg, h, cfg)
}

// SetupProductRoutes sets up catalog and VAT preview routes
func SetupProductRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	products := rg.Group("/products")
	{
		products.GET("", h.Product.GetProducts)
		products.GET("/:id", h.Product.GetProduct)
		products.GET("/slug/:slug", h.Product.GetProductBySlug)
	}

	v := rg.Group("/vat")
	{
		v.GET("/calculate", h.VAT.Calculate)
		v.POST("/validate", h.VAT.ValidateInfo)
	}
}

// SetupShoppingRoutes sets up cart and checkout routes, open to guests
func SetupShoppingRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	cart := rg.Group("/cart")
	cart.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:id", h.Cart.UpdateItem)
		cart.DELETE("/items/:id", h.Cart.RemoveItem)
		cart.DELETE("", h.Cart.ClearCart)
		cart.POST("/merge", middleware.AuthMiddleware(cfg), h.Cart.MergeCart)
	}

	checkout := rg.Group("/checkout")
	checkout.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		checkout.POST("/quote", h.Checkout.Quote)
		checkout.POST("/coupon", h.Checkout.ApplyCoupon)
		checkout.DELETE("/coupon", h.Checkout.RemoveCoupon)
		checkout.GET("/payment-methods", h.Checkout.PaymentMethods)
		checkout.POST("/orders", h.Order.CreateOrder)
	}
}

// SetupOrderRoutes sets up customer and guest order routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", h.Order.GetOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.GET("/number/:orderNumber", h.Order.GetOrderByNumber)
		orders.PUT("/:id/cancel", h.Order.CancelOrder)
		orders.GET("/:id/invoice", h.Invoice.UserInvoice)
		orders.GET("/:id/invoice/data", h.Invoice.InvoiceData)
	}

	guest := rg.Group("/guest/orders")
	{
		guest.GET("/:orderNumber", h.Order.GetGuestOrder)
		guest.POST("/:orderNumber/cancel", h.Order.CancelGuestOrder)
		guest.GET("/:orderNumber/invoice", h.Invoice.GuestInvoice)
	}
}

// SetupUserRoutes sets up profile, address and loyalty routes
func SetupUserRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	users := rg.Group("/users")
	users.Use(middleware.AuthMiddleware(cfg))
	{
		users.GET("/profile", h.Profile.GetProfile)
		users.GET("/loyalty", h.Profile.GetLoyalty)
		users.GET("/addresses", h.Address.GetAddresses)
		users.POST("/addresses", h.Address.CreateAddress)
		users.DELETE("/addresses/:id", h.Address.DeleteAddress)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/products", h.Product.AdminCreateProduct)

		orders := admin.Group("/orders")
		{
			orders.GET("", h.AdminOrder.ListOrders)
			orders.GET("/:id", h.AdminOrder.GetOrder)
			orders.PUT("/:id/status", h.AdminOrder.UpdateStatus)
			orders.GET("/:id/invoice", h.Invoice.AdminInvoice)
		}

		coupons := admin.Group("/coupons")
		{
			coupons.GET("", h.Coupon.ListCoupons)
			coupons.POST("", h.Coupon.CreateCoupon)
			coupons.PUT("/:code/status", h.Coupon.SetActive)
		}

		inventory := admin.Group("/inventory")
		{
			inventory.POST("/adjust", h.Inventory.AdjustStock)
			inventory.GET("/movements", h.Inventory.ListMovements)
			inventory.GET("/low-stock", h.Inventory.LowStock)
		}

		users := admin.Group("/users")
		{
			users.GET("/:id", h.UserAdmin.GetUser)
			users.PUT("/:id/ban", h.UserAdmin.SetBanned)
		}

		admin.GET("/analytics/sales", h.Analytics.GetSales)
	}
}
