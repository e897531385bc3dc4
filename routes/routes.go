package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/mivine/essentials-backend-go/handlers"
	customMiddleware "github.com/mivine/essentials-backend-go/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth bundles the two authentication middlewares the routes need.
type Auth struct {
	Required echo.MiddlewareFunc
	Optional echo.MiddlewareFunc
}

func SetupRoutes(e *echo.Echo, h *handlers.Handler, auth Auth, gatherer prometheus.Gatherer) {
	e.GET("/health", handlers.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api")

	// User routes
	api.POST("/users/register", h.RegisterUser)
	api.POST("/users/login", h.LoginUser)
	api.GET("/users/profile", h.GetUserProfile, auth.Required)

	// Product routes
	api.GET("/products", h.GetProducts)
	api.GET("/products/best-seller", h.GetBestSeller)
	api.GET("/products/new-arrivals", h.GetNewArrivals)
	api.GET("/products/similar/:id", h.GetSimilarProducts)
	api.GET("/products/:id", h.GetProduct)
	api.POST("/products", h.CreateProduct, auth.Required, customMiddleware.AdminOnly)
	api.PUT("/products/:id", h.UpdateProduct, auth.Required, customMiddleware.AdminOnly)
	api.DELETE("/products/:id", h.DeleteProduct, auth.Required, customMiddleware.AdminOnly)

	// Cart routes, open to guests
	cart := api.Group("/cart", auth.Optional)
	cart.GET("", h.GetCart)
	cart.POST("", h.AddToCart)
	cart.PUT("", h.UpdateCartItemQuantity)
	cart.DELETE("", h.RemoveFromCart)
	api.POST("/cart/merge", h.MergeCart, auth.Required)

	// Checkout routes
	checkout := api.Group("/checkout", auth.Required)
	checkout.POST("", h.CreateCheckout)
	checkout.GET("/:id", h.GetCheckout)
	checkout.PUT("/:id/pay", h.PayCheckout)
	checkout.POST("/:id/finalize", h.FinalizeCheckout)

	// Order routes
	orders := api.Group("/orders", auth.Required)
	orders.GET("/my-orders", h.GetMyOrders)
	orders.GET("/:id", h.GetOrder)
	orders.POST("", h.CreateOrder)

	// Admin routes
	admin := api.Group("/admin", auth.Required, customMiddleware.AdminOnly)
	admin.GET("/orders", h.GetAllOrders)
	admin.PUT("/orders/:id", h.UpdateOrderStatus)
	admin.DELETE("/orders/:id", h.DeleteOrder)
	admin.GET("/users", h.GetUsers)
	admin.POST("/users", h.CreateUser)
	admin.PUT("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.GET("/products", h.GetAdminProducts)
}
