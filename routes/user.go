package routes

import (
	"github.com/gin-gonic/gin"
	addressControllers "github.com/montivagant/wonderworks-api/controllers/address"
	cartControllers "github.com/montivagant/wonderworks-api/controllers/cart"
	orderControllers "github.com/montivagant/wonderworks-api/controllers/order"
	productControllers "github.com/montivagant/wonderworks-api/controllers/product"
	userControllers "github.com/montivagant/wonderworks-api/controllers/user"
	wishlistControllers "github.com/montivagant/wonderworks-api/controllers/wishlist"
	"github.com/montivagant/wonderworks-api/mailer"
	"github.com/montivagant/wonderworks-api/middleware"
	"github.com/montivagant/wonderworks-api/payments"
	"gorm.io/gorm"
)

// SetupCatalogRoutes registers the public browse endpoints.
func SetupCatalogRoutes(r *gin.Engine, db *gorm.DB) {
	r.GET("/products", productControllers.GetProducts(db))
	r.GET("/products/:id", productControllers.GetProductByID(db))
	r.GET("/products/:id/reviews", productControllers.GetProductReviews(db))
	r.GET("/categories", productControllers.GetAllCategories(db))
	r.GET("/categories/:id", productControllers.GetCategoryByID(db))
}

// SetupUserRoutes registers all "/user/*" endpoints. Requires a session.
func SetupUserRoutes(r *gin.Engine, db *gorm.DB, mail mailer.Mailer, pc payments.IntentClient) {
	userGroup := r.Group("/user")
	userGroup.Use(middleware.RequireSession)
	{
		// ──────────────── Profile ────────────────
		userGroup.GET("/", userControllers.GetUser(db))
		userGroup.PUT("/", userControllers.UpdateUser(db))

		// ──────────────── Addresses ────────────────
		addressGroup := userGroup.Group("/addresses")
		{
			addressGroup.GET("", addressControllers.ListAddresses(db))
			addressGroup.POST("", addressControllers.CreateAddress(db))
			addressGroup.PUT("/:id", addressControllers.UpdateAddress(db))
			addressGroup.DELETE("/:id", addressControllers.DeleteAddress(db))
		}

		// ──────────────── Shopping Cart ────────────────
		cartGroup := userGroup.Group("/cart")
		{
			cartGroup.GET("/", cartControllers.GetUserCart(db))
			cartGroup.POST("/", cartControllers.UpdateCartItem(db))
			cartGroup.DELETE("/:product_id", cartControllers.DeleteCartItem(db))
			cartGroup.DELETE("/", cartControllers.ClearUserCart(db))
		}

		// ──────────────── Wishlist ────────────────
		wishlistGroup := userGroup.Group("/wishlist")
		{
			wishlistGroup.GET("/", wishlistControllers.GetWishlist(db))
			wishlistGroup.POST("/", wishlistControllers.AddWishlistItem(db))
			wishlistGroup.DELETE("/:product_id", wishlistControllers.DeleteWishlistItem(db))
			wishlistGroup.POST("/:product_id/move-to-cart", wishlistControllers.MoveToCart(db))
		}

		// ──────────────── Reviews ────────────────
		userGroup.POST("/products/:id/reviews", productControllers.UpsertReview(db))
		userGroup.DELETE("/products/:id/reviews", productControllers.DeleteReview(db))

		// ──────────────── Orders ────────────────
		orderGroup := userGroup.Group("/orders")
		{
			orderGroup.POST("", orderControllers.CheckoutHandler(db, pc, mail))
			orderGroup.GET("", orderControllers.GetUserOrdersHandler(db))
			orderGroup.GET("/:orderID", orderControllers.GetOrderByIDHandler(db))
			orderGroup.POST("/:orderID/cancel", orderControllers.CancelOrderHandler(db, mail))
		}
	}
}
