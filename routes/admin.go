package routes

import (
	"github.com/gin-gonic/gin"
	cartControllers "github.com/montivagant/wonderworks-api/controllers/cart"
	orderControllers "github.com/montivagant/wonderworks-api/controllers/order"
	productcontroller "github.com/montivagant/wonderworks-api/controllers/product"
	userControllers "github.com/montivagant/wonderworks-api/controllers/user"
	"github.com/montivagant/wonderworks-api/mailer"
	"github.com/montivagant/wonderworks-api/middleware"
	"gorm.io/gorm"
)

// SetupAdminRoutes registers all "/admin/*" endpoints. Requires a session
// with the admin role.
func SetupAdminRoutes(r *gin.Engine, db *gorm.DB, mail mailer.Mailer) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.RequireSession, middleware.RequireAdmin)
	{
		// ─────────── User Management ───────────
		userAdmin := adminGroup.Group("/users")
		{
			userAdmin.GET("", userControllers.GetAllUsers(db))
			userAdmin.PUT("/:id/role", userControllers.UpdateUserRole(db))
			userAdmin.DELETE("/:id", userControllers.DeleteUser(db))
		}

		// ─────────── Product Management ───────────
		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.POST("", productcontroller.CreateProduct(db))
			productAdmin.PUT("/:id", productcontroller.UpdateProduct(db))
			productAdmin.GET("", productcontroller.GetProducts(db))
			productAdmin.DELETE("/:id", productcontroller.DeleteProduct(db))
			productAdmin.POST("/bulk-delete", productcontroller.BulkDeleteProducts(db))
			productAdmin.POST("/:id/images", productcontroller.UploadProductImage(db))
			productAdmin.DELETE("/:id/images/:imageID", productcontroller.DeleteProductImage(db))
			productAdmin.POST("/import-excel", productcontroller.ImportProductsFromExcel(db))
			productAdmin.GET("/export-excel", productcontroller.ExportProductsToExcel(db))
		}

		// ─────────── Category Management ───────────
		categoryAdmin := adminGroup.Group("/categories")
		{
			categoryAdmin.POST("", productcontroller.CreateCategory(db))
			categoryAdmin.PUT("/:id", productcontroller.UpdateCategory(db))
			categoryAdmin.GET("", productcontroller.GetAllCategories(db))
			categoryAdmin.DELETE("/:id", productcontroller.DeleteCategory(db))
		}

		// ─────────── Order Management ───────────
		orderAdmin := adminGroup.Group("/orders")
		{
			orderAdmin.GET("", orderControllers.GetAllOrdersHandler(db))
			orderAdmin.GET("/ws", orderControllers.OrderWebSocketHandler)
			orderAdmin.GET("/:orderID", orderControllers.GetOrderByIDHandler(db))
			orderAdmin.PUT("/:orderID/status", orderControllers.UpdateOrderStatusHandler(db, mail))
			orderAdmin.POST("/bulk-status", orderControllers.BulkUpdateOrderStatusHandler(db, mail))
		}

		// ─────────── Support Tools ───────────
		adminGroup.GET("/user-cart/:user_id", cartControllers.GetAdminUserCart(db))
	}
}
