package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/montivagant/wonderworks-api/models"
	"gorm.io/gorm"
)

// referencedByOrders reports whether any order item points at the product.
// Such products are blocked from deletion to keep order history intact.
func referencedByOrders(db *gorm.DB, productID uint) (bool, error) {
	var count int64
	if err := db.Model(&models.OrderItem{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func deleteProduct(db *gorm.DB, product *models.Product) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(product).Association("Categories").Clear(); err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.WishlistItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(product).Error
	})
}

// DeleteProduct removes one product unless an order item references it (409).
func DeleteProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product ID is required"})
			return
		}

		var product models.Product
		if err := db.Preload("Categories").First(&product, "id = ?", id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		blocked, err := referencedByOrders(db, product.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check order references"})
			return
		}
		if blocked {
			c.JSON(http.StatusConflict, gin.H{"error": "Product is referenced by existing orders"})
			return
		}

		if err := deleteProduct(db, &product); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
	}
}

type BulkDeleteRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// BulkDeleteProducts deletes the requested products, partitioning the input
// into deleted ids and ids blocked by order-item references.
func BulkDeleteProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BulkDeleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		deleted := []uint{}
		blocked := []uint{}
		for _, id := range req.IDs {
			var product models.Product
			if err := db.Preload("Categories").First(&product, id).Error; err != nil {
				// Already gone: deleting is a no-op, count it as deleted.
				deleted = append(deleted, id)
				continue
			}

			isBlocked, err := referencedByOrders(db, product.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check order references"})
				return
			}
			if isBlocked {
				blocked = append(blocked, id)
				continue
			}

			if err := deleteProduct(db, &product); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
				return
			}
			deleted = append(deleted, id)
		}

		c.JSON(http.StatusOK, gin.H{"deleted": deleted, "blocked": blocked})
	}
}
