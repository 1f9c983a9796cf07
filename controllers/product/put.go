package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/montivagant/wonderworks-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductUpdateInput struct {
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	SKU            *string          `json:"sku"`
	Price          *decimal.Decimal `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price"`
	Stock          *int             `json:"stock"`
	CategoryIDs    []uint           `json:"category_ids"`
}

// UpdateProduct applies a partial update; category_ids, when present,
// replaces the full association set.
func UpdateProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var product models.Product
		if err := db.Preload("Categories").First(&product, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		var input ProductUpdateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if input.Name != nil {
			product.Name = *input.Name
		}
		if input.Description != nil {
			product.Description = *input.Description
		}
		if input.SKU != nil {
			product.SKU = *input.SKU
		}
		if input.Price != nil {
			if input.Price.IsNegative() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
				return
			}
			product.Price = *input.Price
		}
		if input.CompareAtPrice != nil {
			product.CompareAtPrice = *input.CompareAtPrice
		}
		if input.Stock != nil {
			product.Stock = *input.Stock
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if input.CategoryIDs != nil {
				var categories []models.Category
				if len(input.CategoryIDs) > 0 {
					if err := tx.Where("id IN ?", input.CategoryIDs).Find(&categories).Error; err != nil {
						return err
					}
				}
				if err := tx.Model(&product).Association("Categories").Replace(categories); err != nil {
					return err
				}
			}
			return tx.Save(&product).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
			return
		}

		c.JSON(http.StatusOK, product)
	}
}
