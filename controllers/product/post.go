package productcontroller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/montivagant/wonderworks-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductInput struct {
	Name           string          `json:"name" binding:"required"`
	Description    string          `json:"description"`
	SKU            string          `json:"sku"`
	Price          decimal.Decimal `json:"price" binding:"required"`
	CompareAtPrice decimal.Decimal `json:"compare_at_price"`
	Stock          int             `json:"stock"`
	CategoryIDs    []uint          `json:"category_ids"`
	Images         []ImageInput    `json:"images"`
}

type ImageInput struct {
	URL      string `json:"url" binding:"required"`
	Alt      string `json:"alt"`
	Position int    `json:"position"`
}

// CreateProduct creates a product with its categories and images.
func CreateProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ProductInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.Price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
			return
		}

		var categories []models.Category
		if len(input.CategoryIDs) > 0 {
			if err := db.Where("id IN ?", input.CategoryIDs).Find(&categories).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
				return
			}
			if len(categories) != len(input.CategoryIDs) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category id"})
				return
			}
		}

		var images []models.ProductImage
		for _, img := range input.Images {
			images = append(images, models.ProductImage{
				URL:      img.URL,
				Alt:      img.Alt,
				Position: img.Position,
			})
		}

		product := models.Product{
			Name:           input.Name,
			Description:    input.Description,
			SKU:            input.SKU,
			Price:          input.Price,
			CompareAtPrice: input.CompareAtPrice,
			Stock:          input.Stock,
			Categories:     categories,
			Images:         images,
		}

		if err := db.Create(&product).Error; err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique") ||
				strings.Contains(strings.ToLower(err.Error()), "duplicate") {
				c.JSON(http.StatusConflict, gin.H{"error": "SKU already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
			return
		}

		c.JSON(http.StatusCreated, product)
	}
}
