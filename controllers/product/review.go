package productcontroller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/montivagant/wonderworks-api/middleware"
	"github.com/montivagant/wonderworks-api/models"
	"gorm.io/gorm"
)

type ReviewInput struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// recomputeProductRating refreshes the denormalized average and count after a
// review write. Runs inside the review's transaction.
func recomputeProductRating(tx *gorm.DB, productID uint) error {
	var result struct {
		Avg   float64
		Count int64
	}
	if err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&result).Error; err != nil {
		return err
	}
	return tx.Model(&models.Product{}).Where("id = ?", productID).
		Updates(map[string]interface{}{
			"rating_average": result.Avg,
			"rating_count":   result.Count,
		}).Error
}

// UpsertReview creates or replaces the caller's review for the product, one
// review per user and product.
func UpsertReview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var product models.Product
		if err := db.First(&product, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		var input ReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var review models.Review
		created := false
		err := db.Transaction(func(tx *gorm.DB) error {
			err := tx.Where("product_id = ? AND user_id = ?", product.ID, userID).First(&review).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				created = true
				review = models.Review{
					ProductID: product.ID,
					UserID:    userID,
					Rating:    input.Rating,
					Title:     input.Title,
					Body:      input.Body,
				}
				if err := tx.Create(&review).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			} else {
				review.Rating = input.Rating
				review.Title = input.Title
				review.Body = input.Body
				if err := tx.Save(&review).Error; err != nil {
					return err
				}
			}
			return recomputeProductRating(tx, product.ID)
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save review"})
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, review)
	}
}

// DeleteReview removes the caller's review and refreshes the product rating.
func DeleteReview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var review models.Review
		if err := db.Where("product_id = ? AND user_id = ?", c.Param("id"), userID).First(&review).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&review).Error; err != nil {
				return err
			}
			return recomputeProductRating(tx, review.ProductID)
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete review"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
	}
}

// GetProductReviews lists a product's reviews, newest first.
func GetProductReviews(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reviews []models.Review
		if err := db.Where("product_id = ?", c.Param("id")).
			Preload("User").
			Order("created_at DESC").
			Find(&reviews).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
			return
		}
		c.JSON(http.StatusOK, reviews)
	}
}
