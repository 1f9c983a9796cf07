package routes

import (
	"github.com/gin-gonic/gin"
	paymentControllers "github.com/montivagant/wonderworks-api/controllers/payment"
	"github.com/montivagant/wonderworks-api/mailer"
	"github.com/montivagant/wonderworks-api/middleware"
	"gorm.io/gorm"
)

// SetupPaymentRoutes registers the provider webhook. The signature middleware
// runs before the handler, so unverified payloads never reach it.
func SetupPaymentRoutes(r *gin.Engine, db *gorm.DB, mail mailer.Mailer) {
	payment := r.Group("/payment")
	{
		payment.POST("/webhook",
			middleware.PaymentWebhookAuth(),
			paymentControllers.WebhookHandler(db, mail),
		)
	}
}
