package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/montivagant/wonderworks-api/mailer"
	"github.com/montivagant/wonderworks-api/payments"
	"gorm.io/gorm"
)

// SetupRoutes is the single entry point that wires up the auth, catalog,
// user, admin and payment route groups.
func SetupRoutes(r *gin.Engine, db *gorm.DB, mail mailer.Mailer, pc payments.IntentClient) {
	SetupAuthRoutes(r, db, mail)

	SetupCatalogRoutes(r, db)

	SetupUserRoutes(r, db, mail, pc)

	SetupAdminRoutes(r, db, mail)

	SetupPaymentRoutes(r, db, mail)
}
