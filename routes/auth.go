package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/montivagant/wonderworks-api/auth"
	"github.com/montivagant/wonderworks-api/mailer"
	"gorm.io/gorm"
)

// SetupAuthRoutes registers all "/auth/*" endpoints (no middleware).
func SetupAuthRoutes(r *gin.Engine, db *gorm.DB, mail mailer.Mailer) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", auth.RegisterHandler(db, mail))
		authGroup.GET("/verify", auth.VerifyEmailHandler(db))
		authGroup.POST("/login", auth.LoginHandler(db))
		authGroup.POST("/logout", auth.LogoutHandler())
		authGroup.POST("/forgot-password", auth.ForgotPasswordHandler(db, mail))
		authGroup.POST("/reset-password", auth.ResetPasswordHandler(db))
	}
}
