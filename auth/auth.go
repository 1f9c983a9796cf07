package auth

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/montivagant/wonderworks-api/mailer"
	"github.com/montivagant/wonderworks-api/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	verificationTTL  = 24 * time.Hour
	passwordResetTTL = time.Hour
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// RegisterHandler creates a customer account plus its empty cart and wishlist,
// then sends the verification email. Duplicate emails get 409.
func RegisterHandler(db *gorm.DB, mail mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var existing models.User
		err := db.Where("email = ?", req.Email).First(&existing).Error
		if err == nil {
			if !existing.Verified {
				// Unverified duplicate: re-send the verification mail instead
				// of leaking whether the address is taken.
				sendVerificationMail(db, mail, existing)
				c.JSON(http.StatusOK, gin.H{"message": "Verification email sent"})
				return
			}
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		user := models.User{
			Email:        req.Email,
			PasswordHash: string(hash),
			Name:         req.Name,
			Role:         models.RoleCustomer,
			Cart:         models.Cart{},
			Wishlist:     models.Wishlist{},
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		sendVerificationMail(db, mail, user)
		c.JSON(http.StatusCreated, gin.H{"message": "Verification email sent"})
	}
}

func sendVerificationMail(db *gorm.DB, mail mailer.Mailer, user models.User) {
	token := models.VerificationToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(verificationTTL),
	}
	if err := db.Create(&token).Error; err != nil {
		log.Printf("failed to create verification token for user %d: %v", user.ID, err)
		return
	}
	link := fmt.Sprintf("%s/auth/verify?token=%s", mailer.PublicBaseURL(), url.QueryEscape(token.Token))
	if err := mail.Send(user.Email, "Verify your email", mailer.VerificationBody(link)); err != nil {
		log.Printf("failed to send verification email to %s: %v", user.Email, err)
	}
}

// VerifyEmailHandler consumes a verification token and marks the user verified.
func VerifyEmailHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenValue := c.Query("token")
		if tokenValue == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
			return
		}

		var token models.VerificationToken
		if err := db.Where("token = ?", tokenValue).First(&token).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification token"})
			return
		}
		if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Verification token expired"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.User{}).Where("id = ?", token.UserID).
				Update("verified", true).Error; err != nil {
				return err
			}
			now := time.Now()
			return tx.Model(&token).Update("used_at", &now).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify email"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Email verified"})
	}
}

// LoginHandler checks credentials, requires a verified address and sets the
// session cookie. The token is also returned for Bearer clients.
func LoginHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if !user.Verified {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Email not verified"})
			return
		}

		token, err := IssueSession(user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		c.SetCookie(SessionCookie, token, 7*24*3600, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"token": token, "token_type": "Bearer", "user": user})
	}
}

func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// ForgotPasswordHandler always answers 200 so the endpoint cannot be used to
// probe which emails exist. A reset token is created only for known users.
func ForgotPasswordHandler(db *gorm.DB, mail mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err == nil {
			token := models.PasswordResetToken{
				UserID:    user.ID,
				Token:     uuid.NewString(),
				ExpiresAt: time.Now().Add(passwordResetTTL),
			}
			if err := db.Create(&token).Error; err != nil {
				log.Printf("failed to create reset token for user %d: %v", user.ID, err)
			} else {
				link := fmt.Sprintf("%s/auth/reset-password?token=%s", mailer.PublicBaseURL(), url.QueryEscape(token.Token))
				if err := mail.Send(user.Email, "Reset your password", mailer.PasswordResetBody(link)); err != nil {
					log.Printf("failed to send reset email to %s: %v", user.Email, err)
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a reset link has been sent"})
	}
}

// ResetPasswordHandler consumes a reset token, stores the new hash and
// invalidates every other outstanding reset token for the user.
func ResetPasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var token models.PasswordResetToken
		if err := db.Where("token = ?", req.Token).First(&token).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reset token"})
			return
		}
		if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Reset token expired"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.User{}).Where("id = ?", token.UserID).
				Update("password_hash", string(hash)).Error; err != nil {
				return err
			}
			now := time.Now()
			return tx.Model(&models.PasswordResetToken{}).
				Where("user_id = ? AND used_at IS NULL", token.UserID).
				Update("used_at", &now).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
	}
}
