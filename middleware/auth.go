package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/montivagant/wonderworks-api/auth"
	"github.com/montivagant/wonderworks-api/models"
)

// RequireSession authenticates the request from the session cookie or a
// Bearer token and stores user_id and role in the context.
func RequireSession(c *gin.Context) {
	var tokenString string
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		tokenString = strings.TrimPrefix(header, "Bearer ")
	}
	if tokenString == "" {
		if v, err := c.Cookie(auth.SessionCookie); err == nil {
			tokenString = v
		}
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
		c.Abort()
		return
	}

	userID, role, err := auth.ParseSession(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
		c.Abort()
		return
	}

	c.Set("user_id", userID)
	c.Set("role", role)
	c.Next()
}

// RequireAdmin gates admin routes. Must run after RequireSession.
func RequireAdmin(c *gin.Context) {
	roleVal, exists := c.Get("role")
	if !exists || roleVal.(models.Role) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		c.Abort()
		return
	}
	c.Next()
}

// UserID returns the authenticated user's id from the context.
func UserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
