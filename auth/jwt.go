package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/montivagant/wonderworks-api/models"
)

const SessionCookie = "session"

func jwtSecret() []byte { return []byte(os.Getenv("JWT_SECRET")) }

// IssueSession signs a 7-day HS256 session token for the user.
func IssueSession(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   float64(user.ID),
		"email": user.Email,
		"role":  string(user.Role),
		"typ":   "session",
		"exp":   time.Now().Add(7 * 24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ParseSession validates a session token and returns the user id and role.
func ParseSession(tokenString string) (uint, models.Role, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return 0, "", errors.New("invalid or expired token")
	}
	if claims["typ"] != "session" {
		return 0, "", errors.New("invalid token type")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", errors.New("invalid token subject")
	}
	role, _ := claims["role"].(string)
	return uint(sub), models.Role(role), nil
}
