package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/montivagant/wonderworks-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeMailer struct {
	sent []string // recipients, in order
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, to)
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Address{}, &models.Cart{}, &models.CartItem{},
		&models.Wishlist{}, &models.WishlistItem{},
		&models.VerificationToken{}, &models.PasswordResetToken{},
	))
	return db
}

func authRouter(t *testing.T, db *gorm.DB, mail *fakeMailer) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", RegisterHandler(db, mail))
	r.GET("/auth/verify", VerifyEmailHandler(db))
	r.POST("/auth/login", LoginHandler(db))
	r.POST("/auth/forgot-password", ForgotPasswordHandler(db, mail))
	r.POST("/auth/reset-password", ResetPasswordHandler(db))
	return r
}

func postJSON(r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterVerifyLogin(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeMailer{}
	r := authRouter(t, db, mail)

	w := postJSON(r, "/auth/register", RegisterRequest{
		Email:    "jo@example.com",
		Password: "hunter2hunter2",
		Name:     "Jo",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "jo@example.com", mail.sent[0])

	var user models.User
	require.NoError(t, db.Where("email = ?", "jo@example.com").First(&user).Error)
	assert.False(t, user.Verified)
	assert.Equal(t, models.RoleCustomer, user.Role)

	// Registration also provisions the cart and wishlist.
	var cart models.Cart
	assert.NoError(t, db.Where("user_id = ?", user.ID).First(&cart).Error)
	var wishlist models.Wishlist
	assert.NoError(t, db.Where("user_id = ?", user.ID).First(&wishlist).Error)

	// Login before verification is refused.
	w = postJSON(r, "/auth/login", LoginRequest{Email: "jo@example.com", Password: "hunter2hunter2"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var token models.VerificationToken
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&token).Error)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/verify?token="+token.Token, nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = postJSON(r, "/auth/login", LoginRequest{Email: "jo@example.com", Password: "hunter2hunter2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)

	userID, role, err := ParseSession(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, models.RoleCustomer, role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeMailer{}
	r := authRouter(t, db, mail)

	req := RegisterRequest{Email: "dup@example.com", Password: "hunter2hunter2"}
	require.Equal(t, http.StatusCreated, postJSON(r, "/auth/register", req).Code)

	// While unverified, a repeat registration just re-sends the mail.
	w := postJSON(r, "/auth/register", req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, mail.sent, 2)

	require.NoError(t, db.Model(&models.User{}).
		Where("email = ?", req.Email).Update("verified", true).Error)

	w = postJSON(r, "/auth/register", req)
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestVerifyTokenSingleUse(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeMailer{}
	r := authRouter(t, db, mail)

	require.Equal(t, http.StatusCreated, postJSON(r, "/auth/register", RegisterRequest{
		Email: "once@example.com", Password: "hunter2hunter2",
	}).Code)

	var token models.VerificationToken
	require.NoError(t, db.First(&token).Error)

	verify := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/verify?token="+token.Token, nil)
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, verify())
	assert.Equal(t, http.StatusBadRequest, verify())
}

func TestForgotAndResetPassword(t *testing.T) {
	db := setupTestDB(t)
	mail := &fakeMailer{}
	r := authRouter(t, db, mail)

	require.Equal(t, http.StatusCreated, postJSON(r, "/auth/register", RegisterRequest{
		Email: "amal@example.com", Password: "originalpass1",
	}).Code)
	require.NoError(t, db.Model(&models.User{}).
		Where("email = ?", "amal@example.com").Update("verified", true).Error)

	// Unknown addresses get the same 200 as known ones.
	w := postJSON(r, "/auth/forgot-password", ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(r, "/auth/forgot-password", ForgotPasswordRequest{Email: "amal@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mail.sent, 2) // registration + reset

	var reset models.PasswordResetToken
	require.NoError(t, db.First(&reset).Error)

	w = postJSON(r, "/auth/reset-password", ResetPasswordRequest{
		Token: reset.Token, Password: "newpassword9",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Old password is dead, new one works.
	assert.Equal(t, http.StatusUnauthorized,
		postJSON(r, "/auth/login", LoginRequest{Email: "amal@example.com", Password: "originalpass1"}).Code)
	assert.Equal(t, http.StatusOK,
		postJSON(r, "/auth/login", LoginRequest{Email: "amal@example.com", Password: "newpassword9"}).Code)

	// The consumed token is rejected on replay.
	w = postJSON(r, "/auth/reset-password", ResetPasswordRequest{
		Token: reset.Token, Password: "thirdpassword3",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
