package userControllers

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
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()
	u := models.User{Email: email, PasswordHash: "x", Role: role, Verified: true, Cart: models.Cart{}}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func adminRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", uint(1))
		c.Set("role", models.RoleAdmin)
	})
	r.PUT("/admin/users/:id/role", UpdateUserRole(db))
	r.DELETE("/admin/users/:id", DeleteUser(db))
	return r
}

func putRole(r *gin.Engine, userID uint, role string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(UpdateRoleInput{Role: role})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/admin/users/%d/role", userID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateUserRole(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "boss@example.com", models.RoleAdmin)
	customer := seedUser(t, db, "cust@example.com", models.RoleCustomer)
	r := adminRouter(db)

	require.Equal(t, http.StatusOK, putRole(r, customer.ID, "admin").Code)

	var promoted models.User
	require.NoError(t, db.First(&promoted, customer.ID).Error)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	assert.Equal(t, http.StatusBadRequest, putRole(r, customer.ID, "superuser").Code)
	assert.Equal(t, http.StatusNotFound, putRole(r, 999, "admin").Code)
}

func TestCannotDemoteLastAdmin(t *testing.T) {
	db := setupTestDB(t)
	admin := seedUser(t, db, "boss@example.com", models.RoleAdmin)
	other := seedUser(t, db, "second@example.com", models.RoleAdmin)
	r := adminRouter(db)

	// Two admins: the first demotion goes through.
	require.Equal(t, http.StatusOK, putRole(r, other.ID, "customer").Code)

	// Now only one remains.
	w := putRole(r, admin.ID, "customer")
	assert.Equal(t, http.StatusConflict, w.Code)

	var still models.User
	require.NoError(t, db.First(&still, admin.ID).Error)
	assert.Equal(t, models.RoleAdmin, still.Role)
}

func TestCannotDeleteLastAdmin(t *testing.T) {
	db := setupTestDB(t)
	admin := seedUser(t, db, "boss@example.com", models.RoleAdmin)
	customer := seedUser(t, db, "cust@example.com", models.RoleCustomer)
	r := adminRouter(db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/admin/users/%d", admin.ID), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/admin/users/%d", customer.ID), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
