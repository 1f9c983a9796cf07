package orderControllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/montivagant/wonderworks-api/models"
	"github.com/shopspring/decimal"
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
		&models.User{}, &models.Address{}, &models.Category{}, &models.Product{},
		&models.ProductImage{}, &models.Review{}, &models.Cart{}, &models.CartItem{},
		&models.Wishlist{}, &models.WishlistItem{}, &models.Order{}, &models.OrderItem{},
		&models.VerificationToken{}, &models.PasswordResetToken{},
	))
	return db
}

func seedUserWithCart(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		Email:        "shopper@example.com",
		PasswordHash: "x",
		Verified:     true,
		Cart:         models.Cart{},
		Wishlist:     models.Wishlist{},
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:  name,
		SKU:   name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func addCartItem(t *testing.T, db *gorm.DB, cartID, productID uint, qty int) {
	t.Helper()
	require.NoError(t, db.Create(&models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
	}).Error)
}

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, subject)
	return nil
}

type fakeIntentClient struct {
	calls int
	fail  bool
}

func (p *fakeIntentClient) CreateIntent(orderID uint, amount decimal.Decimal, currency, email string) (string, string, error) {
	p.calls++
	if p.fail {
		return "", "", fmt.Errorf("provider unreachable")
	}
	return fmt.Sprintf("cs_test_%d", orderID), fmt.Sprintf("pi_%d", orderID), nil
}

func TestPlaceOrderTotalAndCartCleared(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithCart(t, db)
	mug := seedProduct(t, db, "mug", "19.99", 10)
	pen := seedProduct(t, db, "pen", "5.50", 10)
	addCartItem(t, db, user.Cart.CartID, mug.ID, 2)
	addCartItem(t, db, user.Cart.CartID, pen.ID, 3)

	order, err := PlaceOrder(db, user.ID, "1 Main St", "card")
	require.NoError(t, err)

	// 2*19.99 + 3*5.50
	assert.True(t, order.Total.Equal(decimal.RequireFromString("56.48")),
		"got total %s", order.Total)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Len(t, order.Items, 2)

	var persisted models.Order
	require.NoError(t, db.Preload("Items").First(&persisted, order.ID).Error)
	assert.True(t, persisted.Total.Equal(order.Total))

	var cartItems int64
	db.Model(&models.CartItem{}).Where("cart_id = ?", user.Cart.CartID).Count(&cartItems)
	assert.Zero(t, cartItems, "cart should be empty after checkout")

	var mugAfter models.Product
	require.NoError(t, db.First(&mugAfter, mug.ID).Error)
	assert.Equal(t, 8, mugAfter.Stock)
}

func TestPlaceOrderSnapshotsPriceAtPurchase(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithCart(t, db)
	mug := seedProduct(t, db, "mug", "10.00", 10)
	addCartItem(t, db, user.Cart.CartID, mug.ID, 1)

	order, err := PlaceOrder(db, user.ID, "", "card")
	require.NoError(t, err)

	// Price changes after purchase must not touch the order item.
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", mug.ID).
		Update("price", decimal.RequireFromString("99.00")).Error)

	var item models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&item).Error)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("10.00")))
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithCart(t, db)

	_, err := PlaceOrder(db, user.ID, "", "card")
	assert.ErrorIs(t, err, ErrCartEmpty)

	var orders int64
	db.Model(&models.Order{}).Count(&orders)
	assert.Zero(t, orders, "no order row may exist after a rejected checkout")
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithCart(t, db)
	mug := seedProduct(t, db, "mug", "19.99", 5)
	pen := seedProduct(t, db, "pen", "5.50", 1)
	addCartItem(t, db, user.Cart.CartID, mug.ID, 2)
	addCartItem(t, db, user.Cart.CartID, pen.ID, 3)

	_, err := PlaceOrder(db, user.ID, "", "card")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient stock")

	var orders int64
	db.Model(&models.Order{}).Count(&orders)
	assert.Zero(t, orders)

	// The mug deduction must have been rolled back with the rest.
	var mugAfter models.Product
	require.NoError(t, db.First(&mugAfter, mug.ID).Error)
	assert.Equal(t, 5, mugAfter.Stock)

	var cartItems int64
	db.Model(&models.CartItem{}).Where("cart_id = ?", user.Cart.CartID).Count(&cartItems)
	assert.Equal(t, int64(2), cartItems, "cart must survive a failed checkout")
}

func checkoutRouter(db *gorm.DB, user models.User, pc *fakeIntentClient, mail *fakeMailer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", user.ID)
		c.Set("role", user.Role)
	})
	r.POST("/user/orders", CheckoutHandler(db, pc, mail))
	r.GET("/user/orders/:orderID", GetOrderByIDHandler(db))
	r.POST("/user/orders/:orderID/cancel", CancelOrderHandler(db, mail))
	return r
}

func TestCheckoutHandlerCreatesIntent(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithCart(t, db)
	mug := seedProduct(t, db, "mug", "19.99", 10)
	addCartItem(t, db, user.Cart.CartID, mug.ID, 1)

	pc := &fakeIntentClient{}
	mail := &fakeMailer{}
	r := checkoutRouter(db, user, pc, mail)

	body, _ := json.Marshal(CheckoutRequest{ShippingAddress: "1 Main St"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "client_secret")
	assert.Equal(t, 1, pc.calls)
	assert.Contains(t, mail.sent, "Order confirmation")

	var order models.Order
	require.NoError(t, db.First(&order).Error)
	assert.Equal(t, "pi_"+fmt.Sprint(order.ID), order.PaymentRef)
}

func TestCheckoutHandlerEmptyCart(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithCart(t, db)

	pc := &fakeIntentClient{}
	r := checkoutRouter(db, user, pc, &fakeMailer{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user/orders", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, pc.calls, "no intent may be created for a rejected checkout")

	var orders int64
	db.Model(&models.Order{}).Count(&orders)
	assert.Zero(t, orders)
}

func TestCheckoutHandlerProviderFailureKeepsOrder(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithCart(t, db)
	mug := seedProduct(t, db, "mug", "19.99", 10)
	addCartItem(t, db, user.Cart.CartID, mug.ID, 1)

	pc := &fakeIntentClient{fail: true}
	r := checkoutRouter(db, user, pc, &fakeMailer{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user/orders", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "payment_error")

	var order models.Order
	require.NoError(t, db.First(&order).Error)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestCheckoutHandlerMissingUserSkipsIntent(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithCart(t, db)
	mug := seedProduct(t, db, "mug", "19.99", 10)
	addCartItem(t, db, user.Cart.CartID, mug.ID, 1)

	// Account removed between login and checkout: the order is still placed,
	// but no intent may be created with a blank receipt email.
	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)

	pc := &fakeIntentClient{}
	mail := &fakeMailer{}
	r := checkoutRouter(db, user, pc, mail)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user/orders", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "payment_error")
	assert.Zero(t, pc.calls)
	assert.Empty(t, mail.sent)

	var order models.Order
	require.NoError(t, db.First(&order).Error)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestGetOrderByRefAndByID(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithCart(t, db)
	mug := seedProduct(t, db, "mug", "19.99", 10)
	addCartItem(t, db, user.Cart.CartID, mug.ID, 1)

	order, err := PlaceOrder(db, user.ID, "1 Main St", "card")
	require.NoError(t, err)

	r := checkoutRouter(db, user, &fakeIntentClient{}, &fakeMailer{})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		return w
	}

	// The ref is non-numeric, so the lookup must hit order_ref, not id.
	w := get("/user/orders/" + order.OrderRef)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var byRef models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byRef))
	assert.Equal(t, order.ID, byRef.ID)

	w = get(fmt.Sprintf("/user/orders/%d", order.ID))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, get("/user/orders/no-such-ref").Code)

	// Another customer's session cannot read the order by either key.
	stranger := models.User{ID: user.ID + 1, Role: models.RoleCustomer}
	rs := checkoutRouter(db, stranger, &fakeIntentClient{}, &fakeMailer{})
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/user/orders/"+order.OrderRef, nil)
	rs.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelOrderTransitions(t *testing.T) {
	db := setupTestDB(t)
	user := seedUserWithCart(t, db)
	order := models.Order{OrderRef: "ref-1", UserID: user.ID, Status: models.OrderStatusPending}
	require.NoError(t, db.Create(&order).Error)

	mail := &fakeMailer{}
	r := checkoutRouter(db, user, &fakeIntentClient{}, mail)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/user/orders/%d/cancel", order.ID), nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var after models.Order
	require.NoError(t, db.First(&after, order.ID).Error)
	assert.Equal(t, models.OrderStatusCancelled, after.Status)
	assert.Contains(t, mail.sent, "Order update")

	// A shipped order can no longer be cancelled.
	shipped := models.Order{OrderRef: "ref-2", UserID: user.ID, Status: models.OrderStatusShipped}
	require.NoError(t, db.Create(&shipped).Error)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/user/orders/%d/cancel", shipped.ID), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStatusTransitionAllowList(t *testing.T) {
	assert.True(t, models.OrderStatusPending.CanTransition(models.OrderStatusProcessing))
	assert.True(t, models.OrderStatusPending.CanTransition(models.OrderStatusCancelled))
	assert.True(t, models.OrderStatusProcessing.CanTransition(models.OrderStatusShipped))
	assert.True(t, models.OrderStatusProcessing.CanTransition(models.OrderStatusCancelled))
	assert.True(t, models.OrderStatusShipped.CanTransition(models.OrderStatusDelivered))

	assert.False(t, models.OrderStatusShipped.CanTransition(models.OrderStatusCancelled))
	assert.False(t, models.OrderStatusDelivered.CanTransition(models.OrderStatusCancelled))
	assert.False(t, models.OrderStatusCancelled.CanTransition(models.OrderStatusProcessing))
	assert.False(t, models.OrderStatusPending.CanTransition(models.OrderStatusPending))
}
