package paymentControllers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/montivagant/wonderworks-api/middleware"
	"github.com/montivagant/wonderworks-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "whsec_test"

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
		&models.User{}, &models.Order{}, &models.OrderItem{},
	))
	return db
}

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, subject)
	return nil
}

func webhookRouter(t *testing.T, db *gorm.DB, mail *fakeMailer) *gin.Engine {
	t.Helper()
	t.Setenv("PAYMENT_WEBHOOK_SECRET", testWebhookSecret)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/payment/webhook", middleware.PaymentWebhookAuth(), WebhookHandler(db, mail))
	return r
}

func seedOrder(t *testing.T, db *gorm.DB, status models.OrderStatus) models.Order {
	t.Helper()
	user := models.User{Email: "shopper@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	order := models.Order{
		OrderRef:      "ref-" + string(status),
		UserID:        user.ID,
		Status:        status,
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func eventBody(eventType string, orderID uint) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","type":%q,"data":{"object":{"id":"pi_1","metadata":{"order_id":"%d"}}}}`,
		eventType, orderID,
	))
}

func postEvent(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payment/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(middleware.SignatureHeader, signature)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	db := setupTestDB(t)
	order := seedOrder(t, db, models.OrderStatusPending)
	r := webhookRouter(t, db, &fakeMailer{})

	body := eventBody(EventIntentSucceeded, order.ID)

	w := postEvent(r, body, "deadbeef")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postEvent(r, body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Signature over a different payload must not verify either.
	w = postEvent(r, body, middleware.SignWebhookBody(testWebhookSecret, []byte("other")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var after models.Order
	require.NoError(t, db.First(&after, order.ID).Error)
	assert.Equal(t, models.OrderStatusPending, after.Status, "rejected events must not mutate the order")
}

func TestWebhookSucceededIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	order := seedOrder(t, db, models.OrderStatusPending)
	mail := &fakeMailer{}
	r := webhookRouter(t, db, mail)

	body := eventBody(EventIntentSucceeded, order.ID)
	sig := middleware.SignWebhookBody(testWebhookSecret, body)

	w := postEvent(r, body, sig)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var after models.Order
	require.NoError(t, db.First(&after, order.ID).Error)
	assert.Equal(t, models.OrderStatusProcessing, after.Status)
	assert.Equal(t, models.PaymentStatusPaid, after.PaymentStatus)
	assert.Equal(t, "pi_1", after.PaymentRef)
	assert.Len(t, mail.sent, 1)

	// Duplicate delivery: acknowledged, nothing changes, no second email.
	w = postEvent(r, body, sig)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, db.First(&after, order.ID).Error)
	assert.Equal(t, models.OrderStatusProcessing, after.Status)
	assert.Len(t, mail.sent, 1)
}

func TestWebhookFailedCancelsOrder(t *testing.T) {
	db := setupTestDB(t)
	order := seedOrder(t, db, models.OrderStatusPending)
	r := webhookRouter(t, db, &fakeMailer{})

	body := eventBody(EventIntentFailed, order.ID)
	w := postEvent(r, body, middleware.SignWebhookBody(testWebhookSecret, body))
	require.Equal(t, http.StatusOK, w.Code)

	var after models.Order
	require.NoError(t, db.First(&after, order.ID).Error)
	assert.Equal(t, models.OrderStatusCancelled, after.Status)
	assert.Equal(t, models.PaymentStatusFailed, after.PaymentStatus)
}

func TestWebhookNeverDowngradesShippedOrder(t *testing.T) {
	db := setupTestDB(t)
	order := seedOrder(t, db, models.OrderStatusShipped)
	r := webhookRouter(t, db, &fakeMailer{})

	for _, eventType := range []string{EventIntentSucceeded, EventIntentFailed} {
		body := eventBody(eventType, order.ID)
		w := postEvent(r, body, middleware.SignWebhookBody(testWebhookSecret, body))
		require.Equal(t, http.StatusOK, w.Code)

		var after models.Order
		require.NoError(t, db.First(&after, order.ID).Error)
		assert.Equal(t, models.OrderStatusShipped, after.Status,
			"late %s event must not change a shipped order", eventType)
	}
}

func TestWebhookUnknownOrderAndEvent(t *testing.T) {
	db := setupTestDB(t)
	order := seedOrder(t, db, models.OrderStatusPending)
	r := webhookRouter(t, db, &fakeMailer{})

	body := eventBody(EventIntentSucceeded, order.ID+100)
	w := postEvent(r, body, middleware.SignWebhookBody(testWebhookSecret, body))
	assert.Equal(t, http.StatusNotFound, w.Code)

	body = eventBody("charge.refunded", order.ID)
	w = postEvent(r, body, middleware.SignWebhookBody(testWebhookSecret, body))
	assert.Equal(t, http.StatusOK, w.Code)

	var after models.Order
	require.NoError(t, db.First(&after, order.ID).Error)
	assert.Equal(t, models.OrderStatusPending, after.Status)
}
