package paymentControllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	orderControllers "github.com/montivagant/wonderworks-api/controllers/order"
	"github.com/montivagant/wonderworks-api/mailer"
	"github.com/montivagant/wonderworks-api/middleware"
	"github.com/montivagant/wonderworks-api/models"
	"gorm.io/gorm"
)

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// WebhookEvent is the provider's signed callback payload. The order id rides
// in the intent metadata set at intent creation.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// WebhookHandler consumes the verified payment event. Succeeded events move a
// pending order to processing/paid; failed events cancel it. Both go through
// the transition allow-list, so replays and late events are no-ops: an order
// that already moved on is never downgraded.
func WebhookHandler(db *gorm.DB, mail mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := middleware.WebhookBody(c)
		if body == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing payload"})
			return
		}

		var event WebhookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}

		orderIDStr := event.Data.Object.Metadata["order_id"]
		orderID, err := strconv.ParseUint(orderIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing order_id metadata"})
			return
		}

		var order models.Order
		if err := db.Preload("Items").First(&order, uint(orderID)).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}

		switch event.Type {
		case EventIntentSucceeded:
			applyTransition(c, db, mail, order, models.OrderStatusProcessing, models.PaymentStatusPaid, event.Data.Object.ID)
		case EventIntentFailed:
			applyTransition(c, db, mail, order, models.OrderStatusCancelled, models.PaymentStatusFailed, event.Data.Object.ID)
		default:
			// Unknown event types are acknowledged so the provider stops retrying.
			c.JSON(http.StatusOK, gin.H{"message": "event ignored"})
		}
	}
}

func applyTransition(c *gin.Context, db *gorm.DB, mail mailer.Mailer, order models.Order, status models.OrderStatus, paymentStatus models.PaymentStatus, intentID string) {
	if !order.Status.CanTransition(status) {
		// Duplicate delivery or a late event for an order that already moved
		// on. Acknowledge without mutating.
		c.JSON(http.StatusOK, gin.H{"message": "no status change applied"})
		return
	}

	updates := map[string]interface{}{
		"status":         status,
		"payment_status": paymentStatus,
	}
	if intentID != "" {
		updates["payment_ref"] = intentID
	}
	if err := db.Model(&order).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order"})
		return
	}
	order.Status = status
	order.PaymentStatus = paymentStatus

	var user models.User
	if err := db.First(&user, order.UserID).Error; err == nil {
		if err := mail.Send(user.Email, "Order update", mailer.OrderStatusBody(order)); err != nil {
			log.Printf("failed to send payment status email for order %d: %v", order.ID, err)
		}
	}
	orderControllers.BroadcastOrderUpdate(order)

	c.JSON(http.StatusOK, gin.H{"message": "order updated", "status": status})
}
