package orderControllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/montivagant/wonderworks-api/mailer"
	"github.com/montivagant/wonderworks-api/middleware"
	"github.com/montivagant/wonderworks-api/models"
	"github.com/montivagant/wonderworks-api/payments"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCartEmpty = errors.New("cart is empty")

// -------- Request Structs --------

type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
	Currency        string `json:"currency"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type BulkOrderStatusRequest struct {
	IDs    []uint `json:"ids" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// -------- Helpers --------

func mapOrderStatus(status string) (models.OrderStatus, error) {
	switch strings.ToLower(status) {
	case string(models.OrderStatusPending):
		return models.OrderStatusPending, nil
	case string(models.OrderStatusProcessing):
		return models.OrderStatusProcessing, nil
	case string(models.OrderStatusShipped):
		return models.OrderStatusShipped, nil
	case string(models.OrderStatusDelivered):
		return models.OrderStatusDelivered, nil
	case string(models.OrderStatusCancelled):
		return models.OrderStatusCancelled, nil
	default:
		return "", errors.New("invalid order status")
	}
}

func generateOrderRef() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}

// -------- Core Logic --------

// PlaceOrder snapshots the user's cart into a new pending order. In one
// transaction it locks the product rows, checks and deducts stock, creates
// the order and its items priced at the current product price, and clears
// the cart items.
func PlaceOrder(db *gorm.DB, userID uint, shippingAddress, paymentMethod string) (models.Order, error) {
	var cart models.Cart
	if err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return models.Order{}, err
	}
	if len(cart.Items) == 0 {
		return models.Order{}, ErrCartEmpty
	}

	var order models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero
		var orderItems []models.OrderItem

		for _, item := range cart.Items {
			q := tx.Preload("Images")
			// SQLite has no row locks.
			if tx.Dialector.Name() == "postgres" {
				q = q.Clauses(clause.Locking{Strength: "UPDATE"})
			}
			var product models.Product
			if err := q.First(&product, "id = ?", item.ProductID).Error; err != nil {
				return err
			}

			if product.Stock < item.Quantity {
				return errors.New("insufficient stock for product: " + product.Name)
			}

			product.Stock -= item.Quantity
			if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
				Update("stock", product.Stock).Error; err != nil {
				return err
			}

			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))

			imageURL := ""
			if len(product.Images) > 0 {
				imageURL = product.Images[0].URL
			}
			orderItems = append(orderItems, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				ImageURL:  imageURL,
				UnitPrice: product.Price,
				Quantity:  item.Quantity,
			})
		}

		order = models.Order{
			OrderRef:        generateOrderRef(),
			UserID:          userID,
			Items:           orderItems,
			Total:           total,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			PaymentMethod:   paymentMethod,
			ShippingAddress: shippingAddress,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		return tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// -------- Handlers --------

// CheckoutHandler places the order, then (outside the transaction) sends the
// confirmation email and creates the payment intent. Both side effects are
// best-effort: the order stays placed if either fails.
func CheckoutHandler(db *gorm.DB, pc payments.IntentClient, mail mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		shippingAddress := req.ShippingAddress
		if shippingAddress == "" {
			shippingAddress = defaultAddressLine(db, userID)
		}
		paymentMethod := req.PaymentMethod
		if paymentMethod == "" {
			paymentMethod = "card"
		}

		order, err := PlaceOrder(db, userID, shippingAddress, paymentMethod)
		if err != nil {
			if errors.Is(err, ErrCartEmpty) || strings.HasPrefix(err.Error(), "insufficient stock") {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
			return
		}

		currency := req.Currency
		if currency == "" {
			currency = "usd"
		}

		resp := gin.H{"order": order}
		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			// No receipt email to give the provider; the storefront can retry
			// payment. Order stays pending.
			log.Printf("failed to load user %d after placing order %d: %v", userID, order.ID, err)
			resp["payment_error"] = "payment intent creation failed"
		} else {
			if err := mail.Send(user.Email, "Order confirmation", mailer.OrderConfirmationBody(order)); err != nil {
				log.Printf("failed to send order confirmation for order %d: %v", order.ID, err)
			}

			clientSecret, intentID, err := pc.CreateIntent(order.ID, order.Total, currency, user.Email)
			if err != nil {
				// Order stays pending; the storefront can retry payment.
				log.Printf("failed to create payment intent for order %d: %v", order.ID, err)
				resp["payment_error"] = "payment intent creation failed"
			} else {
				db.Model(&models.Order{}).Where("id = ?", order.ID).Update("payment_ref", intentID)
				resp["client_secret"] = clientSecret
			}
		}

		BroadcastOrderUpdate(order)
		c.JSON(http.StatusCreated, resp)
	}
}

func defaultAddressLine(db *gorm.DB, userID uint) string {
	var addr models.Address
	if err := db.Where("user_id = ? AND is_default = ?", userID, true).First(&addr).Error; err != nil {
		return ""
	}
	parts := []string{addr.Line1}
	if addr.Line2 != "" {
		parts = append(parts, addr.Line2)
	}
	parts = append(parts, addr.City, addr.State, addr.PostalCode, addr.Country)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// GetUserOrdersHandler lists the authenticated user's orders, newest first.
func GetUserOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var orders []models.Order
		if err := db.
			Where("user_id = ?", userID).
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GetOrderByIDHandler returns one order by numeric id or order ref. Customers
// only see their own orders; admins see any.
func GetOrderByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("orderID")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
			return
		}

		// Refs are non-numeric, so binding one against the bigint id column
		// would fail on postgres.
		query := db.Preload("Items")
		if _, err := strconv.ParseUint(id, 10, 64); err == nil {
			query = query.Where("id = ?", id)
		} else {
			query = query.Where("order_ref = ?", id)
		}
		if role, _ := c.Get("role"); role != models.RoleAdmin {
			userID, _ := middleware.UserID(c)
			query = query.Where("user_id = ?", userID)
		}

		var order models.Order
		if err := query.First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// CancelOrderHandler lets a customer cancel their own order while the
// transition allow-list still permits it (pending or processing).
func CancelOrderHandler(db *gorm.DB, mail mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var order models.Order
		if err := db.Where("id = ? AND user_id = ?", c.Param("orderID"), userID).First(&order).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}

		if !order.Status.CanTransition(models.OrderStatusCancelled) {
			c.JSON(http.StatusConflict, gin.H{"error": "Order can no longer be cancelled"})
			return
		}

		if err := db.Model(&order).Update("status", models.OrderStatusCancelled).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel order"})
			return
		}
		order.Status = models.OrderStatusCancelled

		notifyStatusChange(db, mail, order)
		BroadcastOrderUpdate(order)
		c.JSON(http.StatusOK, order)
	}
}

// -------- Admin Handlers --------

func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Preload("User").Preload("Items").Order("created_at DESC")
		if status := c.Query("status"); status != "" {
			mapped, err := mapOrderStatus(status)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			query = query.Where("status = ?", mapped)
		}
		var orders []models.Order
		if err := query.Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// UpdateOrderStatusHandler applies a single status change, rejected with 409
// when the transition allow-list forbids it.
func UpdateOrderStatusHandler(db *gorm.DB, mail mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		newStatus, err := mapOrderStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var order models.Order
		if err := db.Preload("Items").First(&order, "id = ?", c.Param("orderID")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}

		if !order.Status.CanTransition(newStatus) {
			c.JSON(http.StatusConflict, gin.H{"error": "Invalid status transition"})
			return
		}

		if err := db.Model(&order).Update("status", newStatus).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
			return
		}
		order.Status = newStatus

		notifyStatusChange(db, mail, order)
		BroadcastOrderUpdate(order)
		c.JSON(http.StatusOK, order)
	}
}

// BulkUpdateOrderStatusHandler applies one status to a set of orders and
// reports the ids that were updated and the ids whose current status does not
// allow the transition.
func BulkUpdateOrderStatusHandler(db *gorm.DB, mail mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BulkOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		newStatus, err := mapOrderStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updated := []uint{}
		skipped := []uint{}
		for _, id := range req.IDs {
			var order models.Order
			if err := db.First(&order, id).Error; err != nil {
				skipped = append(skipped, id)
				continue
			}
			if !order.Status.CanTransition(newStatus) {
				skipped = append(skipped, id)
				continue
			}
			if err := db.Model(&order).Update("status", newStatus).Error; err != nil {
				skipped = append(skipped, id)
				continue
			}
			order.Status = newStatus
			notifyStatusChange(db, mail, order)
			BroadcastOrderUpdate(order)
			updated = append(updated, id)
		}

		c.JSON(http.StatusOK, gin.H{"updated": updated, "skipped": skipped})
	}
}

// notifyStatusChange emails the order owner. Failures are logged and swallowed.
func notifyStatusChange(db *gorm.DB, mail mailer.Mailer, order models.Order) {
	var user models.User
	if err := db.First(&user, order.UserID).Error; err != nil {
		log.Printf("failed to load user %d for order %d notification: %v", order.UserID, order.ID, err)
		return
	}
	if err := mail.Send(user.Email, "Order update", mailer.OrderStatusBody(order)); err != nil {
		log.Printf("failed to send status email for order %d: %v", order.ID, err)
	}
}
