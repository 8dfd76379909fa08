package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parkwise/models"
	"parkwise/services/booking"
	"parkwise/services/payment"
	"parkwise/utils"
)

// PaymentHandler exposes the payment relay: order creation and callback
// verification.
type PaymentHandler struct {
	Gateway  payment.Gateway
	Bookings booking.BookingService
	Logger   *zap.Logger
}

func NewPaymentHandler(gateway payment.Gateway, bookings booking.BookingService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Gateway: gateway, Bookings: bookings, Logger: logger}
}

// CreateOrderHandler handles POST /api/create-order.
func (h *PaymentHandler) CreateOrderHandler(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	order, err := h.Gateway.CreateOrder(c.Request.Context(), req.Amount, req.Currency)
	switch {
	case errors.Is(err, payment.ErrInvalidAmount):
		utils.JSONError(c, http.StatusBadRequest, "invalid amount", "amount must be a positive integer of minor units")
		return
	case errors.Is(err, payment.ErrOrderCreationFailed):
		utils.JSONError(c, http.StatusBadGateway, "order creation failed", err.Error())
		return
	case err != nil:
		utils.JSONError(c, http.StatusInternalServerError, "order creation failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, order)
}

// VerifyPaymentHandler handles POST /api/verify-payment.
func (h *PaymentHandler) VerifyPaymentHandler(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	b, err := h.Bookings.ConfirmPayment(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature)
	switch {
	case errors.Is(err, payment.ErrSignatureMismatch):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "payment could not be verified, slot released",
		})
		return
	case errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "no booking for this order"})
		return
	case errors.Is(err, booking.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "booking is not awaiting payment"})
		return
	case err != nil:
		h.Logger.Error("payment verification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "verification failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "payment verified",
		"booking": b,
	})
}

// HealthHandler handles GET /api/health.
func HealthHandler(c *gin.Context) {
	health := utils.GetHealthStatus()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"mongo":     health.Mongo,
		"redis":     health.Redis,
		"checkedAt": health.CheckedAt,
	})
}
