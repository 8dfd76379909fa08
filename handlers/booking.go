package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parkwise/models"
	"parkwise/services/booking"
	"parkwise/services/ledger"
	"parkwise/services/payment"
	"parkwise/utils"
)

// BookingHandler exposes the booking lifecycle endpoints.
type BookingHandler struct {
	Service booking.BookingService
	Logger  *zap.Logger
}

func NewBookingHandler(service booking.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: service, Logger: logger}
}

type createBookingRequest struct {
	UserID  string    `json:"userId" binding:"required"`
	LotID   string    `json:"lotId" binding:"required"`
	SlotID  string    `json:"slotId" binding:"required"`
	Vehicle string    `json:"vehicle"`
	Start   time.Time `json:"start" binding:"required"`
	End     time.Time `json:"end" binding:"required"`
	Method  string    `json:"method"`
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	method := models.PaymentMethod(req.Method)
	if method == "" {
		method = models.MethodPrepaid
	}
	if method != models.MethodPrepaid && method != models.MethodPayAsYouGo {
		utils.JSONError(c, http.StatusBadRequest, "invalid payment method", string(method))
		return
	}

	result, err := h.Service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		UserID:  req.UserID,
		LotID:   req.LotID,
		SlotID:  req.SlotID,
		Vehicle: req.Vehicle,
		Start:   req.Start,
		End:     req.End,
		Method:  method,
	})
	if err != nil {
		h.renderBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetBooking handles GET /api/bookings/:bookingID.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		h.renderBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBooking handles POST /api/bookings/:bookingID/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	b, err := h.Service.Cancel(c.Request.Context(), c.Param("bookingID"), "cancelled by user")
	if err != nil {
		h.renderBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// RecordEntry handles POST /api/bookings/:bookingID/entry.
func (h *BookingHandler) RecordEntry(c *gin.Context) {
	b, err := h.Service.RecordEntry(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		h.renderBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// RecordExit handles POST /api/bookings/:bookingID/exit.
func (h *BookingHandler) RecordExit(c *gin.Context) {
	b, err := h.Service.RecordExit(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		h.renderBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) renderBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInterval):
		utils.JSONError(c, http.StatusBadRequest, "invalid interval", err.Error())
	case errors.Is(err, ledger.ErrSlotTaken), errors.Is(err, ledger.ErrRetryExhausted):
		utils.JSONError(c, http.StatusConflict, "slot unavailable, please pick another slot", err.Error())
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, booking.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, booking.ErrInvalidState):
		utils.JSONError(c, http.StatusConflict, "invalid booking state", err.Error())
	case errors.Is(err, payment.ErrOrderCreationFailed):
		utils.JSONError(c, http.StatusBadGateway, "payment order creation failed", err.Error())
	default:
		h.Logger.Error("booking request failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}
