package routes

import (
	"github.com/gin-gonic/gin"

	"parkwise/handlers"
)

// RegisterRoutes wires all endpoints onto the router.
func RegisterRoutes(r *gin.Engine, ph *handlers.PaymentHandler, bh *handlers.BookingHandler, lh *handlers.LotHandler) {
	api := r.Group("/api")
	{
		// Payment relay.
		api.POST("/create-order", ph.CreateOrderHandler)
		api.POST("/verify-payment", ph.VerifyPaymentHandler)
		api.GET("/health", handlers.HealthHandler)

		// Lots and availability.
		api.GET("/lots", lh.ListLots)
		api.GET("/lots/:lotID/availability", lh.GetAvailability)

		// Booking lifecycle.
		api.POST("/bookings", bh.CreateBooking)
		api.GET("/bookings/:bookingID", bh.GetBooking)
		api.POST("/bookings/:bookingID/cancel", bh.CancelBooking)
		api.POST("/bookings/:bookingID/entry", bh.RecordEntry)
		api.POST("/bookings/:bookingID/exit", bh.RecordExit)
	}
}
