// File: parkwise/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"parkwise/config"
	"parkwise/cron"
	"parkwise/database"
	bookingRepoPkg "parkwise/database/repository/booking"
	lotRepoPkg "parkwise/database/repository/lot"
	"parkwise/handlers"
	"parkwise/middleware"
	"parkwise/routes"
	"parkwise/services/booking"
	"parkwise/services/ledger"
	"parkwise/services/payment"
	"parkwise/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.StartHealthMonitor(utils.GetCacheClient(), database.MongoClient)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(cors.Default())
	router.Use(middleware.RateLimitMiddleware())

	// Repositories.
	lotRepo := lotRepoPkg.NewMongoLotRepo()
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()

	// Services.
	ledgerSvc := &ledger.DefaultLedger{
		Repo:        lotRepo,
		Logger:      logger,
		MaxRetries:  config.AppConfig.ReserveMaxRetries,
		NoShowAfter: time.Duration(config.AppConfig.NoShowMinutes) * time.Minute,
	}
	gateway := payment.NewRazorpayGateway(
		config.AppConfig.RazorpayKeyID,
		config.AppConfig.RazorpayKeySecret,
		logger,
	)
	bookingSvc := &booking.DefaultBookingService{
		Repo:            bookingRepo,
		Ledger:          ledgerSvc,
		Payments:        gateway,
		Cache:           utils.GetCacheClient(),
		Logger:          logger,
		Grace:           time.Duration(config.AppConfig.GraceMinutes) * time.Minute,
		NoShowWarnAfter: time.Duration(config.AppConfig.NoShowWarnMinutes) * time.Minute,
		NoShowAfter:     time.Duration(config.AppConfig.NoShowMinutes) * time.Minute,
	}

	// Background no-show sweep.
	cron.InitNoShowSweeper(bookingSvc)

	// Handlers and routes.
	paymentHandler := handlers.NewPaymentHandler(gateway, bookingSvc, logger)
	bookingHandler := handlers.NewBookingHandler(bookingSvc, logger)
	lotHandler := handlers.NewLotHandler(ledgerSvc, logger)
	routes.RegisterRoutes(router, paymentHandler, bookingHandler, lotHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
