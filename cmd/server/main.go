package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/tastecircle/tastecircle/internal/handler"
	"github.com/tastecircle/tastecircle/internal/middleware"
	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/internal/notify"
	"github.com/tastecircle/tastecircle/internal/payment"
	"github.com/tastecircle/tastecircle/pkg/config"
	"github.com/tastecircle/tastecircle/pkg/database"
	"github.com/tastecircle/tastecircle/pkg/jwtutil"
	"github.com/tastecircle/tastecircle/pkg/logger"
	"github.com/tastecircle/tastecircle/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting tastecircle server...", cfg.LogFields()...)

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(model.AllModels...); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)

	// Payment webhook processor: explicitly constructed and injected rather
	// than living in package state.
	processor := payment.NewProcessor(db, cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance, log)
	if cfg.Stripe.WebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET is not set; webhook deliveries will be rejected")
	}

	// Best-effort decision notifications
	dispatcher := notify.NewDispatcher(cfg.Notify.WebhookURL, cfg.Notify.MaxRetries, cfg.Notify.RetryDelay, log)
	defer dispatcher.Close()
	handler.SetNotifier(dispatcher)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.GET("/groups", handler.ListGroups)
	e.GET("/groups/:id", handler.GetGroup)
	e.GET("/groups/:id/coupons", handler.ListGroupCoupons)
	e.GET("/merchants", handler.ListMerchants)

	// Payment provider webhook - raw body, no auth middleware
	e.POST("/webhook", handler.NewWebhookHandler(processor))

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)

	// Authenticated routes
	api := e.Group("")
	api.Use(middleware.AuthMiddleware)

	api.GET("/me", handler.GetProfile)
	api.GET("/me/purchases", handler.ListMyPurchases)
	api.POST("/purchases", handler.RegisterCheckout)

	api.PUT("/groups/:id", handler.UpdateGroup)

	api.POST("/merchants", handler.CreateMerchant)
	api.PUT("/merchants/:id", handler.UpdateMerchant)
	api.DELETE("/merchants/:id", handler.DeleteMerchant)

	api.PUT("/coupons/:id", handler.UpdateCoupon)
	api.DELETE("/coupons/:id", handler.DeleteCoupon)
	api.POST("/coupons/:id/redeem", handler.RedeemCoupon)

	api.POST("/submissions/coupons", handler.CreateCouponSubmission)
	api.GET("/submissions/coupons", handler.ListCouponSubmissions)
	api.POST("/submissions/coupons/:id/approve", handler.ApproveCouponSubmission)
	api.POST("/submissions/coupons/:id/reject", handler.RejectCouponSubmission)
	api.POST("/submissions/events", handler.CreateEventSubmission)
	api.POST("/submissions/events/:id/approve", handler.ApproveEventSubmission)
	api.POST("/submissions/events/:id/reject", handler.RejectEventSubmission)

	// Admin routes
	admin := e.Group("/admin")
	admin.Use(middleware.AuthMiddleware)
	admin.Use(middleware.RequireAdmin)
	admin.GET("/users", handler.ListUsers)
	admin.PATCH("/users/:id", handler.UpdateUserRole)
	admin.POST("/users/:id/disable", handler.DisableUser)
	admin.POST("/users/:id/anonymize", handler.AnonymizeUser)
	admin.POST("/groups", handler.CreateGroup)
	admin.POST("/coupons", handler.CreateCoupon)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
