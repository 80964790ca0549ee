package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"account-market/internal/auth"
	"account-market/internal/config"
	"account-market/internal/database"
	"account-market/internal/handlers"
	"account-market/internal/middleware"
	"account-market/internal/models"
	"account-market/internal/notify"
	"account-market/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// The hub carries live pushes for ticket chats and user notifications.
	hub := notify.NewHub()

	welcomePoints := 100
	if cfg.App.ReopeningPromo {
		welcomePoints = 1000
	}

	// Initialize services
	ledgerService := services.NewLedgerService(db)
	auditService := services.NewAuditService(db)
	authService := services.NewAuthService(db, ledgerService, welcomePoints)
	loyaltyService := services.NewLoyaltyService(db, ledgerService)
	referralService := services.NewReferralService(db, ledgerService)
	giftCardService := services.NewGiftCardService(db, ledgerService)
	settlementService := services.NewSettlementService(db, ledgerService, referralService, hub, auditService)
	ticketService := services.NewTicketService(db, hub)
	orderService := services.NewOrderService(db)
	userService := services.NewUserService(db, ledgerService)
	reviewService := services.NewReviewService(db)
	notificationService := services.NewNotificationService(db)

	linkBase := "http://localhost:5173"
	if len(cfg.App.FrontendOrigins) > 0 {
		linkBase = cfg.App.FrontendOrigins[0]
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, auditService)
	ticketHandler := handlers.NewTicketHandler(ticketService, settlementService, hub, auditService)
	loyaltyHandler := handlers.NewLoyaltyHandler(loyaltyService, ledgerService, auditService)
	referralHandler := handlers.NewReferralHandler(referralService, auditService, linkBase)
	giftCardHandler := handlers.NewGiftCardHandler(giftCardService, auditService)
	orderHandler := handlers.NewOrderHandler(orderService)
	userHandler := handlers.NewUserHandler(userService, ledgerService, auditService)
	profileHandler := handlers.NewProfileHandler(userService, authService, loyaltyService, orderService, ledgerService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, hub)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.FrontendOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public, rate limited)
	authLimiter := middleware.NewRateLimiter(15*time.Minute, 30)
	authRoutes := router.Group("/api/auth")
	authRoutes.Use(authLimiter.Middleware())
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Public routes
	router.GET("/api/referral/validate", referralHandler.Validate)
	router.GET("/api/reviews/public", reviewHandler.Public)
	router.GET("/api/reviews/public/summary", reviewHandler.PublicSummary)

	// SSE streams authenticate via their token query parameter because
	// EventSource cannot set headers.
	router.GET("/api/tickets/:id/stream", ticketHandler.Stream)
	router.GET("/api/notifications/stream", notificationHandler.Stream)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.GET("/auth/me", authHandler.Me)

		// Ticket endpoints
		api.POST("/tickets", ticketHandler.Create)
		api.GET("/tickets", ticketHandler.List)
		api.GET("/tickets/:id", ticketHandler.Get)
		api.POST("/tickets/:id/messages", ticketHandler.AddMessage)
		api.POST("/tickets/:id/order-paid", ticketHandler.MarkPaid)

		// Loyalty endpoints
		api.GET("/loyalty", loyaltyHandler.Overview)
		api.POST("/loyalty/redeem", loyaltyHandler.Redeem)
		api.GET("/loyalty/transactions", loyaltyHandler.Transactions)

		// Referral endpoints
		api.GET("/referral", referralHandler.Overview)

		// Gift card redemption
		api.POST("/giftcards/redeem", giftCardHandler.Redeem)

		// Orders and reviews
		api.GET("/orders", orderHandler.List)
		api.GET("/orders/:code", orderHandler.Receipt)
		api.POST("/reviews", reviewHandler.Create)

		// Profile
		api.GET("/profile", profileHandler.Get)
		api.PUT("/profile", profileHandler.Update)
		api.PUT("/profile/password", profileHandler.ChangePassword)

		// Notifications
		api.GET("/notifications", notificationHandler.Feed)
	}

	// Staff routes
	staff := router.Group("/api")
	staff.Use(auth.AuthMiddleware())
	staff.Use(auth.RequireRole(models.RoleStaff, models.RoleCEO))
	{
		staff.POST("/tickets/:id/payment-confirmed", ticketHandler.ConfirmPayment)
		staff.POST("/tickets/:id/deliver", ticketHandler.Deliver)
		staff.PUT("/tickets/:id/assign", ticketHandler.Assign)
		staff.POST("/tickets/:id/notes", ticketHandler.AddNote)
		staff.GET("/tickets/:id/notes", ticketHandler.Notes)
		staff.POST("/tickets/:id/close", ticketHandler.Close)

		staff.POST("/referral/credit", referralHandler.Credit)

		staff.GET("/users", userHandler.List)
		staff.GET("/users/:id", userHandler.Get)
		staff.GET("/users/:id/ledger", userHandler.Ledger)
		staff.PUT("/users/:id", userHandler.Update)
		staff.POST("/users/:id/points", userHandler.AdjustPoints)

		staff.GET("/reviews", reviewHandler.List)
		staff.GET("/reviews/summary", reviewHandler.Summary)
		staff.PUT("/reviews/:id/visibility", reviewHandler.SetVisibility)
	}

	// CEO-only routes
	ceo := router.Group("/api")
	ceo.Use(auth.AuthMiddleware())
	ceo.Use(auth.RequireRole(models.RoleCEO))
	{
		ceo.PUT("/users/:id/role", userHandler.UpdateRole)
		ceo.PUT("/users/:id/password", userHandler.SetPassword)
		ceo.POST("/users/:id/ban", userHandler.Ban)
		ceo.POST("/users/:id/unban", userHandler.Unban)
		ceo.GET("/loyalty/all-transactions", loyaltyHandler.AllTransactions)

		ceo.POST("/giftcards/generate", giftCardHandler.Generate)
		ceo.GET("/giftcards", giftCardHandler.List)
		ceo.GET("/activity", userHandler.Activity)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
