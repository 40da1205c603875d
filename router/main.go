package router

import (
	"log"
	"os"
	"time"

	"github.com/edusouq/payments-api/audit"
	"github.com/edusouq/payments-api/config"
	"github.com/edusouq/payments-api/database"
	"github.com/edusouq/payments-api/gateway"
	"github.com/edusouq/payments-api/handlers"
	coupon_handlers "github.com/edusouq/payments-api/handlers/coupon"
	payment_handlers "github.com/edusouq/payments-api/handlers/payment"
	wallet_handlers "github.com/edusouq/payments-api/handlers/wallet"
	"github.com/edusouq/payments-api/services"
	"github.com/edusouq/payments-api/utils/auth"
	"github.com/edusouq/payments-api/utils/cache"
	"github.com/edusouq/payments-api/utils/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, store database.Storage) {
	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if getEnv.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := getEnv.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "edusouq-identity"
	}

	// The JWT manager validates tokens minted by the identity provider;
	// secret and issuer must match the provider's.
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: getEnv.JWT_SECRET,
		Expiry: 24 * time.Hour,
		Issuer: jwtIssuer,
	})

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Cache for enrollment-check memoization. Redis in production; the
	// reconciler degrades to direct DB checks when it is unavailable.
	var reconcileCache cache.Cache
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	if redisCache, err := cache.NewRedisCache(redisURL); err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Enrollment memoization disabled.", err)
	} else {
		reconcileCache = redisCache
	}

	// Payment gateway client + webhook verifier
	gatewayClient := gateway.NewClient(gateway.Config{
		APIKey:        getEnv.PAYMOB_API_KEY,
		BaseURL:       getEnv.PAYMOB_BASE_URL,
		IntegrationID: getEnv.PAYMOB_INTEGRATION_ID,
		IframeID:      getEnv.PAYMOB_IFRAME_ID,
		Timeout:       time.Duration(getEnv.GATEWAY_TIMEOUT_SECS) * time.Second,
	})
	verifier := gateway.NewVerifier(getEnv.PAYMOB_HMAC_SECRET)

	// Webhook audit archive (best effort; Nop when unconfigured)
	var archiver audit.Archiver = audit.NopArchiver{}
	if getEnv.AUDIT_BUCKET != "" {
		spacesArchiver, err := audit.NewSpacesArchiver(audit.SpacesConfig{
			AccessKey: getEnv.AUDIT_ACCESS_KEY,
			SecretKey: getEnv.AUDIT_SECRET_KEY,
			Bucket:    getEnv.AUDIT_BUCKET,
			Region:    getEnv.AUDIT_REGION,
			Endpoint:  getEnv.AUDIT_ENDPOINT,
		})
		if err != nil {
			log.Printf("Warning: Failed to init webhook archive: %v. Archiving disabled.", err)
		} else {
			archiver = spacesArchiver
		}
	}

	// Services
	couponService := services.NewCouponService(db)
	walletService := services.NewWalletService(db)
	reconciler := services.NewReconciler(db, reconcileCache, walletService, couponService)
	paymentService := services.NewPaymentService(db, gatewayClient, couponService, walletService, reconciler)
	statusService := services.NewStatusService(db)

	// Middleware & handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)
	paymentHandler := payment_handlers.NewPaymentHandler(
		db, paymentService, reconciler, statusService, verifier, gatewayClient, archiver)
	walletHandler := wallet_handlers.NewWalletHandler(db, walletService)
	couponHandler := coupon_handlers.NewCouponHandler(db, couponService)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 120,
		RateLimitWindow:   time.Minute,
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return handlers.HandleCheckHealth(c, store)
	})

	v1 := app.Group("/api/v1")

	// Webhook is server-to-server from the gateway: authenticated by
	// HMAC, not by a user session.
	v1.Post("/payments/webhook", paymentHandler.Webhook)

	// Authenticated payment routes
	payments := v1.Group("/payments", authMiddleware.Required())
	payments.Post("/checkout", paymentHandler.Checkout)
	payments.Get("/status", paymentHandler.Status)
	payments.Get("/iframe/:merchantOrderId", paymentHandler.Iframe)

	// Wallet
	v1.Get("/wallet", authMiddleware.Required(), walletHandler.GetWallet)

	// Coupon validation (checkout preview)
	v1.Post("/coupons/validate", authMiddleware.Required(), couponHandler.Validate)

	// Admin
	admin := v1.Group("/admin", authMiddleware.Required(), authMiddleware.RequireAdmin())
	admin.Get("/payments", paymentHandler.ListPayments)
	admin.Post("/coupons", couponHandler.CreateCoupon)
	admin.Get("/coupons", couponHandler.ListCoupons)
	admin.Patch("/coupons/:id", couponHandler.UpdateCoupon)
}
