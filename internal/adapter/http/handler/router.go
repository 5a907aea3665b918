package handler

import (
	"time"

	"token-ledger/internal/adapter/http/middleware"
	"token-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc      ports.AuthService
	LedgerSvc    ports.LedgerService
	ExchangeSvc  ports.ExchangeService
	AlertSvc     ports.AlertService
	ReportingSvc ports.ReportingService
	TokenSvc     ports.TokenService
	SigSvc       ports.SignatureService
	Catalog      ports.TokenCatalog

	PointsMultiplier decimal.Decimal
	ProviderSecret   string        // empty = payment webhook route disabled
	TimestampDrift   time.Duration // provider signature window

	RateLimiter    middleware.Limiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if a limiter is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	tokenHandler := NewTokenHandler(deps.LedgerSvc, deps.Catalog, deps.PointsMultiplier)
	v1.GET("/tokens", tokenHandler.List)

	// --- Payment provider callbacks (HMAC-signed) ---
	if deps.ProviderSecret != "" {
		paymentHandler := NewPaymentHandler(deps.LedgerSvc)
		sig := middleware.ProviderSignature(deps.SigSvc, deps.ProviderSecret, deps.TimestampDrift, deps.Logger)
		v1.POST("/webhooks/payments", rl("payment_webhook"), sig, paymentHandler.PaymentSucceeded)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	accountHandler := NewAccountHandler(deps.LedgerSvc, deps.ReportingSvc)
	accounts := v1.Group("/accounts/me", jwtAuth)
	{
		accounts.GET("", rl("account"), accountHandler.Me)
		accounts.POST("/credits", rl("credits"), accountHandler.PurchaseCredits)
		accounts.GET("/transactions", rl("account"), accountHandler.Transactions)
		accounts.GET("/stats", rl("account"), accountHandler.Stats)
	}

	v1.POST("/tokens/:token_id/purchase", jwtAuth, rl("token_purchase"), tokenHandler.Purchase)

	exchangeHandler := NewExchangeHandler(deps.LedgerSvc, deps.ExchangeSvc)
	v1.POST("/exchanges", jwtAuth, rl("exchange"), exchangeHandler.Redeem)

	alertHandler := NewAlertHandler(deps.AlertSvc)
	alerts := v1.Group("/alerts", jwtAuth)
	{
		alerts.GET("", rl("account"), alertHandler.ListUnread)
		alerts.POST("/read-all", rl("account"), alertHandler.MarkAllRead)
		alerts.POST("/:alert_id/read", rl("account"), alertHandler.MarkRead)
	}

	// --- Operator routes (admin capability is checked by the workflow) ---
	admin := v1.Group("/admin/exchanges", jwtAuth)
	{
		admin.GET("", rl("admin"), exchangeHandler.List)
		admin.POST("/:request_id/approve", rl("admin"), exchangeHandler.Approve)
		admin.POST("/:request_id/deny", rl("admin"), exchangeHandler.Deny)
	}

	return r
}
