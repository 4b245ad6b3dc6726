package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/storehub/admin-identity/internal/api/handler"
	"github.com/storehub/admin-identity/internal/api/middleware"
	"github.com/storehub/admin-identity/internal/core/domain"
	"github.com/storehub/admin-identity/internal/core/service"
	mongodb "github.com/storehub/admin-identity/internal/infrastructure/db/mongo"
	"github.com/storehub/admin-identity/internal/infrastructure/queue"
)

// RouterConfig carries the settings the router needs beyond its collaborators.
type RouterConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	OTPTTL    time.Duration
	MailQueue string
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg RouterConfig, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("admin_identity"))

	// --- Dependencies ---
	accountRepo := mongodb.NewAccountRepository(db)
	mailQueue := queue.NewRedisMailQueue(rdb, cfg.MailQueue)
	mailer := service.NewMailService(mailQueue, 0, log)
	accountService := service.NewAccountService(accountRepo, mailer, cfg.JWTSecret, cfg.TokenTTL, cfg.OTPTTL, log)
	sessions := service.NewSessionResolver(accountRepo, cfg.JWTSecret)

	authHandler := handler.NewAuthHandler(accountService)
	accountHandler := handler.NewAccountHandler(accountService)
	roleHandler := handler.NewRoleHandler()

	loggedIn := middleware.Auth(sessions)
	adminOnly := middleware.RequireRole(domain.RoleAdministrator)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/verify", authHandler.Verify)
	e.POST("/auth/otp/resend", authHandler.Resend)

	// --- Profile routes (any authenticated role) ---
	profile := e.Group("/profile", loggedIn)
	profile.GET("", accountHandler.Profile)
	profile.PUT("/password", accountHandler.ChangePassword)
	profile.PUT("/email", accountHandler.ChangeEmail)

	// --- Role catalogue (Administrator only, exact role match) ---
	roles := e.Group("/roles", loggedIn, adminOnly)
	roles.GET("", roleHandler.List)
	roles.GET("/:name", roleHandler.Get)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
