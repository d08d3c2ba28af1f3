package api

import (
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/tradedesk/auth-service/docs"
	"github.com/tradedesk/auth-service/internal/api/handler"
	"github.com/tradedesk/auth-service/internal/api/middleware"
	"github.com/tradedesk/auth-service/internal/core/ports"
)

// Deps are the collaborators the HTTP layer needs. They are built once in
// main and injected here.
type Deps struct {
	Env           string
	AuthService   ports.AuthService
	Users         ports.UserRepository
	Tokens        ports.TokenVerifier
	LookupTimeout time.Duration
	Mongo         handler.MongoPinger
	// Redis is nil when the identity cache is disabled.
	Redis  handler.RedisPinger
	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// Per-router registry so several routers (tests) can coexist; /metrics
	// serves it together with the package-level auth collectors.
	httpMetrics := prometheus.NewRegistry()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: httpMetrics,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	dashboardHandler := handler.NewDashboardHandler()
	requireAuth := middleware.Auth(d.Tokens, d.Users, d.LookupTimeout, d.Logger.With().Str("component", "auth_middleware").Logger())

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", authHandler.Me, requireAuth)
	auth.POST("/verify", authHandler.Verify, requireAuth)

	// --- Protected routes ---
	e.GET("/dashboard", dashboardHandler.Show, requireAuth)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(d.Env)
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Mongo, d.Redis, d.Logger)

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, httpMetrics},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
