package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/translation-hub/hub-auth/internal/api/handler"
	"github.com/translation-hub/hub-auth/internal/api/middleware"
	"github.com/translation-hub/hub-auth/internal/core/domain"
	"github.com/translation-hub/hub-auth/internal/core/ports"
)

// RouterDeps carries everything the HTTP layer needs.
type RouterDeps struct {
	AuthService ports.AuthService
	// History is nil when the login audit is disabled.
	History        ports.LoginHistory
	JWTSecret      string
	AllowedOrigins []string
	Health         map[string]handler.Pinger
	Log            zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))

	authHandler := handler.NewAuthHandler(deps.AuthService, deps.History)
	socket := handler.NewSessionSocket(deps.AuthService, deps.AllowedOrigins, deps.Log)
	requireSession := []echo.MiddlewareFunc{
		middleware.Auth(deps.JWTSecret),
		middleware.LoadSession(deps.AuthService),
	}

	// --- OAuth flow ---
	e.GET("/auth/url", authHandler.AuthURL)
	e.GET("/auth/login", authHandler.Login)
	e.GET("/auth/callback", authHandler.Callback)

	// --- Session (any authenticated role) ---
	v1 := e.Group("/v1", requireSession...)
	v1.GET("/session", authHandler.Session)
	v1.POST("/session/refresh", authHandler.Refresh)
	v1.POST("/logout", authHandler.Logout)
	v1.GET("/session/ws", socket.Stream)

	// --- Admin ---
	admin := v1.Group("/admin", middleware.RBAC(domain.RoleAdmin))
	admin.GET("/sessions/:sid", authHandler.AdminGetSession)
	admin.PUT("/sessions/:sid/role", authHandler.AdminUpdateRole)
	admin.GET("/users/:id/logins", authHandler.AdminLoginHistory)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Health)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Ops ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURIPath:   true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/health" || p == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
