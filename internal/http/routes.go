package http

import (
	"time"

	"diamond_tma/internal/config"
	"diamond_tma/internal/http/handlers"
	"diamond_tma/internal/http/middleware"
	"diamond_tma/internal/logger"
	"diamond_tma/internal/ratelimit"
	"diamond_tma/internal/service"
	"diamond_tma/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Auth          *service.AuthService
	Guard         ratelimit.Guard
	Hub           *ws.Hub
	Health        *handlers.HealthHandler
	RateLimit     config.RateLimitConfig
	AllowedOrigin string
	// TrustedProxies may set the client IP through X-Forwarded-For.
	// None are trusted when empty.
	TrustedProxies []string
}

// NewRouter returns an engine with the shared middleware chain and every route.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		logger.Error("invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.CORS(deps.AllowedOrigin),
	)
	RegisterRoutes(r, deps)
	return r
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	h := handlers.NewHandler(deps.Auth)

	// Health checks and metrics (no rate limiting)
	if deps.Health != nil {
		r.GET("/health", deps.Health.Health)
		r.GET("/healthz", deps.Health.Liveness)
		r.GET("/readyz", deps.Health.Readiness)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Revocation push channel
	if deps.Hub != nil {
		r.GET("/ws", ws.HandleWS(deps.Hub, deps.Auth, deps.AllowedOrigin))
	}

	v1 := r.Group("/api/v1")
	v1.Use(limit(deps.Guard, "api", deps.RateLimit.APILimit, deps.RateLimit.APIWindow)...)
	registerAPIRoutes(v1, h, deps)

	// Unversioned alias of /api/v1
	api := r.Group("/api")
	api.Use(limit(deps.Guard, "api", deps.RateLimit.APILimit, deps.RateLimit.APIWindow)...)
	registerAPIRoutes(api, h, deps)
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, deps Deps) {
	authRL := limit(deps.Guard, "auth", deps.RateLimit.AuthLimit, deps.RateLimit.AuthWindow)
	jwt := middleware.JWT(deps.Auth)

	api.POST("/auth/telegram", append(authRL, h.Auth)...)
	api.POST("/auth", append(authRL, h.Auth)...)
	api.POST("/auth/logout", jwt, h.Logout)

	api.GET("/me", jwt, h.Me)
}

// limit returns no middleware when limiting is disabled for the scope.
func limit(guard ratelimit.Guard, scope string, max int, window time.Duration) []gin.HandlerFunc {
	if guard == nil || max <= 0 {
		return nil
	}
	return []gin.HandlerFunc{middleware.RateLimit(guard, scope, max, window)}
}
