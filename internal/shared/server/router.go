package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docproc-backend/internal/contact"
	"docproc-backend/internal/conversions"
	"docproc-backend/internal/documents"
	"docproc-backend/internal/services/health"
	"docproc-backend/internal/shared/config"
	"docproc-backend/internal/shared/metrics"
	"docproc-backend/internal/shared/server/middleware"
	"docproc-backend/internal/shared/server/respond"
	"docproc-backend/internal/users"
)

// Rate limit groups.
const (
	GroupDefault = "DEFAULT"
	GroupUpload  = "UPLOAD"
	GroupLLM     = "LLM"
)

// RouterDeps carries the handlers mounted under /api/v1.
type RouterDeps struct {
	Config            config.Config
	Health            *health.Service
	DocumentHandler   *documents.Handler
	ConversionHandler *conversions.Handler
	UserHandler       *users.Handler
	ContactHandler    *contact.Handler
	RateLimits        map[string]middleware.RateLimitRule
}

// DefaultRateLimits returns the per-principal limits for each group.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		GroupDefault: {Rate: 20, Burst: 40},
		GroupUpload:  {Rate: 1, Burst: 5},
		GroupLLM:     {Rate: 0.5, Burst: 3},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	rules := deps.RateLimits
	if rules == nil {
		rules = DefaultRateLimits()
	}

	r.Use(
		middleware.RequestID(),
		middleware.Identity(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if ok, _ := status["ok"].(bool); !ok {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	limited := api.Group("")
	limited.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: GroupDefault,
		GroupFor:     rateLimitGroup,
	}))
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(limited)
	}
	if deps.ConversionHandler != nil {
		deps.ConversionHandler.RegisterRoutes(limited)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(limited)
	}
	if deps.ContactHandler != nil {
		deps.ContactHandler.RegisterRoutes(limited)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})
	return r
}

func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return GroupDefault
	}
	path := c.FullPath()
	switch {
	case strings.HasSuffix(path, "/documents/upload"):
		return GroupUpload
	case strings.HasSuffix(path, "/summarize"), strings.HasSuffix(path, "/analyze"):
		return GroupLLM
	}
	return GroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
