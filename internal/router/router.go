package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vidaplena/clinic-api/internal/handler/prometheus"
	"github.com/vidaplena/clinic-api/internal/middleware"
)

// Handler registers a resource's routes on a router group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit rate.Limit
	RateBurst int
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	metrics *prometheus.Handler
}

func NewRouter(auth *middleware.AuthMiddleware, metrics *prometheus.Handler, logger zerolog.Logger, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.CORS(),
		metrics.Middleware(),
	)

	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	engine.GET("/metrics", metrics.Handler())

	return &Router{engine: engine, auth: auth, metrics: metrics}
}

// Setup mounts the public handlers without authentication and the rest
// behind the JWT middleware, all under /api/v1.
func (r *Router) Setup(public []Handler, protected []Handler) {
	api := r.engine.Group("/api/v1")
	for _, h := range public {
		h.RegisterRoutes(api)
	}

	secured := api.Group("")
	secured.Use(r.auth.Authenticate())
	for _, h := range protected {
		h.RegisterRoutes(secured)
	}
}

// PublicGroup exposes the unauthenticated /api/v1 group for handlers that
// split their routes.
func (r *Router) PublicGroup() *gin.RouterGroup {
	return r.engine.Group("/api/v1")
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
