package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/suminyol/ayursutra-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORS             middleware.CORSConfig
}

type Router struct {
	engine         *gin.Engine
	auth           *middleware.AuthMiddleware
	authH          Handler
	doctorH        Handler
	appointmentH   Handler
	treatmentH     Handler
	treatmentPlanH Handler
	notificationH  Handler
	healthH        Handler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH Handler,
	doctorH Handler,
	appointmentH Handler,
	treatmentH Handler,
	treatmentPlanH Handler,
	notificationH Handler,
	healthH Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Timeout(middleware.DefaultTimeoutConfig()))
	engine.Use(middleware.CORS(config.CORS))
	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	r := &Router{
		engine:         engine,
		auth:           auth,
		authH:          authH,
		doctorH:        doctorH,
		appointmentH:   appointmentH,
		treatmentH:     treatmentH,
		treatmentPlanH: treatmentPlanH,
		notificationH:  notificationH,
		healthH:        healthH,
	}
	r.registerRoutes()
	return r
}

func (r *Router) registerRoutes() {
	r.healthH.RegisterRoutes(r.engine.Group("/health"))
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.engine.Group("/api/v1")

	r.authH.RegisterRoutes(v1.Group("/auth"))
	r.doctorH.RegisterRoutes(v1.Group("/doctors"))

	authed := v1.Group("")
	authed.Use(r.auth.Authenticate())
	r.appointmentH.RegisterRoutes(authed.Group("/appointments"))
	r.treatmentH.RegisterRoutes(authed.Group("/treatments"))
	r.treatmentPlanH.RegisterRoutes(authed.Group("/treatment-plans"))
	r.notificationH.RegisterRoutes(authed.Group("/notifications"))
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
