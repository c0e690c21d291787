package router

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/credchain-api/internal/handler"
	appointmenthandler "github.com/jwalitptl/credchain-api/internal/handler/appointment"
	assistanthandler "github.com/jwalitptl/credchain-api/internal/handler/assistant"
	audithandler "github.com/jwalitptl/credchain-api/internal/handler/audit"
	authhandler "github.com/jwalitptl/credchain-api/internal/handler/auth"
	credentialhandler "github.com/jwalitptl/credchain-api/internal/handler/credential"
	documenthandler "github.com/jwalitptl/credchain-api/internal/handler/document"
	prometheushandler "github.com/jwalitptl/credchain-api/internal/handler/prometheus"
	recordhandler "github.com/jwalitptl/credchain-api/internal/handler/record"
	userhandler "github.com/jwalitptl/credchain-api/internal/handler/user"
	verificationhandler "github.com/jwalitptl/credchain-api/internal/handler/verification"
	"github.com/jwalitptl/credchain-api/internal/middleware"
)

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	CORSConfig     middleware.CORSConfig
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	h             *handler.Handler
	authH         *authhandler.Handler
	userH         *userhandler.Handler
	verificationH *verificationhandler.Handler
	credentialH   *credentialhandler.Handler
	documentH     *documenthandler.Handler
	recordH       *recordhandler.Handler
	appointmentH  *appointmenthandler.Handler
	assistantH    *assistanthandler.Handler
	auditH        *audithandler.Handler
	prometheusH   *prometheushandler.Handler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	h *handler.Handler,
	authH *authhandler.Handler,
	userH *userhandler.Handler,
	verificationH *verificationhandler.Handler,
	credentialH *credentialhandler.Handler,
	documentH *documenthandler.Handler,
	recordH *recordhandler.Handler,
	appointmentH *appointmenthandler.Handler,
	assistantH *assistanthandler.Handler,
	auditH *audithandler.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	middleware.RegisterValidators()
	engine := gin.New()

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(config.CORSConfig),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPS:   config.RateLimitRPS,
		Burst: config.RateLimitBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return &Router{
		engine:        engine,
		auth:          auth,
		h:             h,
		authH:         authH,
		userH:         userH,
		verificationH: verificationH,
		credentialH:   credentialH,
		documentH:     documentH,
		recordH:       recordH,
		appointmentH:  appointmentH,
		assistantH:    assistantH,
		auditH:        auditH,
		prometheusH:   prometheushandler.New(),
	}
}

func (r *Router) Setup() {
	r.engine.GET("/health", r.h.LivenessCheck)
	r.engine.GET("/health/live", r.h.LivenessCheck)
	r.engine.GET("/health/ready", r.h.ReadinessCheck)
	r.engine.GET("/metrics", r.prometheusH.Handler())

	api := r.engine.Group("/api/v1")

	// outside the trust boundary: registration, login and hash checks
	r.authH.RegisterRoutes(api)
	r.credentialH.RegisterPublicRoutes(api)

	authed := api.Group("")
	authed.Use(r.auth.Authenticate())
	r.userH.RegisterRoutes(authed, r.auth)
	r.verificationH.RegisterRoutes(authed, r.auth)
	r.credentialH.RegisterRoutes(authed, r.auth)
	r.documentH.RegisterRoutes(authed, r.auth)
	r.recordH.RegisterRoutes(authed, r.auth)
	r.appointmentH.RegisterRoutes(authed, r.auth)
	r.assistantH.RegisterRoutes(authed, r.auth)
	r.auditH.RegisterRoutes(authed, r.auth)
}

func (r *Router) Run(port int) error {
	return r.engine.Run(fmt.Sprintf(":%d", port))
}

// Engine exposes the underlying engine for serving and tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
