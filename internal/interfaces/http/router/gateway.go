package router

import (
	"errors"

	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"github.com/digimall/admin-gateway/internal/interfaces/http/handler"
	"github.com/digimall/admin-gateway/internal/interfaces/http/middleware"
	"github.com/digimall/admin-gateway/internal/interfaces/http/proxy"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the route handlers mounted by NewEngine
type Handlers struct {
	Auth       *handler.AuthHandler
	Setup      *handler.SetupHandler
	Media      *handler.MediaHandler
	Diagnostic *handler.DiagnosticHandler
	System     *handler.SystemHandler
	Health     *handler.HealthHandler
	Proxy      *proxy.Handler
}

// Options configure the middleware stack
type Options struct {
	Logger         *zap.Logger
	Sessions       middleware.SessionResolver
	Cookie         *middleware.SessionCookie
	AllowBearer    bool
	TrustedProxies []string
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	Tracing        middleware.TracingConfig
	Metrics        middleware.HTTPMetricsConfig
	Profiling      middleware.ProfilingConfig
	// MaxBodySize bounds JSON bodies on the auth and setup routes. Proxied
	// and uploaded bodies are streamed and bounded elsewhere.
	MaxBodySize int64
	// RateLimiter applies to every request when set
	RateLimiter *middleware.RateLimiter
	// SignInLimiter applies to credential and setup token submissions when set
	SignInLimiter *middleware.RateLimiter
}

var (
	errMissingSessions = errors.New("router: session resolver is required")
	errMissingCookie   = errors.New("router: session cookie is required")
	errMissingHandler  = errors.New("router: all handlers are required")
)

// NewEngine builds the gateway's gin engine.
//
// Engine-wide middleware, in order: RequestID, Recovery, request logging,
// tracing, security headers, CORS, HTTP metrics and the optional global rate
// limit. Routes under /api additionally resolve the caller's identity and
// carry it into spans and profiles.
func NewEngine(opts Options, h Handlers) (*gin.Engine, error) {
	if opts.Sessions == nil {
		return nil, errMissingSessions
	}
	if opts.Cookie == nil {
		return nil, errMissingCookie
	}
	if h.Auth == nil || h.Setup == nil || h.Media == nil || h.Diagnostic == nil ||
		h.System == nil || h.Health == nil || h.Proxy == nil {
		return nil, errMissingHandler
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(opts.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(opts.Tracing))
	engine.Use(middleware.SecureWithConfig(opts.Security))
	engine.Use(middleware.CORSWithConfig(opts.CORS))
	engine.Use(middleware.HTTPMetrics(opts.Metrics))
	if opts.RateLimiter != nil {
		engine.Use(middleware.RateLimit(opts.RateLimiter))
	}

	engine.GET("/health", h.Health.Health)

	r := NewRouter(engine)
	r.Use(
		middleware.SessionAuth(middleware.SessionAuthConfig{
			Sessions:    opts.Sessions,
			Cookie:      opts.Cookie,
			AllowBearer: opts.AllowBearer,
		}),
		middleware.TracingAttributeInjector(),
		middleware.ProfilingWithConfig(opts.Profiling),
		middleware.SpanErrorMarker(),
	)

	credentialLimit := func(next gin.HandlerFunc) []gin.HandlerFunc {
		if opts.SignInLimiter == nil {
			return []gin.HandlerFunc{next}
		}
		return []gin.HandlerFunc{middleware.RateLimit(opts.SignInLimiter), next}
	}

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", h.System.GetSystemInfo)
	systemRoutes.GET("/ping", h.System.Ping)

	authRoutes := NewDomainGroup("auth", "/auth").Use(middleware.BodyLimit(opts.MaxBodySize))
	authRoutes.POST("/signin", credentialLimit(h.Auth.SignIn)...)
	authRoutes.GET("/session", h.Auth.GetSession)
	authRoutes.POST("/refresh", h.Auth.Refresh)
	authRoutes.POST("/signout", h.Auth.SignOut)

	setupRoutes := NewDomainGroup("setup", "/setup").Use(middleware.BodyLimit(opts.MaxBodySize))
	setupRoutes.GET("/check", h.Setup.Check)
	setupRoutes.POST("/super-admin", credentialLimit(h.Setup.CreateSuperAdmin)...)

	mediaRoutes := NewDomainGroup("media", "/media").Use(middleware.RequireIdentity())
	mediaRoutes.POST("/upload", h.Media.Upload)

	diagnosticRoutes := NewDomainGroup("diagnostic", "")
	diagnosticRoutes.GET("/test-proxy", h.Diagnostic.TestProxy)

	proxyRoutes := NewDomainGroup("proxy", "/proxy")
	proxyRoutes.ANY("/*path", h.Proxy.Forward)

	r.Register(systemRoutes).
		Register(authRoutes).
		Register(setupRoutes).
		Register(mediaRoutes).
		Register(diagnosticRoutes).
		Register(proxyRoutes)
	r.Setup()

	return engine, nil
}
