package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/ledgerauth/internal/config"
	"github.com/geocoder89/ledgerauth/internal/http/handlers"
	"github.com/geocoder89/ledgerauth/internal/http/middlewares"
	"github.com/geocoder89/ledgerauth/internal/http/views"
	"github.com/geocoder89/ledgerauth/internal/observability"
	"github.com/geocoder89/ledgerauth/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "ledgerauth-api"

// Deps is everything the router wires into handlers. Prom, Gatherer and Ping
// are optional.
type Deps struct {
	Log      *slog.Logger
	Cfg      config.Config
	Users    handlers.UserStore
	Sessions *session.Manager
	Ping     func() error

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Tracing  bool
}

func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Cfg.Env != "dev" && d.Cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := views.Load()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	if d.Tracing {
		r.Use(otelgin.Middleware(serviceName))
	}

	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.Sessions(d.Sessions))

	// health
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// credential forms share one limiter so alternating routes does not
	// double the budget
	limit := d.Cfg.LoginRateLimit
	if limit <= 0 {
		limit = 20
	}
	credLimiter := middlewares.NewRateLimiter(limit, time.Minute)

	authHandler := handlers.NewAuthHandler(d.Users, d.Sessions)

	r.GET("/", authHandler.Home)
	r.POST("/", credLimiter.Middleware(middlewares.KeyByIP), authHandler.Login)
	r.POST("/login", credLimiter.Middleware(middlewares.KeyByIP), authHandler.Login)
	r.POST("/register", credLimiter.Middleware(middlewares.KeyByIP), authHandler.Register)
	r.GET("/logout", authHandler.Logout)

	r.NoRoute(handlers.NotFound)

	return r, nil
}
