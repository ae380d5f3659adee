package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rl1809/ventures/internal/platform/logger"
	"github.com/rl1809/ventures/internal/platform/metrics"
	"github.com/rl1809/ventures/internal/port"
)

const APIPrefix = "/api/v1/ventures"

type RouterConfig struct {
	Handler        *HTTPHandler
	AuthMiddleware *AuthMiddleware
	Cache          port.CacheRepository
	Metrics        *metrics.Manager
	MetricsPath    string
	CORSOrigins    []string
	// ServiceName enables otelgin request spans when non-empty.
	ServiceName string
	Log         *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(RequestLogger(log))
	r.Use(Metrics(cfg.Metrics))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}
	r.Use(ErrorHandler(log))

	r.GET("/health", cfg.Handler.HealthCheck)
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		r.GET(cfg.MetricsPath, gin.WrapH(cfg.Metrics.Handler()))
	}

	am := cfg.AuthMiddleware
	idem := Idempotency(cfg.Cache, cfg.Metrics)

	ventures := r.Group(APIPrefix, am.RequireAuth())
	{
		ventures.POST("/pitch", am.RequireClaimed(), idem, cfg.Handler.SubmitPitch)
		ventures.POST("/ship", am.RequireClaimed(), idem, cfg.Handler.SubmitShipment)
		ventures.GET("/pitches", cfg.Handler.ListPitches)
		ventures.POST("/interest", am.RequireClaimed(), idem, cfg.Handler.ExpressInterest)
	}

	return r
}
