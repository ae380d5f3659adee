package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/ventures/internal/platform/auth"
	"github.com/rl1809/ventures/internal/platform/logger"
	"github.com/rl1809/ventures/internal/platform/metrics"
	"github.com/rl1809/ventures/internal/port"
)

const idempotencyHeader = "Idempotency-Key"

type AuthMiddleware struct {
	log    *logger.Logger
	tokens *auth.TokenService
}

func NewAuthMiddleware(log *logger.Logger, tokens *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), tokens: tokens}
}

// RequireAuth resolves the bearer token into an auth.Identity on the request
// context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := am.tokens.Verify(bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			am.log.Debug("rejected request", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: "missing or invalid token",
				Code:  "unauthorized",
			})
			return
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireClaimed rejects agents whose account has not been claimed. It must
// run after RequireAuth.
func (am *AuthMiddleware) RequireClaimed() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.FromContext(c.Request.Context())
		if !ok || !id.Claimed {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error: "agent account must be claimed",
				Code:  "forbidden",
			})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return ""
}

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, code, msg := classify(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(status, ErrorResponse{Error: msg, Code: code})
	}
}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if id, ok := auth.FromContext(c.Request.Context()); ok {
			fields = append(fields, "agent_id", id.AgentID)
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			fields = append(fields, "trace_id", sc.TraceID().String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// Metrics records request latency when m is non-nil.
func Metrics(m *metrics.Manager) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Idempotency rejects a replayed Idempotency-Key from the same agent on the
// same route. Keys of requests that did not succeed are released so the
// client can retry. Without a cache the middleware is a no-op.
func Idempotency(cache port.CacheRepository, m *metrics.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		if cache == nil || header == "" {
			c.Next()
			return
		}

		id, _ := auth.FromContext(c.Request.Context())
		key := id.AgentID + ":" + c.FullPath() + ":" + header

		ok, err := cache.SetIdempotency(c.Request.Context(), key)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if !ok {
			m.IncIdempotencyReplay()
			_ = c.Error(ErrDuplicateRequest)
			c.Abort()
			return
		}

		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			_ = cache.ReleaseIdempotency(c.Request.Context(), key)
		}
	}
}

func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", idempotencyHeader},
		AllowCredentials: true,
	})
}
