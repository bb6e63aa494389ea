package handlers

import (
	"strconv"
	"strings"
	"time"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/metrics"
	"homecare_manager/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	principalKey    = "principal"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs every request and records its latency by route.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(elapsed.Seconds())

		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
			"request_id":  c.GetString(requestIDKey),
		}
		if status >= 500 {
			log.Error("http request", fields)
			return
		}
		log.Debug("http request", fields)
	}
}

// Authenticate resolves the bearer token into a principal.
func Authenticate(auth services.AuthService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(c, log, apperrors.Unauthorized("missing bearer token"), nil)
			c.Abort()
			return
		}
		principal, err := auth.CurrentUser(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondError(c, log, err, nil)
			c.Abort()
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireActive admits admins and approved workers.
func RequireActive(auth services.AuthService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireActive(principalFrom(c)); err != nil {
			respondError(c, log, err, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequireAdmin(auth services.AuthService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireAdmin(principalFrom(c)); err != nil {
			respondError(c, log, err, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) *services.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*services.Principal)
	return p
}
