package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"starshop/internal/service"
	"starshop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader  = "X-Request-ID"
	adminTokenHeader = "X-Admin-Token"
	adminIDHeader    = "X-Admin-ID"

	adminIDKey = "admin_id"
)

// LoggerMiddleware logs one line per request and tags it with a request id.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.With(zap.String("component", "http"))
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		if query != "" {
			path = path + "?" + query
		}
		log.Info("request",
			zap.String("request_id", requestID),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
	}
}

// RecoveryMiddleware turns a panic into a 500 response.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", zap.Any("panic", err), zap.String("path", c.Request.URL.Path))
				response.Abort(c, http.StatusInternalServerError, response.CodeServerError, "internal server error")
			}
		}()
		c.Next()
	}
}

// AdminAuthMiddleware requires the shared admin token and the id of a known
// admin. An empty configured token rejects every request.
func AdminAuthMiddleware(token string, admins *service.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(adminTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid admin token")
			return
		}

		adminID, err := strconv.ParseInt(c.GetHeader(adminIDHeader), 10, 64)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid admin id")
			return
		}
		ok, err := admins.IsAdmin(c.Request.Context(), adminID)
		if err != nil {
			response.Abort(c, http.StatusInternalServerError, response.CodeServerError, err.Error())
			return
		}
		if !ok {
			response.Abort(c, http.StatusForbidden, response.CodeForbidden, "not an admin")
			return
		}

		c.Set(adminIDKey, adminID)
		c.Next()
	}
}
