package router

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cubaneorg/cubane-sub000/internal/http/response"
	"github.com/cubaneorg/cubane-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"

const sessionCookieName = "shop_session"
const sessionIDKey = "session_id"
const sessionCookieMaxAge = 14 * 24 * 60 * 60

// RequestIDMiddleware attaches a request id to every request.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware logs every request with structured fields.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// SessionMiddleware issues the anonymous basket session cookie and puts
// the session id on the context.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(sessionCookieName)
		if err != nil || strings.TrimSpace(sid) == "" {
			sid = uuid.NewString()
			c.SetCookie(sessionCookieName, sid, sessionCookieMaxAge, "/", "", false, true)
		}
		c.Set(sessionIDKey, sid)
		c.Next()
	}
}

// CustomerAuthMiddleware validates a bearer token when present. With
// required set, requests without a valid token are rejected; otherwise
// they continue as guests.
func CustomerAuthMiddleware(customerService *service.CustomerService, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			if required {
				response.Unauthorized(c, "authentication required")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			if required {
				response.Unauthorized(c, "invalid authorization header")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		claims, err := customerService.ParseToken(parts[1])
		if err != nil || claims.CustomerID == 0 {
			if required {
				response.Unauthorized(c, "invalid token")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		c.Set("customer_id", claims.CustomerID)
		c.Set("customer_email", claims.Email)
		c.Next()
	}
}
