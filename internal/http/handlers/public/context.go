package public

import (
	handlershared "github.com/cubaneorg/cubane-sub000/internal/http/handlers/shared"
	"github.com/cubaneorg/cubane-sub000/internal/http/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

// sessionID reads the basket session id placed by the session middleware.
func sessionID(c *gin.Context) (string, bool) {
	value, exists := c.Get("session_id")
	if !exists {
		respondError(c, response.CodeInternal, "session unavailable", nil)
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		respondError(c, response.CodeInternal, "session unavailable", nil)
		return "", false
	}
	return id, true
}

// customerID reads the authenticated customer id, if any.
func customerID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("customer_id")
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// requireCustomerID reads the authenticated customer id and rejects the
// request when it is missing.
func requireCustomerID(c *gin.Context) (uint, bool) {
	id, ok := customerID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return 0, false
	}
	return id, true
}
