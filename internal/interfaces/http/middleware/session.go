package middleware

import (
	"regexp"

	"github.com/farmstore/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

// MaxSessionIDLength bounds client-supplied session ids, which become storage keys
const MaxSessionIDLength = 64

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SessionID resolves the browsing session from X-Session-ID. A missing or
// malformed id is replaced by a new one, echoed back so the client can keep it.
func SessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderSessionID)
		if !validSessionID(id) {
			id = generateID()
		}
		c.Set(logger.GinSessionIDKey, id)
		c.Writer.Header().Set(HeaderSessionID, id)
		c.Next()
	}
}

// GetSessionID returns the session id resolved by SessionID
func GetSessionID(c *gin.Context) string {
	return c.GetString(logger.GinSessionIDKey)
}

func validSessionID(id string) bool {
	return id != "" && len(id) <= MaxSessionIDLength && sessionIDPattern.MatchString(id)
}
