package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userId"

// Identity records the optional X-User-Id hint. The value is not verified;
// it only keys rate limits and log lines.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				c.Set(userIDKey, strconv.FormatInt(id, 10))
			}
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by Identity.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
