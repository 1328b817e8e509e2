// Package middleware holds the gin middleware chain for the appeal API:
// request IDs, request logging, panic recovery, metrics, CORS, rate
// limiting, and body size limits.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/types"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = string(types.ContextKeyRequestID)

// RequestID assigns every request an ID: the caller's X-Request-ID when one
// is present, a fresh UUID otherwise.  The ID is stored on the gin context
// and echoed on the response so clients can correlate logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestID, or "" when the
// middleware did not run.
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
