package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/monitoring/logging"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/types"
)

// Recovery turns panics into a 500 envelope instead of a dropped connection,
// and logs the stack so the panic site is findable.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					logging.Any("panic", r),
					logging.String("method", c.Request.Method),
					logging.String("path", c.Request.URL.Path),
					logging.String("request_id", GetRequestID(c)),
					logging.String("stack", string(debug.Stack())),
				)

				resp := types.NewErrorResponse(
					errors.ErrCodeInternal.String(),
					errors.DefaultMessageForCode(errors.ErrCodeInternal),
				)
				resp.RequestID = GetRequestID(c)
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()
		c.Next()
	}
}
