// Package handlers implements the gin handlers for the appeal analysis API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/interfaces/http/middleware"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/types"
)

// respond writes the success envelope with the request ID attached.
func respond(c *gin.Context, status int, data any) {
	resp := types.NewSuccessResponse(data)
	resp.RequestID = middleware.GetRequestID(c)
	c.JSON(status, resp)
}

// respondError maps the error's code to an HTTP status and writes the error
// envelope.  Server-side failures are masked behind the code's default
// message; client errors keep their text so callers can fix the request.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = errors.DefaultMessageForCode(code)
	}

	resp := types.NewErrorResponse(code.String(), message)
	resp.RequestID = middleware.GetRequestID(c)
	c.JSON(status, resp)
}

// respondBindError reports a JSON decoding failure.
func respondBindError(c *gin.Context, err error) {
	respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
}
