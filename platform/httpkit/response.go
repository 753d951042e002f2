// Package httpkit holds the HTTP plumbing shared by all handlers: response
// helpers and the gin middleware stack.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopchat_backend/platform/apperr"
)

// ErrorResponse is the error envelope every endpoint returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OK writes the payload with a 200 status.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// HandleError writes an error response. Typed *apperr.Error values choose
// their own status via Kind; anything else is treated as a client error.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if appErr, ok := err.(*apperr.Error); ok {
		c.JSON(appErr.HTTPStatus(), ErrorResponse{Error: appErr.Message})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}
