package errors

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Error   Kind     `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// RespondWithError writes err using the status of its kind.
func RespondWithError(c *gin.Context, err error) {
	info := ParseError(err)
	c.JSON(info.Status, ErrorResponse{
		Success: false,
		Message: info.Message,
		Error:   info.Kind,
	})
}

// RespondWithErrors is used by the batch endpoints when the validation pass
// rejected rows; every collected message is returned.
func RespondWithErrors(c *gin.Context, status int, message string, errs []string) {
	c.JSON(status, ErrorResponse{
		Success: false,
		Message: message,
		Error:   KindValidation,
		Errors:  errs,
	})
}

// BadRequest answers a malformed request before any service call.
func BadRequest(c *gin.Context, message string) {
	RespondWithError(c, Validation(message))
}
