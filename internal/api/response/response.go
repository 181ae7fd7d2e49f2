package response

import (
	"net/http"

	"clipstream/internal/errcode"

	"github.com/gin-gonic/gin"
)

// Response is the success envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorInfo carries the HTTP status, a human message and the machine code in Type.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

func OK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func Fail(c *gin.Context, statusCode int, errType string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorInfo{
			Code:    statusCode,
			Message: message,
			Type:    errType,
		},
	})
}

// Error answers with the domain code carried by err, or a logged 500.
func Error(c *gin.Context, err error) {
	if e, ok := errcode.As(err); ok {
		Fail(c, e.Status, e.Code, e.Message)
		return
	}
	// logged by the request logger middleware
	_ = c.Error(err)
	InternalError(c, "internal server error")
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, errcode.InvalidRequest.Code, message)
}

func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, errcode.AuthenticationMissing.Code, message)
}

func InternalError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, "internal_error", message)
}
