package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gonzalo-olmedo/comicstore/common/logger"
)

// Error represents an application error
type Error struct {
	Code    int               `json:"code"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same code and message, so predefined errors
// keep working with errors.Is after being copied by Wrap or WithMessage.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates a 400 error carrying field level messages.
func Validation(message string, fields map[string]string) *Error {
	return &Error{
		Code:    http.StatusBadRequest,
		Message: message,
		Fields:  fields,
	}
}

// Wrap returns a copy of base that carries err as its cause.
func Wrap(base *Error, err error) *Error {
	return &Error{Code: base.Code, Message: base.Message, Fields: base.Fields, Err: err}
}

// WithMessage returns a copy of base with a more specific client message.
func WithMessage(base *Error, message string) *Error {
	return &Error{Code: base.Code, Message: message, Fields: base.Fields, Err: base}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Common error types
var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized       = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden          = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrConflict           = New(http.StatusConflict, "Conflict", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrBadGateway         = New(http.StatusBadGateway, "Upstream service error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// Validation error types
var (
	ErrValidation   = New(http.StatusBadRequest, "Validation error", nil)
	ErrInvalidInput = New(http.StatusBadRequest, "Invalid input", nil)
)

// Authentication error types
var (
	ErrInvalidCredentials = New(http.StatusUnauthorized, "invalid email or password", nil)
	ErrTokenExpired       = New(http.StatusUnauthorized, "Token expired", nil)
	ErrInvalidToken       = New(http.StatusUnauthorized, "Invalid token", nil)
)

// Business logic error types
var (
	ErrInsufficientStock = New(http.StatusBadRequest, "Insufficient stock", nil)
	ErrInvalidOrder      = New(http.StatusBadRequest, "Invalid order", nil)
	ErrImageUpload       = New(http.StatusBadGateway, "image upload failed", nil)
)

// ErrorMiddleware renders the last error attached to the gin context.
// Errors that are not *Error are logged and hidden behind a generic 500.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := As(err)
		if !ok {
			appErr = Wrap(ErrInternalServer, err)
		}

		if appErr.Code >= http.StatusInternalServerError {
			logger.Error(c, "request failed", err, zap.Int("status", appErr.Code))
		}

		c.AbortWithStatusJSON(appErr.Code, appErr)
	}
}
