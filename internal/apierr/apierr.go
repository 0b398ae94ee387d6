package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(msg string) *Error {
	return New(http.StatusBadRequest, "bad_request", errors.New(msg))
}

func Unauthorized(msg string) *Error {
	return New(http.StatusUnauthorized, "unauthorized", errors.New(msg))
}

func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, "forbidden", errors.New(msg))
}

func NotFound(msg string) *Error {
	return New(http.StatusNotFound, "not_found", errors.New(msg))
}

func Conflict(msg string) *Error {
	return New(http.StatusConflict, "conflict", errors.New(msg))
}

// Respond writes err as a JSON error body and aborts the chain. Anything that
// is not an *Error becomes a 500; its text is only exposed outside release mode.
func Respond(c *gin.Context, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = New(http.StatusInternalServerError, "internal_error", err)
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	body := gin.H{"code": ae.Code}
	if status >= http.StatusInternalServerError {
		body["error"] = "internal server error"
		if gin.Mode() != gin.ReleaseMode && ae.Err != nil {
			body["details"] = ae.Err.Error()
		}
	} else {
		body["error"] = ae.Error()
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
