package errprocess

import (
	"errors"
	"fmt"
	"net/http"

	"realtime_chat_service/pkg/logger"
)

// Code stable reason code returned to clients
type Code string

const (
	// CodeUnauthenticated bad or missing credential
	CodeUnauthenticated Code = "unauthenticated"
	// CodeTokenExpired credential expired
	CodeTokenExpired Code = "token_expired"
	// CodeNotFound resource absent or caller not a participant
	CodeNotFound Code = "not_found"
	// CodeForbidden participant without the required role
	CodeForbidden Code = "forbidden"
	// CodePayloadTooLarge upload over the size limit
	CodePayloadTooLarge Code = "payload_too_large"
	// CodeInvalidRequest malformed body or parameters
	CodeInvalidRequest Code = "invalid_request"
	// CodeAlreadyRead soft result of a repeated mark-read
	CodeAlreadyRead Code = "already_read"
	// CodeConflict unique constraint violation
	CodeConflict Code = "conflict"
	// CodeTransientStore persistence layer unavailable
	CodeTransientStore Code = "transient_store_failure"
	// CodeInternal anything else
	CodeInternal Code = "internal_error"
)

// Error application error carrying a stable code and transport status
type Error struct {
	Code    Code
	Status  int
	Message string
	cause   error
}

var (
	// ErrUnauthenticated missing or invalid credential
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Status: http.StatusUnauthorized, Message: "invalid credential"}
	// ErrTokenExpired expired credential
	ErrTokenExpired = &Error{Code: CodeTokenExpired, Status: http.StatusUnauthorized, Message: "token expired"}
	// ErrNotFound not found or not a participant
	ErrNotFound = &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: "not found"}
	// ErrForbidden caller may not change the resource
	ErrForbidden = &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: "forbidden"}
	// ErrPayloadTooLarge upload exceeds the limit, 400 with its own code
	ErrPayloadTooLarge = &Error{Code: CodePayloadTooLarge, Status: http.StatusBadRequest, Message: "payload too large"}
	// ErrInvalidRequest malformed request
	ErrInvalidRequest = &Error{Code: CodeInvalidRequest, Status: http.StatusBadRequest, Message: "invalid request"}
	// ErrAlreadyRead message already read
	ErrAlreadyRead = &Error{Code: CodeAlreadyRead, Status: http.StatusOK, Message: "already read"}
	// ErrConflict duplicate resource
	ErrConflict = &Error{Code: CodeConflict, Status: http.StatusConflict, Message: "conflict"}
	// ErrTransientStore store unavailable
	ErrTransientStore = &Error{Code: CodeTransientStore, Status: http.StatusServiceUnavailable, Message: "store unavailable"}
)

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap expose the cause
func (e *Error) Unwrap() error {
	return e.cause
}

// Is match by code so wrapped copies compare equal to the sentinel
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New copy base with a custom message
func New(base *Error, msg string) error {
	return &Error{Code: base.Code, Status: base.Status, Message: msg}
}

// Wrap copy base and keep err as the cause
func Wrap(base *Error, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: base.Code, Status: base.Status, Message: base.Message, cause: err}
}

// StatusOf transport status for err, 500 when err is not an *Error
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// CodeOf reason code for err
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf client facing message for err, never the cause
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
