package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine readable error types surfaced to clients
const (
	TypeUserExists     = "AUTH_USER_EXISTS"
	TypeUserNotFound   = "AUTH_USER_NOT_FOUND"
	TypeUnauthorized   = "UNAUTHORIZED"
	TypeForbidden      = "FORBIDDEN"
	TypeInvalidRequest = "INVALID_REQUEST"
	TypeNotFound       = "NOT_FOUND"
	TypeVoteLimit      = "VOTE_LIMIT_REACHED"
	TypeVotingDisabled = "VOTING_DISABLED"
	TypeBoardLocked    = "BOARD_LOCKED"
	TypeFeatureOff     = "FEATURE_DISABLED"
	TypeVersion        = "E_VERSION"
	TypeRateLimited    = "RATE_LIMITED"
	TypeInternal       = "INTERNAL"
)

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Is matches errors of the same status and machine code, so errors decoded
// from an API response compare equal to the sentinels they were rendered from
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

// NewError builds a CustomError
func NewError(code int, errorType, format string, args ...any) *CustomError {
	return &CustomError{Code: code, Message: fmt.Sprintf(format, args...), Type: errorType}
}

// BadRequest is a 400 INVALID_REQUEST error
func BadRequest(format string, args ...any) *CustomError {
	return NewError(http.StatusBadRequest, TypeInvalidRequest, format, args...)
}

// AsCustomError unwraps err into a CustomError when it carries one
func AsCustomError(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
