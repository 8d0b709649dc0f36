package workflow

import (
	"errors"
	"fmt"
)

// Kind tags an expected business outcome. True panics are reserved for
// programmer errors; everything a caller can provoke comes back as *Error.
type Kind int

const (
	// KindNotFound indicates the referenced request/document/token is absent.
	KindNotFound Kind = iota + 1
	// KindValidation indicates a business-rule violation.
	KindValidation
	// KindPermissionDenied indicates the actor does not own the resource.
	KindPermissionDenied
)

// Error is the tagged error returned from engine operations.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewNotFoundError builds a KindNotFound error.
func NewNotFoundError(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError builds a KindValidation error.
func NewValidationError(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewPermissionDeniedError builds a KindPermissionDenied error.
func NewPermissionDeniedError(format string, args ...interface{}) error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound reports whether err is a KindNotFound engine error.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsValidation reports whether err is a KindValidation engine error.
func IsValidation(err error) bool { return kindOf(err) == KindValidation }

// IsPermissionDenied reports whether err is a KindPermissionDenied engine error.
func IsPermissionDenied(err error) bool { return kindOf(err) == KindPermissionDenied }
