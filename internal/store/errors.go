package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every not-found error from a Store or Backend.
var ErrNotFound = errors.New("record not found")

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a label or id that was never written.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Error is a store error with the type and label it concerns.
type Error struct {
	Code    ErrorCode
	Message string
	Type    string
	Label   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%s: %s (type=%s, label=%s)", e.Code, e.Message, e.Type, e.Label)
	}
	return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.Type)
}

// Is makes not-found errors match ErrNotFound.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Code == ErrCodeNotFound
}

// NotFound returns the error for a label missing from a store of typeName.
func NotFound(typeName, label string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: "no record with this label",
		Type:    typeName,
		Label:   label,
	}
}

// IsNotFound returns true if err reports a missing record.
// Uses errors.Is to handle wrapped errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
