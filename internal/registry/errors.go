package registry

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes registry errors.
type ErrorCode string

const (
	// ErrCodeUnknownProvider indicates a provider name that was never registered.
	ErrCodeUnknownProvider ErrorCode = "UNKNOWN_PROVIDER"

	// ErrCodeUnknownAccessor indicates a namespace member or label that was never defined.
	ErrCodeUnknownAccessor ErrorCode = "UNKNOWN_ACCESSOR"

	// ErrCodeAccessorConflict indicates two record types deriving the same accessor name.
	ErrCodeAccessorConflict ErrorCode = "ACCESSOR_CONFLICT"
)

// Error is a registry lookup or registration failure.
type Error struct {
	Code     ErrorCode
	Message  string
	Provider string
	Accessor string
	Label    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Label != "":
		return fmt.Sprintf("%s: %s (provider=%s, accessor=%s, label=%s)", e.Code, e.Message, e.Provider, e.Accessor, e.Label)
	case e.Accessor != "":
		return fmt.Sprintf("%s: %s (provider=%s, accessor=%s)", e.Code, e.Message, e.Provider, e.Accessor)
	default:
		return fmt.Sprintf("%s: %s (provider=%s)", e.Code, e.Message, e.Provider)
	}
}

// IsUnknownProvider returns true if err reports an unregistered provider.
// Uses errors.As to handle wrapped errors.
func IsUnknownProvider(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownProvider
	}
	return false
}

// IsUnknownAccessor returns true if err reports an undefined accessor or label.
// Uses errors.As to handle wrapped errors.
func IsUnknownAccessor(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownAccessor
	}
	return false
}

// IsAccessorConflict returns true if err reports an accessor name clash.
func IsAccessorConflict(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeAccessorConflict
	}
	return false
}
