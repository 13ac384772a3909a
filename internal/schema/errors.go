package schema

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// ErrUnknownType is returned when a type name has not been defined.
var ErrUnknownType = errors.New("unknown record type")

// Validation error codes (E200-E299)
const (
	ErrUnknownField  = "E201" // attribute not declared by the type
	ErrKindMismatch  = "E202" // attribute kind differs from the field kind
	ErrRuleViolation = "E203" // validator rule rejected the value
	ErrMissingField  = "E204" // required attribute absent or null
	ErrTypeConflict  = "E205" // type redefined with a different schema
)

// ValidationError reports why a record could not be constructed.
type ValidationError struct {
	Type    string `json:"type"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Type, e.Field, e.Message)
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CompileError is a type definition error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
