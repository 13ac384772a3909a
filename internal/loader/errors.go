package loader

import (
	"errors"
	"fmt"
)

// ErrNoInterpreter is returned for a script whose extension has no
// interpreter.
var ErrNoInterpreter = errors.New("no interpreter for script")

// LoadError aborts a load. Path is the script (or root) that failed, relative
// to the load root when possible.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err aborted a load.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// ExprError reports a computed value that failed to compile or evaluate.
type ExprError struct {
	Expr string
	Err  error
}

func (e *ExprError) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Expr, e.Err)
}

func (e *ExprError) Unwrap() error {
	return e.Err
}

// ScriptError is a malformed script. Line is 1-based; 0 means unknown.
type ScriptError struct {
	Line    int
	Message string
}

func (e *ScriptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}
