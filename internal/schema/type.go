package schema

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/seedling/internal/ir"
)

// Kind is the value kind of a declared field.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindBool   Kind = "bool"
	KindArray  Kind = "array"
	KindObject Kind = "object"
)

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInt, KindBool, KindArray, KindObject:
		return true
	}
	return false
}

// Op tells a hook whether a write creates or updates a record.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
)

// Hook runs inside a durable backend's write. A non-nil error aborts the
// write and is returned to the caller unchanged.
type Hook func(ctx context.Context, op Op, label string, attrs ir.IRObject) error

// Field is one declared attribute of a Type.
type Field struct {
	Name string
	Kind Kind
	// Default is applied by Build when the attribute is absent. Nil means
	// no default.
	Default ir.IRValue
	// Rules is a go-playground/validator tag, e.g. "required,min=1".
	Rules string
}

// Required reports whether the field's rules include "required".
func (f Field) Required() bool {
	return slices.Contains(strings.Split(f.Rules, ","), "required")
}

// Type is a record type. A Type without fields is open and accepts any
// attributes.
type Type struct {
	Name   string
	Fields []Field

	BeforeSave Hook
	AfterSave  Hook
}

// Open reports whether t accepts undeclared attributes.
func (t *Type) Open() bool {
	return len(t.Fields) == 0
}

// Field returns the declared field with the given name.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AccessorName is the namespace member name for t.
func (t *Type) AccessorName() string {
	return AccessorName(t.Name)
}

func (t *Type) String() string {
	return t.Name
}

var validate = validator.New()

// Build constructs the stored attributes of a t record from attrs: it
// applies field defaults and checks undeclared fields, kinds and rules.
// attrs is never modified.
func (t *Type) Build(attrs ir.IRObject) (ir.IRObject, error) {
	out := attrs.Clone()
	if out == nil {
		out = ir.IRObject{}
	}
	if t.Open() {
		return out, nil
	}

	for _, name := range out.SortedKeys() {
		if _, ok := t.Field(name); !ok {
			return nil, &ValidationError{
				Type:    t.Name,
				Field:   name,
				Code:    ErrUnknownField,
				Message: "field is not declared",
			}
		}
	}

	for _, f := range t.Fields {
		val, ok := out[f.Name]
		if !ok && f.Default != nil {
			val = ir.CloneValue(f.Default)
			out[f.Name] = val
			ok = true
		}
		if !ok {
			if f.Required() {
				return nil, &ValidationError{
					Type:    t.Name,
					Field:   f.Name,
					Code:    ErrMissingField,
					Message: "field is required",
				}
			}
			continue
		}
		if _, isNull := val.(ir.IRNull); isNull {
			if f.Required() {
				return nil, &ValidationError{
					Type:    t.Name,
					Field:   f.Name,
					Code:    ErrMissingField,
					Message: "field is required",
				}
			}
			continue
		}
		if ir.KindOf(val) != string(f.Kind) {
			return nil, &ValidationError{
				Type:    t.Name,
				Field:   f.Name,
				Code:    ErrKindMismatch,
				Message: fmt.Sprintf("expected %s, got %s", f.Kind, ir.KindOf(val)),
			}
		}
		if f.Rules == "" {
			continue
		}
		if err := validate.Var(ir.ToAny(val), f.Rules); err != nil {
			return nil, &ValidationError{
				Type:    t.Name,
				Field:   f.Name,
				Code:    ErrRuleViolation,
				Message: ruleMessage(f.Rules, err),
			}
		}
	}
	return out, nil
}

func ruleMessage(rules string, err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Sprintf("failed rule %q (%s=%s)", rules, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("failed rule %q (%s)", rules, fe.Tag())
	}
	return fmt.Sprintf("failed rule %q: %v", rules, err)
}

// RunBeforeSave invokes the BeforeSave hook if one is set.
func (t *Type) RunBeforeSave(ctx context.Context, op Op, label string, attrs ir.IRObject) error {
	if t.BeforeSave == nil {
		return nil
	}
	return t.BeforeSave(ctx, op, label, attrs)
}

// RunAfterSave invokes the AfterSave hook if one is set.
func (t *Type) RunAfterSave(ctx context.Context, op Op, label string, attrs ir.IRObject) error {
	if t.AfterSave == nil {
		return nil
	}
	return t.AfterSave(ctx, op, label, attrs)
}
