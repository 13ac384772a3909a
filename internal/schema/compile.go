package schema

import (
	"fmt"
	"maps"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/seedling/internal/ir"
)

// CompileTypes parses the "types" struct of a CUE value into record types.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
//	types: "Billing::Plan": {
//	    fields: {
//	        title:       string
//	        price_cents: int | *0
//	    }
//	    rules: title: "required"
//	}
//
// A value without a "types" struct yields no types. Types are returned in
// declaration order.
func CompileTypes(v cue.Value) ([]*Type, error) {
	if err := v.Err(); err != nil {
		return nil, FormatCUEError(err)
	}

	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, nil
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, FormatCUEError(err)
	}

	var types []*Type
	for iter.Next() {
		t, err := compileType(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func compileType(name string, v cue.Value) (*Type, error) {
	t := &Type{Name: name}

	rules := make(map[string]string)
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if rulesVal.Exists() {
		iter, err := rulesVal.Fields()
		if err != nil {
			return nil, FormatCUEError(err)
		}
		for iter.Next() {
			rule, err := iter.Value().String()
			if err != nil {
				return nil, FormatCUEError(err)
			}
			rules[iter.Selector().Unquoted()] = rule
		}
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		if len(rules) > 0 {
			return nil, &CompileError{
				Field:   fmt.Sprintf("types.%s.rules", name),
				Message: "rules require declared fields",
				Pos:     rulesVal.Pos(),
			}
		}
		return t, nil
	}

	iter, err := fieldsVal.Fields(cue.Optional(true))
	if err != nil {
		return nil, FormatCUEError(err)
	}
	for iter.Next() {
		fieldName := iter.Selector().Unquoted()
		fieldVal := iter.Value()

		kind, err := extractKind(fieldVal)
		if err != nil {
			return nil, err
		}
		field := Field{Name: fieldName, Kind: kind, Rules: rules[fieldName]}

		if def, ok := fieldVal.Default(); ok && def.IsConcrete() {
			field.Default, err = ValueFromCUE(def)
			if err != nil {
				return nil, err
			}
		}
		t.Fields = append(t.Fields, field)
		delete(rules, fieldName)
	}

	if len(rules) > 0 {
		fieldName := slices.Sorted(maps.Keys(rules))[0]
		return nil, &CompileError{
			Field:   fmt.Sprintf("types.%s.rules.%s", name, fieldName),
			Message: "rule for undeclared field",
			Pos:     rulesVal.Pos(),
		}
	}
	return t, nil
}

// extractKind converts a CUE type to a field kind.
// Floats are forbidden: attribute numbers are int64.
func extractKind(v cue.Value) (Kind, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return KindString, nil
	case cue.IntKind:
		return KindInt, nil
	case cue.BoolKind:
		return KindBool, nil
	case cue.ListKind:
		return KindArray, nil
	case cue.StructKind:
		return KindObject, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// ValueFromCUE converts a concrete CUE value into an attribute value.
func ValueFromCUE(v cue.Value) (ir.IRValue, error) {
	if err := v.Err(); err != nil {
		return nil, FormatCUEError(err)
	}
	if def, ok := v.Default(); ok {
		v = def
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, FormatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, FormatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, FormatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, FormatCUEError(err)
		}
		arr := ir.IRArray{}
		for iter.Next() {
			elem, err := ValueFromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, FormatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := ValueFromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Selector().Unquoted()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "value",
			Message: "floats are not allowed in attributes",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// FormatCUEError extracts position info from CUE errors.
func FormatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
