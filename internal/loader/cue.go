package loader

import (
	"context"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
)

// CUE returns the interpreter for CUE scripts. A CUE script may declare
// types, register type names and define records:
//
//	types: "Billing::Plan": fields: {title: string, price_cents: int | *0}
//	register: ["Billing::Plan"]
//	records: billing_plans: basic: title: "Basic"
//
// String values starting with "=" are computed like in YAML scripts.
func CUE() Interpreter {
	return InterpreterFunc(execCUE)
}

func execCUE(ctx context.Context, env *Env, src []byte) error {
	v := cuecontext.New().CompileBytes(src, cue.Filename(env.Path()))
	if err := v.Validate(); err != nil {
		return schema.FormatCUEError(err)
	}

	types, err := schema.CompileTypes(v)
	if err != nil {
		return err
	}
	for _, t := range types {
		if _, err := env.Define(t); err != nil {
			return err
		}
	}

	if reg := v.LookupPath(cue.ParsePath("register")); reg.Exists() {
		iter, err := reg.List()
		if err != nil {
			return schema.FormatCUEError(err)
		}
		for iter.Next() {
			name, err := iter.Value().String()
			if err != nil {
				return schema.FormatCUEError(err)
			}
			if _, err := env.Register(ctx, name); err != nil {
				return err
			}
		}
	}

	records := v.LookupPath(cue.ParsePath("records"))
	if !records.Exists() {
		return nil
	}
	accessors, err := records.Fields()
	if err != nil {
		return schema.FormatCUEError(err)
	}
	for accessors.Next() {
		accessor := accessors.Selector().Unquoted()
		labels, err := accessors.Value().Fields()
		if err != nil {
			return schema.FormatCUEError(err)
		}
		for labels.Next() {
			label := labels.Selector().Unquoted()
			body := labels.Value()
			val, err := schema.ValueFromCUE(body)
			if err != nil {
				return err
			}
			attrs, ok := val.(ir.IRObject)
			if !ok {
				return &ScriptError{
					Line:    body.Pos().Line(),
					Message: fmt.Sprintf("records.%s.%s must be a struct, got %s", accessor, label, ir.KindOf(val)),
				}
			}
			if err := env.Upsert(ctx, accessor, label, attrs, body.Pos().Line()); err != nil {
				return err
			}
		}
	}
	return nil
}
