package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/registry"
	"github.com/roach88/seedling/internal/schema"
)

// Env is what a script runs against: the target namespace, the shared type
// catalog and the script's own path for origins.
type Env struct {
	ns      *registry.Namespace
	catalog *schema.Catalog
	strict  bool
	path    string
	logger  *slog.Logger
}

// Path returns the script path relative to the load root.
func (e *Env) Path() string {
	return e.path
}

// Namespace returns the target namespace.
func (e *Env) Namespace() *registry.Namespace {
	return e.ns
}

// Logger returns a logger tagged with the run id and script path.
func (e *Env) Logger() *slog.Logger {
	return e.logger
}

// Origin returns the origin for a definition on line of this script.
func (e *Env) Origin(line int) registry.Origin {
	return registry.Origin{File: e.path, Line: line}
}

// Define adds t to the catalog.
func (e *Env) Define(t *schema.Type) (*schema.Type, error) {
	return e.catalog.Define(t)
}

// Register exposes the type named typeName in the namespace. An undeclared
// name gets an open type unless the loader is strict.
func (e *Env) Register(ctx context.Context, typeName string) (*registry.Accessor, error) {
	t, err := e.catalog.Lookup(typeName)
	if err != nil {
		if e.strict {
			return nil, err
		}
		t = e.catalog.Ensure(typeName)
	}
	return e.ns.Register(ctx, t)
}

// Upsert resolves computed values in attrs and writes them through the
// named accessor. Store errors are returned unchanged.
func (e *Env) Upsert(ctx context.Context, accessor, label string, attrs ir.IRObject, line int) error {
	a, err := e.ns.Accessor(accessor)
	if err != nil {
		return err
	}
	resolved, err := e.Resolve(ctx, attrs)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", accessor, label, err)
	}
	return a.Upsert(ctx, label, resolved, e.Origin(line))
}

// Resolve returns a copy of attrs with every computed string replaced by
// its value. A string starting with "=" is an expression; "==" escapes a
// literal leading "=".
func (e *Env) Resolve(ctx context.Context, attrs ir.IRObject) (ir.IRObject, error) {
	out := make(ir.IRObject, len(attrs))
	for _, k := range attrs.SortedKeys() {
		v, err := e.resolveValue(ctx, attrs[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func (e *Env) resolveValue(ctx context.Context, v ir.IRValue) (ir.IRValue, error) {
	switch val := v.(type) {
	case ir.IRString:
		s := string(val)
		switch {
		case strings.HasPrefix(s, "=="):
			return ir.IRString(s[1:]), nil
		case strings.HasPrefix(s, "="):
			return e.Eval(ctx, s[1:])
		default:
			return val, nil
		}
	case ir.IRArray:
		out := make(ir.IRArray, len(val))
		for i, elem := range val {
			r, err := e.resolveValue(ctx, elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	case ir.IRObject:
		return e.Resolve(ctx, val)
	default:
		return ir.CloneValue(v), nil
	}
}
