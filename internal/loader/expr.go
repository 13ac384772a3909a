package loader

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/registry"
	"github.com/roach88/seedling/internal/store"
)

// Eval evaluates an expr-lang expression against the namespace. Each
// registered accessor is a variable mapping labels to records, so
// accounts.kaspers_donuts.id is the durable id of that fixture. A label that
// was never defined is an error, not nil.
//
// Functions: label_id(label) returns the id a label derives.
func (e *Env) Eval(ctx context.Context, expression string) (ir.IRValue, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &ExprError{Expr: expression, Err: errors.New("expression must not be empty")}
	}

	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, &ExprError{Expr: expression, Err: err}
	}
	refs := newRefVisitor()
	ast.Walk(&tree.Node, refs)

	env := map[string]any{
		"label_id": func(label string) string {
			return ir.LabelID(label)
		},
	}
	for name, labels := range refs.labels {
		if !e.ns.HasAccessor(name) {
			continue
		}
		a, err := e.ns.Accessor(name)
		if err != nil {
			return nil, &ExprError{Expr: expression, Err: err}
		}
		for label := range labels {
			if !a.Has(label) {
				_, err := a.Lookup(ctx, label)
				return nil, &ExprError{Expr: expression, Err: err}
			}
		}
		var view map[string]any
		if refs.dynamic(name) {
			view, err = accessorView(ctx, a, entryLabels(a))
		} else {
			view, err = accessorView(ctx, a, slices.Collect(maps.Keys(labels)))
		}
		if err != nil {
			return nil, &ExprError{Expr: expression, Err: err}
		}
		env[name] = view
	}

	program, err := exprlang.Compile(expression, exprlang.Env(env))
	if err != nil {
		return nil, &ExprError{Expr: expression, Err: err}
	}
	out, err := exprlang.Run(program, env)
	if err != nil {
		return nil, &ExprError{Expr: expression, Err: err}
	}
	v, err := ir.FromAny(out)
	if err != nil {
		return nil, &ExprError{Expr: expression, Err: err}
	}
	return v, nil
}

// refVisitor collects identifiers and the static labels read from them. An
// identifier used other than as accessor.label or accessor["label"] is
// dynamic and needs every label of its accessor.
type refVisitor struct {
	labels map[string]map[string]bool
	uses   map[string]int
	static map[string]int
}

func newRefVisitor() *refVisitor {
	return &refVisitor{
		labels: make(map[string]map[string]bool),
		uses:   make(map[string]int),
		static: make(map[string]int),
	}
}

func (v *refVisitor) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		v.ident(n.Value)
		v.uses[n.Value]++
	case *ast.MemberNode:
		id, ok := n.Node.(*ast.IdentifierNode)
		if !ok {
			return
		}
		prop, ok := n.Property.(*ast.StringNode)
		if !ok {
			return
		}
		v.ident(id.Value)
		v.labels[id.Value][prop.Value] = true
		v.static[id.Value]++
	}
}

func (v *refVisitor) ident(name string) {
	if v.labels[name] == nil {
		v.labels[name] = make(map[string]bool)
	}
}

func (v *refVisitor) dynamic(name string) bool {
	return v.uses[name] > v.static[name]
}

func entryLabels(a *registry.Accessor) []string {
	entries := a.Entries()
	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		labels = append(labels, e.Label)
	}
	return labels
}

func accessorView(ctx context.Context, a *registry.Accessor, labels []string) (map[string]any, error) {
	view := make(map[string]any, len(labels))
	for _, label := range labels {
		rec, err := a.Lookup(ctx, label)
		if err != nil {
			return nil, err
		}
		view[label] = recordView(rec)
	}
	return view, nil
}

// recordView exposes a record's attributes plus its id and label. The id and
// label keys shadow attributes of the same name.
func recordView(rec *store.Record) map[string]any {
	view := make(map[string]any, len(rec.Attributes)+2)
	for k, v := range rec.Attributes {
		view[k] = ir.ToAny(v)
	}
	view["id"] = rec.ID
	view["label"] = rec.Label
	return view
}
