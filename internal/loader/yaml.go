package loader

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/seedling/internal/ir"
)

// YAML returns the interpreter for declarative YAML scripts:
//
//	types:
//	  Billing::Plan:
//	    fields: {title: string, price_cents: int}
//	    defaults: {price_cents: 0}
//	    rules: {title: required}
//	register: [Account, User]
//	records:
//	  accounts:
//	    kaspers_donuts: {name: "Kasper's Donuts"}
//	  users:
//	    kasper: {name: Kasper, account_id: "=accounts.kaspers_donuts.id"}
//
// Sections run in the order types, register, records. Records run in
// document order.
func YAML() Interpreter {
	return InterpreterFunc(execYAML)
}

func execYAML(ctx context.Context, env *Env, src []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return &ScriptError{Line: root.Line, Message: "script must be a mapping"}
	}

	sections := make(map[string]*yaml.Node)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		switch key.Value {
		case "types", "register", "records":
			if _, dup := sections[key.Value]; dup {
				return &ScriptError{Line: key.Line, Message: fmt.Sprintf("duplicate section %q", key.Value)}
			}
			sections[key.Value] = root.Content[i+1]
		default:
			return &ScriptError{Line: key.Line, Message: fmt.Sprintf("unknown section %q", key.Value)}
		}
	}

	if n, ok := sections["types"]; ok {
		if err := yamlTypes(env, n); err != nil {
			return err
		}
	}
	if n, ok := sections["register"]; ok {
		if err := yamlRegister(ctx, env, n); err != nil {
			return err
		}
	}
	if n, ok := sections["records"]; ok {
		if err := yamlRecords(ctx, env, n); err != nil {
			return err
		}
	}
	return nil
}

func yamlTypes(env *Env, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return &ScriptError{Line: n.Line, Message: "types must be a mapping of type name to definition"}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, def := n.Content[i], n.Content[i+1]
		ts, err := yamlTypeSpec(name.Value, def)
		if err != nil {
			return err
		}
		t, err := ts.build()
		if err != nil {
			return &ScriptError{Line: name.Line, Message: err.Error()}
		}
		if _, err := env.Define(t); err != nil {
			return err
		}
	}
	return nil
}

func yamlTypeSpec(name string, n *yaml.Node) (*typeSpec, error) {
	ts := &typeSpec{name: name}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return ts, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, &ScriptError{Line: n.Line, Message: fmt.Sprintf("type %s must be a mapping", name)}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "fields":
			if val.Kind != yaml.MappingNode {
				return nil, &ScriptError{Line: val.Line, Message: "fields must be a mapping of field name to kind"}
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				ts.fields = append(ts.fields, fieldSpec{
					name: val.Content[j].Value,
					kind: val.Content[j+1].Value,
				})
			}
		case "defaults":
			if err := val.Decode(&ts.defaults); err != nil {
				return nil, &ScriptError{Line: val.Line, Message: fmt.Sprintf("defaults: %v", err)}
			}
		case "rules":
			if err := val.Decode(&ts.rules); err != nil {
				return nil, &ScriptError{Line: val.Line, Message: fmt.Sprintf("rules: %v", err)}
			}
		default:
			return nil, &ScriptError{Line: key.Line, Message: fmt.Sprintf("type %s: unknown key %q", name, key.Value)}
		}
	}
	return ts, nil
}

func yamlRegister(ctx context.Context, env *Env, n *yaml.Node) error {
	var names []*yaml.Node
	switch n.Kind {
	case yaml.ScalarNode:
		names = []*yaml.Node{n}
	case yaml.SequenceNode:
		names = n.Content
	default:
		return &ScriptError{Line: n.Line, Message: "register must be a type name or a list of type names"}
	}
	for _, name := range names {
		if name.Kind != yaml.ScalarNode || name.Value == "" {
			return &ScriptError{Line: name.Line, Message: "type name must be a non-empty string"}
		}
		if _, err := env.Register(ctx, name.Value); err != nil {
			return err
		}
	}
	return nil
}

func yamlRecords(ctx context.Context, env *Env, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return &ScriptError{Line: n.Line, Message: "records must be a mapping of accessor to labels"}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		accessor, labels := n.Content[i], n.Content[i+1]
		if labels.Kind != yaml.MappingNode {
			return &ScriptError{Line: labels.Line, Message: fmt.Sprintf("records.%s must be a mapping of label to attributes", accessor.Value)}
		}
		for j := 0; j+1 < len(labels.Content); j += 2 {
			label, body := labels.Content[j], labels.Content[j+1]
			attrs, err := yamlAttributes(body)
			if err != nil {
				return &ScriptError{Line: body.Line, Message: fmt.Sprintf("%s.%s: %v", accessor.Value, label.Value, err)}
			}
			if err := env.Upsert(ctx, accessor.Value, label.Value, attrs, label.Line); err != nil {
				return err
			}
		}
	}
	return nil
}

func yamlAttributes(n *yaml.Node) (ir.IRObject, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return ir.IRObject{}, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("attributes must be a mapping")
	}
	var raw map[string]any
	if err := n.Decode(&raw); err != nil {
		return nil, err
	}
	return ir.ObjectFromMap(raw)
}
