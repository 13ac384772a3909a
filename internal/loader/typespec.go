package loader

import (
	"fmt"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
)

// typeSpec is a record type declared inside a YAML or JavaScript script.
type typeSpec struct {
	name     string
	fields   []fieldSpec
	defaults map[string]any
	rules    map[string]string

	beforeSave schema.Hook
	afterSave  schema.Hook
}

type fieldSpec struct {
	name string
	kind string
}

func (s *typeSpec) build() (*schema.Type, error) {
	t := &schema.Type{
		Name:       s.name,
		BeforeSave: s.beforeSave,
		AfterSave:  s.afterSave,
	}
	declared := make(map[string]bool, len(s.fields))
	for _, f := range s.fields {
		kind := schema.Kind(f.kind)
		if !kind.Valid() {
			return nil, fmt.Errorf("type %s: field %s: unknown kind %q", s.name, f.name, f.kind)
		}
		field := schema.Field{Name: f.name, Kind: kind, Rules: s.rules[f.name]}
		if raw, ok := s.defaults[f.name]; ok {
			def, err := ir.FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("type %s: default for %s: %w", s.name, f.name, err)
			}
			field.Default = def
		}
		t.Fields = append(t.Fields, field)
		declared[f.name] = true
	}
	for name := range s.defaults {
		if !declared[name] {
			return nil, fmt.Errorf("type %s: default for undeclared field %s", s.name, name)
		}
	}
	for name := range s.rules {
		if !declared[name] {
			return nil, fmt.Errorf("type %s: rule for undeclared field %s", s.name, name)
		}
	}
	return t, nil
}
