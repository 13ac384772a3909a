package schema

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Catalog holds one *Type per type name.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]*Type)}
}

// Define adds t to the catalog and returns the catalog's type for its name.
//
// Redefining a name with the same fields returns the existing type, so a
// definition file may be loaded twice. Redefining it with different fields is
// an error. An open type created by Ensure is replaced by the first declared
// definition.
//
// Save hooks carried by a redefinition are attached to the existing type,
// whatever its fields. Each hook may be declared once per type: a second
// BeforeSave or AfterSave for the same name is an ErrTypeConflict.
func (c *Catalog) Define(t *Type) (*Type, error) {
	if t == nil || t.Name == "" {
		return nil, &ValidationError{Code: ErrTypeConflict, Message: "type name is required"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.types[t.Name]
	if !ok {
		c.types[t.Name] = t
		return t, nil
	}
	if existing == t {
		return existing, nil
	}
	sameFields := reflect.DeepEqual(existing.Fields, t.Fields) || (existing.Open() && t.Open())
	if !sameFields && !existing.Open() {
		return nil, &ValidationError{
			Type:    t.Name,
			Code:    ErrTypeConflict,
			Message: "type is already defined with different fields",
		}
	}
	if t.BeforeSave != nil && existing.BeforeSave != nil {
		return nil, hookConflict(t.Name, "before_save")
	}
	if t.AfterSave != nil && existing.AfterSave != nil {
		return nil, hookConflict(t.Name, "after_save")
	}

	// Keep the pointer so stores already bound to the name stay valid.
	if !sameFields {
		existing.Fields = t.Fields
	}
	if t.BeforeSave != nil {
		existing.BeforeSave = t.BeforeSave
	}
	if t.AfterSave != nil {
		existing.AfterSave = t.AfterSave
	}
	return existing, nil
}

func hookConflict(name, hook string) error {
	return &ValidationError{
		Type:    name,
		Code:    ErrTypeConflict,
		Message: hook + " hook is already defined",
	}
}

// Lookup returns the type defined under name.
func (c *Catalog) Lookup(name string) (*Type, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return t, nil
}

// Ensure returns the type defined under name, creating an open type if none
// exists.
func (c *Catalog) Ensure(name string) *Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.types[name]; ok {
		return t
	}
	t := &Type{Name: name}
	c.types[name] = t
	return t
}

// Names returns all defined type names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
