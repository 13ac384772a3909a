package loader

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/seedling/internal/schema"
)

// DefineTypes compiles the "types" struct of each CUE file and defines the
// result in catalog, in file order. Other top-level fields are ignored.
func DefineTypes(catalog *schema.Catalog, paths ...string) ([]*schema.Type, error) {
	cuectx := cuecontext.New()
	var defined []*schema.Type
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read types file: %w", err)
		}
		v := cuectx.CompileBytes(src, cue.Filename(p))
		if err := v.Validate(); err != nil {
			return nil, &LoadError{Path: p, Err: schema.FormatCUEError(err)}
		}
		types, err := schema.CompileTypes(v)
		if err != nil {
			return nil, &LoadError{Path: p, Err: err}
		}
		for _, t := range types {
			def, err := catalog.Define(t)
			if err != nil {
				return nil, &LoadError{Path: p, Err: err}
			}
			defined = append(defined, def)
		}
	}
	return defined, nil
}
