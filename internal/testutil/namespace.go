package testutil

import (
	"testing"

	"github.com/roach88/seedling/internal/registry"
)

// MemoryProvider is the provider name MemoryNamespace registers.
const MemoryProvider = "memory"

// MemoryNamespace returns the namespace of a fresh registry whose only
// provider is the in-memory one.
func MemoryNamespace(t testing.TB, opts ...registry.Option) *registry.Namespace {
	t.Helper()
	r := registry.New(opts...)
	r.RegisterProvider(MemoryProvider, registry.MemoryProvider())
	ns, err := r.Namespace(MemoryProvider)
	if err != nil {
		t.Fatalf("memory namespace: %v", err)
	}
	return ns
}
