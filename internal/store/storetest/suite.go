package storetest

import (
	"testing"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

// StoreFactory creates a fresh Store bound to typ for each test.
// The factory receives *testing.T so it can use t.TempDir() for stores
// that need filesystem paths and t.Cleanup() for teardown.
type StoreFactory func(t *testing.T, typ *schema.Type) store.Store

// BackendFactory creates a fresh, empty Backend for each test.
type BackendFactory func(t *testing.T) store.Backend

// RunStoreSuite runs the Store contract tests against the provided factory.
// Each test gets a fresh store instance to ensure isolation.
func RunStoreSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("StoreOps", func(t *testing.T) {
		runStoreOpsTests(t, factory)
	})
}

// RunBackendSuite runs the Backend contract tests, then the Store contract
// tests with store.Persistent over a fresh backend.
func RunBackendSuite(t *testing.T, factory BackendFactory) {
	t.Helper()

	t.Run("BackendOps", func(t *testing.T) {
		runBackendOpsTests(t, factory)
	})

	t.Run("Hooks", func(t *testing.T) {
		runHookTests(t, factory)
	})

	RunStoreSuite(t, func(t *testing.T, typ *schema.Type) store.Store {
		return store.NewPersistent(typ, factory(t))
	})
}

// OpenType is a record type that accepts any attributes.
func OpenType(name string) *schema.Type {
	return &schema.Type{Name: name}
}

// PlanType is a declared type with a required title and a defaulted price.
func PlanType() *schema.Type {
	return &schema.Type{
		Name: "Billing::Plan",
		Fields: []schema.Field{
			{Name: "title", Kind: schema.KindString, Rules: "required"},
			{Name: "price_cents", Kind: schema.KindInt, Default: ir.IRInt(0)},
			{Name: "features", Kind: schema.KindArray},
		},
	}
}
