package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

func newRecord(typ *schema.Type, label string, attrs ir.IRObject) *store.Record {
	return &store.Record{
		Type:       typ.Name,
		Label:      label,
		ID:         ir.LabelID(label),
		Attributes: attrs,
	}
}

func runBackendOpsTests(t *testing.T, factory BackendFactory) {
	t.Run("FindByIDMissing", func(t *testing.T) {
		b := factory(t)
		_, err := b.FindByID(t.Context(), OpenType("User"), ir.LabelID("nobody"))
		if !store.IsNotFound(err) {
			t.Fatalf("FindByID() error = %v, want not found", err)
		}
	})

	t.Run("CreateThenFind", func(t *testing.T) {
		b := factory(t)
		typ := OpenType("User")
		rec := newRecord(typ, "kasper", ir.IRObject{"name": ir.IRString("Kasper")})

		if err := b.CreateWithID(t.Context(), typ, rec.ID, rec); err != nil {
			t.Fatalf("CreateWithID() failed: %v", err)
		}

		got, err := b.FindByID(t.Context(), typ, rec.ID)
		if err != nil {
			t.Fatalf("FindByID() failed: %v", err)
		}
		if got.ID != rec.ID || got.Label != "kasper" || got.Type != "User" {
			t.Errorf("FindByID() = %+v, want id/label/type of %+v", got, rec)
		}
		assertAttributes(t, got.Attributes, rec.Attributes)
	})

	t.Run("UpdateReplaces", func(t *testing.T) {
		b := factory(t)
		typ := OpenType("User")
		rec := newRecord(typ, "kasper", ir.IRObject{"name": ir.IRString("Kasper"), "age": ir.IRInt(30)})
		if err := b.CreateWithID(t.Context(), typ, rec.ID, rec); err != nil {
			t.Fatalf("CreateWithID() failed: %v", err)
		}

		updated := newRecord(typ, "kasper", ir.IRObject{"name": ir.IRString("Kasper Timm")})
		if err := b.UpdateByID(t.Context(), typ, rec.ID, updated); err != nil {
			t.Fatalf("UpdateByID() failed: %v", err)
		}

		got, err := b.FindByID(t.Context(), typ, rec.ID)
		if err != nil {
			t.Fatalf("FindByID() failed: %v", err)
		}
		assertAttributes(t, got.Attributes, updated.Attributes)
	})

	t.Run("TypesAreIsolated", func(t *testing.T) {
		b := factory(t)
		users := OpenType("User")
		menus := OpenType("Menu")
		rec := newRecord(users, "basic", ir.IRObject{"name": ir.IRString("Basic User")})
		if err := b.CreateWithID(t.Context(), users, rec.ID, rec); err != nil {
			t.Fatalf("CreateWithID() failed: %v", err)
		}

		if _, err := b.FindByID(t.Context(), menus, rec.ID); !store.IsNotFound(err) {
			t.Errorf("FindByID() across types error = %v, want not found", err)
		}
	})
}

func runHookTests(t *testing.T, factory BackendFactory) {
	t.Run("HooksSeeOperation", func(t *testing.T) {
		var ops []string
		typ := OpenType("Plan")
		typ.BeforeSave = func(_ context.Context, op schema.Op, label string, _ ir.IRObject) error {
			ops = append(ops, "before:"+string(op)+":"+label)
			return nil
		}
		typ.AfterSave = func(_ context.Context, op schema.Op, label string, _ ir.IRObject) error {
			ops = append(ops, "after:"+string(op)+":"+label)
			return nil
		}

		s := store.NewPersistent(typ, factory(t))
		if err := s.Upsert(t.Context(), "basic", ir.IRObject{"title": ir.IRString("Basic")}); err != nil {
			t.Fatalf("first Upsert() failed: %v", err)
		}
		if err := s.Upsert(t.Context(), "basic", ir.IRObject{"title": ir.IRString("Basic 2")}); err != nil {
			t.Fatalf("second Upsert() failed: %v", err)
		}

		want := []string{
			"before:create:basic", "after:create:basic",
			"before:update:basic", "after:update:basic",
		}
		if len(ops) != len(want) {
			t.Fatalf("hook calls = %v, want %v", ops, want)
		}
		for i := range want {
			if ops[i] != want[i] {
				t.Errorf("hook call %d = %q, want %q", i, ops[i], want[i])
			}
		}
	})

	t.Run("AfterSaveErrorOnUpdateIsVerbatim", func(t *testing.T) {
		errAfterSave := errors.New("after_save")
		reject := false
		typ := OpenType("Plan")
		typ.AfterSave = func(context.Context, schema.Op, string, ir.IRObject) error {
			if reject {
				return errAfterSave
			}
			return nil
		}

		s := store.NewPersistent(typ, factory(t))
		if err := s.Upsert(t.Context(), "test_premium", ir.IRObject{"title": ir.IRString("Premium")}); err != nil {
			t.Fatalf("first Upsert() failed: %v", err)
		}

		reject = true
		err := s.Upsert(t.Context(), "test_premium", ir.IRObject{"title": ir.IRString("Changed")})
		if err != errAfterSave {
			t.Fatalf("Upsert() error = %v (%T), want the hook error itself", err, err)
		}
		if err.Error() != "after_save" {
			t.Errorf("Upsert() error message = %q, want %q", err.Error(), "after_save")
		}

		rec, err := s.Find(t.Context(), "test_premium")
		if err != nil {
			t.Fatalf("Find() failed: %v", err)
		}
		assertAttributes(t, rec.Attributes, ir.IRObject{"title": ir.IRString("Premium")})
	})

	t.Run("AfterSaveErrorOnCreateIsVerbatim", func(t *testing.T) {
		errAfterSave := errors.New("after_save")
		typ := OpenType("Plan")
		typ.AfterSave = func(context.Context, schema.Op, string, ir.IRObject) error {
			return errAfterSave
		}

		s := store.NewPersistent(typ, factory(t))
		err := s.Upsert(t.Context(), "test_premium", ir.IRObject{"title": ir.IRString("Premium")})
		if err != errAfterSave {
			t.Fatalf("Upsert() error = %v (%T), want the hook error itself", err, err)
		}
		if _, err := s.Find(t.Context(), "test_premium"); !store.IsNotFound(err) {
			t.Errorf("Find() after rejected create error = %v, want not found", err)
		}
	})

	t.Run("BeforeSaveErrorIsVerbatim", func(t *testing.T) {
		errBeforeSave := errors.New("before_save: title is reserved")
		typ := OpenType("Plan")
		typ.BeforeSave = func(context.Context, schema.Op, string, ir.IRObject) error {
			return errBeforeSave
		}

		s := store.NewPersistent(typ, factory(t))
		err := s.Upsert(t.Context(), "basic", ir.IRObject{"title": ir.IRString("Basic")})
		if err != errBeforeSave {
			t.Fatalf("Upsert() error = %v (%T), want the hook error itself", err, err)
		}
	})
}
