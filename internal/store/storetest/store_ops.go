package storetest

import (
	"testing"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

func runStoreOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("FindUnknownLabel", func(t *testing.T) {
		s := factory(t, OpenType("User"))

		rec, err := s.Find(t.Context(), "nobody")
		if !store.IsNotFound(err) {
			t.Fatalf("Find() error = %v, want not found", err)
		}
		if rec != nil {
			t.Errorf("Find() returned record %+v for unknown label", rec)
		}
	})

	t.Run("UpsertThenFind", func(t *testing.T) {
		typ := OpenType("User")
		s := factory(t, typ)
		attrs := ir.IRObject{"name": ir.IRString("Kasper"), "age": ir.IRInt(30)}

		if err := s.Upsert(t.Context(), "kasper", attrs); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}

		rec, err := s.Find(t.Context(), "kasper")
		if err != nil {
			t.Fatalf("Find() failed: %v", err)
		}
		if rec.Label != "kasper" {
			t.Errorf("Label = %q, want %q", rec.Label, "kasper")
		}
		if rec.Type != "User" {
			t.Errorf("Type = %q, want %q", rec.Type, "User")
		}
		if rec.ID != ir.LabelID("kasper") {
			t.Errorf("ID = %q, want derived id %q", rec.ID, ir.LabelID("kasper"))
		}
		assertAttributes(t, rec.Attributes, attrs)
		if s.Type() != typ {
			t.Error("Type() does not return the bound type")
		}
	})

	t.Run("UpsertReplacesWholeRecord", func(t *testing.T) {
		s := factory(t, OpenType("User"))
		first := ir.IRObject{"name": ir.IRString("Kasper"), "nickname": ir.IRString("K")}
		second := ir.IRObject{"name": ir.IRString("Kasper Timm"), "email": ir.IRString("k@example.com")}

		if err := s.Upsert(t.Context(), "kasper", first); err != nil {
			t.Fatalf("first Upsert() failed: %v", err)
		}
		if err := s.Upsert(t.Context(), "kasper", second); err != nil {
			t.Fatalf("second Upsert() failed: %v", err)
		}

		rec, err := s.Find(t.Context(), "kasper")
		if err != nil {
			t.Fatalf("Find() failed: %v", err)
		}
		assertAttributes(t, rec.Attributes, second)
	})

	t.Run("LabelsAreIndependent", func(t *testing.T) {
		s := factory(t, OpenType("User"))
		if err := s.Upsert(t.Context(), "kasper", ir.IRObject{"name": ir.IRString("Kasper")}); err != nil {
			t.Fatalf("Upsert(kasper) failed: %v", err)
		}
		if err := s.Upsert(t.Context(), "coworker", ir.IRObject{"name": ir.IRString("Coworker")}); err != nil {
			t.Fatalf("Upsert(coworker) failed: %v", err)
		}

		rec, err := s.Find(t.Context(), "kasper")
		if err != nil {
			t.Fatalf("Find(kasper) failed: %v", err)
		}
		assertAttributes(t, rec.Attributes, ir.IRObject{"name": ir.IRString("Kasper")})

		if _, err := s.Find(t.Context(), "x"); !store.IsNotFound(err) {
			t.Errorf("Find(x) error = %v, want not found", err)
		}
	})

	t.Run("FindReturnsCopy", func(t *testing.T) {
		s := factory(t, OpenType("User"))
		if err := s.Upsert(t.Context(), "kasper", ir.IRObject{"tags": ir.IRArray{ir.IRString("owner")}}); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}

		rec, err := s.Find(t.Context(), "kasper")
		if err != nil {
			t.Fatalf("Find() failed: %v", err)
		}
		rec.Attributes["tags"] = ir.IRArray{}

		again, err := s.Find(t.Context(), "kasper")
		if err != nil {
			t.Fatalf("second Find() failed: %v", err)
		}
		assertAttributes(t, again.Attributes, ir.IRObject{"tags": ir.IRArray{ir.IRString("owner")}})
	})

	t.Run("UpsertAppliesDefaults", func(t *testing.T) {
		s := factory(t, PlanType())
		if err := s.Upsert(t.Context(), "basic", ir.IRObject{"title": ir.IRString("Basic")}); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}

		rec, err := s.Find(t.Context(), "basic")
		if err != nil {
			t.Fatalf("Find() failed: %v", err)
		}
		assertAttributes(t, rec.Attributes, ir.IRObject{
			"title":       ir.IRString("Basic"),
			"price_cents": ir.IRInt(0),
		})
	})

	t.Run("UpsertRejectsInvalidAttributes", func(t *testing.T) {
		s := factory(t, PlanType())
		err := s.Upsert(t.Context(), "broken", ir.IRObject{"title": ir.IRInt(1)})
		if !schema.IsValidationError(err) {
			t.Fatalf("Upsert() error = %v, want validation error", err)
		}
		if _, err := s.Find(t.Context(), "broken"); !store.IsNotFound(err) {
			t.Errorf("Find() after rejected upsert error = %v, want not found", err)
		}
	})

	t.Run("UnicodeLabels", func(t *testing.T) {
		s := factory(t, OpenType("Menu"))
		if err := s.Upsert(t.Context(), "café", ir.IRObject{"name": ir.IRString("Café")}); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
		rec, err := s.Find(t.Context(), "café")
		if err != nil {
			t.Fatalf("Find() failed: %v", err)
		}
		if rec.Label != "café" {
			t.Errorf("Label = %q, want %q", rec.Label, "café")
		}
	})

	t.Run("NormalizationFormsAreDistinctLabels", func(t *testing.T) {
		s := factory(t, OpenType("Menu"))
		composed := "caf\u00e9"
		decomposed := "cafe\u0301"
		if err := s.Upsert(t.Context(), composed, ir.IRObject{"name": ir.IRString("A")}); err != nil {
			t.Fatalf("Upsert(composed) failed: %v", err)
		}
		if err := s.Upsert(t.Context(), decomposed, ir.IRObject{"name": ir.IRString("B")}); err != nil {
			t.Fatalf("Upsert(decomposed) failed: %v", err)
		}

		for label, want := range map[string]string{composed: "A", decomposed: "B"} {
			rec, err := s.Find(t.Context(), label)
			if err != nil {
				t.Fatalf("Find(%q) failed: %v", label, err)
			}
			if rec.Label != label {
				t.Errorf("Find(%q) Label = %q", label, rec.Label)
			}
			if rec.ID != ir.LabelID(label) {
				t.Errorf("Find(%q) ID = %q, want %q", label, rec.ID, ir.LabelID(label))
			}
			assertAttributes(t, rec.Attributes, ir.IRObject{"name": ir.IRString(want)})
		}
	})
}

// assertAttributes compares attribute objects by canonical form.
func assertAttributes(t *testing.T, got, want ir.IRObject) {
	t.Helper()
	gotJSON, err := ir.MarshalCanonical(got)
	if err != nil {
		t.Fatalf("MarshalCanonical(got) failed: %v", err)
	}
	wantJSON, err := ir.MarshalCanonical(want)
	if err != nil {
		t.Fatalf("MarshalCanonical(want) failed: %v", err)
	}
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("attributes = %s, want %s", gotJSON, wantJSON)
	}
}
