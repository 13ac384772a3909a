package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAccessorName(t *testing.T) {
	tests := []struct {
		typeName string
		expected string
	}{
		{"Billing::Plan", "billing_plans"},
		{"User", "users"},
		{"Account", "accounts"},
		{"Menu", "menus"},
		{"Menu::Item", "menu_items"},
		{"Admin/AuditLog", "admin_audit_logs"},
		{"shop.order_line", "shop_order_lines"},
		{"Person", "people"},
		{"Category", "categories"},
		{"::Plan", "plans"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			assert.Equal(t, tt.expected, AccessorName(tt.typeName))
		})
	}
}

func TestAccessorNameHasNoSeparators(t *testing.T) {
	segment := rapid.StringMatching(`[A-Z][a-z]{1,8}`)

	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(segment, 1, 4).Draw(t, "parts")
		sep := rapid.SampledFrom([]string{"::", "/", "."}).Draw(t, "sep")

		name := AccessorName(strings.Join(parts, sep))

		if strings.ContainsAny(name, ":/.") {
			t.Fatalf("accessor name %q still contains a separator", name)
		}
		if name != strings.ToLower(name) {
			t.Fatalf("accessor name %q is not lower case", name)
		}
		if got := strings.Count(name, "_"); got < len(parts)-1 {
			t.Fatalf("accessor name %q joins %d segments with %d underscores", name, len(parts), got)
		}
	})
}
