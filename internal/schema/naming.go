package schema

import (
	"strings"

	"github.com/jinzhu/inflection"
	gormschema "gorm.io/gorm/schema"
)

var naming = gormschema.NamingStrategy{}

// AccessorName derives the namespace member name for a type name.
//
// The name is split on "::", "/" and "."; each segment is snake_cased; the
// segments are joined with "_" and the final segment is pluralized:
//
//	AccessorName("Billing::Plan")  // "billing_plans"
//	AccessorName("Admin/AuditLog") // "admin_audit_logs"
//	AccessorName("User")           // "users"
func AccessorName(typeName string) string {
	fields := strings.FieldsFunc(
		strings.NewReplacer("::", "/", ".", "/").Replace(typeName),
		func(r rune) bool { return r == '/' },
	)
	segments := make([]string, 0, len(fields))
	for _, f := range fields {
		if seg := naming.ColumnName("", strings.TrimSpace(f)); seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return ""
	}
	last := len(segments) - 1
	segments[last] = inflection.Plural(segments[last])
	return strings.Join(segments, "_")
}
