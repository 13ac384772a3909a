package loader

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/registry"
	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store/bolt"
)

func TestJSScript(t *testing.T) {
	env := newEnv(t, "test/data/plans.js")
	seedAccount(t, env)
	src := `defineType("Billing::Plan", {
  fields: { title: "string", price_cents: "int", owner_id: "string" },
  defaults: { price_cents: 0 },
  rules: { title: "required" },
});
var plans = register("Billing::Plan");
var basic = plans.upsert("basic", { title: "Basic", owner_id: accounts.kaspers_donuts.id });
billing_plans.upsert("premium", { title: basic.title + " Plus", price_cents: 1500, owner_id: "=accounts.kaspers_donuts.id" });
if (!billing_plans.has("premium") || billing_plans.premium.price_cents !== 1500) {
  throw new Error("premium missing");
}
`
	require.NoError(t, JS().Exec(t.Context(), env, []byte(src)))

	plans, err := env.Namespace().Accessor("billing_plans")
	require.NoError(t, err)

	basic, err := plans.Lookup(t.Context(), "basic")
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{
		"title":       ir.IRString("Basic"),
		"price_cents": ir.IRInt(0),
		"owner_id":    ir.IRString(ir.LabelID("kaspers_donuts")),
	}, basic.Attributes)

	premium, err := plans.Lookup(t.Context(), "premium")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Basic Plus"), premium.Attributes["title"])
	assert.Equal(t, ir.IRString(ir.LabelID("kaspers_donuts")), premium.Attributes["owner_id"])

	origin, _ := plans.Origin("basic")
	assert.Equal(t, "test/data/plans.js:7", origin.String())
	origin, _ = plans.Origin("premium")
	assert.Equal(t, "test/data/plans.js:8", origin.String())
}

func TestJSAccessorObject(t *testing.T) {
	env := newEnv(t, "check.js")
	seedAccount(t, env)
	src := `
if (accounts.name !== "accounts") throw new Error("name");
if (!accounts.has("kaspers_donuts")) throw new Error("has");
if (accounts.has("nobody")) throw new Error("has nobody");
if (accounts.nobody !== undefined) throw new Error("undefined label");
var labels = accounts.labels();
if (labels.length !== 1 || labels[0] !== "kaspers_donuts") throw new Error("labels " + labels);
var keys = Object.keys(accounts);
if (keys.length !== 1) throw new Error("keys " + keys);
var found = accounts.find("kaspers_donuts");
if (found.id !== label_id("kaspers_donuts")) throw new Error("id");
if (found.label !== "kaspers_donuts") throw new Error("label");
if (found.tags[1] !== "coffee") throw new Error("tags");
if (accounts.kaspers_donuts.seats !== 4) throw new Error("seats");
`
	require.NoError(t, JS().Exec(t.Context(), env, []byte(src)))
}

func TestJSUncaughtLookupErrorIsReturned(t *testing.T) {
	env := newEnv(t, "users.js")
	seedAccount(t, env)

	err := JS().Exec(t.Context(), env, []byte(`accounts.find("nobody");`))
	require.Error(t, err)
	assert.True(t, registry.IsUnknownAccessor(err))
}

func TestJSCaughtErrorDoesNotFailScript(t *testing.T) {
	env := newEnv(t, "users.js")
	seedAccount(t, env)

	src := `
try {
  accounts.find("nobody");
} catch (e) {
  console.log("recovered", e.message);
}
`
	assert.NoError(t, JS().Exec(t.Context(), env, []byte(src)))
}

func TestJSRethrowKeepsGoError(t *testing.T) {
	env := newEnv(t, "users.js")
	seedAccount(t, env)

	src := `
try {
  accounts.find("nobody");
} catch (e) {
  throw e;
}
`
	err := JS().Exec(t.Context(), env, []byte(src))
	require.Error(t, err)
	assert.True(t, registry.IsUnknownAccessor(err))
}

func TestJSScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "register(", "compile script"},
		{"thrown", `throw new Error("boom");`, "boom"},
		{"undefined accessor", `users.upsert("kasper", {});`, "users is not defined"},
		{"register without name", "register();", "type name is required"},
		{"upsert without label", `register("User"); users.upsert();`, "users.upsert: label is required"},
		{"upsert non-object", `register("User"); users.upsert("kasper", 7);`, "attributes must be an object"},
		{"float attribute", `register("User"); users.upsert("kasper", {score: 1.5});`, "floats are not allowed"},
		{"bad kind", `defineType("User", {fields: {score: "float"}});`, `unknown kind "float"`},
		{"bad hook", `defineType("User", {afterSave: 7});`, "afterSave: must be a function"},
		{"strict expression", `register("User"); users.upsert("kasper", {a: "=nobody.x"});`, "expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := JS().Exec(t.Context(), newEnv(t, "bad.js"), []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestJSInterruptedByContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	err := JS().Exec(ctx, newEnv(t, "loop.js"), []byte("for (;;) {}"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJSHookErrorMessageIsVerbatim(t *testing.T) {
	backend, err := bolt.Open(filepath.Join(t.TempDir(), "fixtures.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	r := registry.New()
	r.RegisterProvider("records", registry.PersistentProvider(backend))
	ns, err := r.Namespace("records")
	require.NoError(t, err)

	env := newEnv(t, "plans.js")
	env.ns = ns

	src := `
var ops = [];
defineType("Plan", {
  fields: { title: "string" },
  beforeSave: function (op, label, attrs) { ops.push(op + ":" + label + ":" + attrs.title); },
  afterSave: function (op) { if (op === "update") { throw new Error("after_save"); } },
});
register("Plan");
plans.upsert("test_premium", { title: "Premium" });
if (ops.join(",") !== "create:test_premium:Premium") throw new Error("ops " + ops);
plans.upsert("test_premium", { title: "Changed" });
`
	err = JS().Exec(t.Context(), env, []byte(src))
	require.Error(t, err)
	assert.EqualError(t, err, "after_save")

	plans, err := ns.Accessor("plans")
	require.NoError(t, err)
	rec, err := plans.Lookup(t.Context(), "test_premium")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Premium"), rec.Attributes["title"], "a failed update leaves the record unchanged")
}

func TestJSDefinedTypeIsShared(t *testing.T) {
	env := newEnv(t, "types.js")
	require.NoError(t, JS().Exec(t.Context(), env, []byte(`defineType("Plan", {fields: {title: "string"}, rules: {title: "required"}});`)))

	typ, err := env.catalog.Lookup("Plan")
	require.NoError(t, err)
	f, ok := typ.Field("title")
	require.True(t, ok)
	assert.Equal(t, schema.KindString, f.Kind)
	assert.True(t, f.Required())
}
