package schema

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedling/internal/ir"
)

func TestCompileTypesBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		types: "Billing::Plan": {
			fields: {
				title:       string
				price_cents: int | *0
				tags?:       [...string]
			}
			rules: title: "required"
		}
		types: Account: {}
	`)
	require.NoError(t, v.Err())

	types, err := CompileTypes(v)
	require.NoError(t, err)
	require.Len(t, types, 2)

	plan := types[0]
	assert.Equal(t, "Billing::Plan", plan.Name)
	assert.Equal(t, "billing_plans", plan.AccessorName())
	require.Len(t, plan.Fields, 3)

	title, ok := plan.Field("title")
	require.True(t, ok)
	assert.Equal(t, KindString, title.Kind)
	assert.Equal(t, "required", title.Rules)
	assert.True(t, title.Required())
	assert.Nil(t, title.Default)

	price, ok := plan.Field("price_cents")
	require.True(t, ok)
	assert.Equal(t, KindInt, price.Kind)
	assert.Equal(t, ir.IRInt(0), price.Default)

	tags, ok := plan.Field("tags")
	require.True(t, ok)
	assert.Equal(t, KindArray, tags.Kind)

	assert.Equal(t, "Account", types[1].Name)
	assert.True(t, types[1].Open())
}

func TestCompileTypesAbsent(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`records: users: kasper: name: "Kasper"`)
	require.NoError(t, v.Err())

	types, err := CompileTypes(v)
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestCompileTypesRejectsFloat(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		types: Plan: fields: price: float
	`)
	require.NoError(t, v.Err())

	_, err := CompileTypes(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float types are forbidden")

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "type", ce.Field)
}

func TestCompileTypesRuleForUndeclaredField(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		types: Plan: {
			fields: title: string
			rules: price: "min=1"
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileTypes(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "types.Plan.rules.price")
}

func TestValueFromCUE(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`{
		name:   "Kasper"
		age:    30
		admin:  false
		tags:   ["owner", "baker"]
		extra:  { nickname: null }
		plan:   *"basic" | "premium"
	}`)
	require.NoError(t, v.Err())

	got, err := ValueFromCUE(v)
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{
		"name":  ir.IRString("Kasper"),
		"age":   ir.IRInt(30),
		"admin": ir.IRBool(false),
		"tags":  ir.IRArray{ir.IRString("owner"), ir.IRString("baker")},
		"extra": ir.IRObject{"nickname": ir.IRNull{}},
		"plan":  ir.IRString("basic"),
	}, got)
}

func TestValueFromCUERejectsIncomplete(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`{ name: string }`)
	require.NoError(t, v.Err())

	_, err := ValueFromCUE(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concrete")
}

func TestValueFromCUERejectsFloat(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`{ price: 9.99 }`)
	require.NoError(t, v.Err())

	_, err := ValueFromCUE(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are not allowed")
}
