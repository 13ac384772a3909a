package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

// countingProvider wraps MemoryProvider and counts constructions.
func countingProvider(n *atomic.Int64) Constructor {
	memory := MemoryProvider()
	return func(ctx context.Context, t *schema.Type) (store.Store, error) {
		n.Add(1)
		return memory(ctx, t)
	}
}

func TestBindReturnsSameStore(t *testing.T) {
	var constructed atomic.Int64
	r := New()
	r.RegisterProvider("memory", countingProvider(&constructed))
	typ := &schema.Type{Name: "User"}

	first, err := r.Bind(t.Context(), typ, "memory")
	require.NoError(t, err)
	second, err := r.Bind(t.Context(), typ, "memory")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), constructed.Load())
}

func TestBindIdentityProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var constructed atomic.Int64
		r := New()
		r.RegisterProvider("memory", countingProvider(&constructed))
		r.RegisterProvider("records", countingProvider(&constructed))

		types := []*schema.Type{{Name: "User"}, {Name: "Account"}, {Name: "Billing::Plan"}}
		seen := make(map[bindKey]store.Store)

		n := rapid.IntRange(1, 50).Draw(rt, "binds")
		for i := 0; i < n; i++ {
			typ := rapid.SampledFrom(types).Draw(rt, "type")
			provider := rapid.SampledFrom([]string{"memory", "records"}).Draw(rt, "provider")

			s, err := r.Bind(context.Background(), typ, provider)
			if err != nil {
				rt.Fatalf("Bind() failed: %v", err)
			}
			key := bindKey{typ: typ, provider: provider}
			if prev, ok := seen[key]; ok && prev != s {
				rt.Fatalf("Bind(%s, %s) returned a new store", typ.Name, provider)
			}
			seen[key] = s
		}
		if int(constructed.Load()) != len(seen) {
			rt.Fatalf("constructed %d stores for %d pairs", constructed.Load(), len(seen))
		}
	})
}

func TestBindConcurrentConstructsOnce(t *testing.T) {
	var constructed atomic.Int64
	r := New()
	r.RegisterProvider("memory", countingProvider(&constructed))
	typ := &schema.Type{Name: "User"}

	const goroutines = 32
	stores := make([]store.Store, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.Bind(context.Background(), typ, "memory")
			assert.NoError(t, err)
			stores[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), constructed.Load())
	for _, s := range stores {
		assert.Same(t, stores[0], s)
	}
}

func TestBindDistinctTypesWithSameName(t *testing.T) {
	r := New()
	r.RegisterProvider("memory", MemoryProvider())

	a, err := r.Bind(t.Context(), &schema.Type{Name: "User"}, "memory")
	require.NoError(t, err)
	b, err := r.Bind(t.Context(), &schema.Type{Name: "User"}, "memory")
	require.NoError(t, err)

	assert.NotSame(t, a, b, "type identity is the *Type, not its name")
}

func TestBindUnknownProvider(t *testing.T) {
	r := New()
	_, err := r.Bind(t.Context(), &schema.Type{Name: "User"}, "nope")

	require.Error(t, err)
	assert.True(t, IsUnknownProvider(err))
	assert.Equal(t, "UNKNOWN_PROVIDER: provider is not registered (provider=nope)", err.Error())
}

func TestBindConstructorErrorIsNotMemoized(t *testing.T) {
	errBoom := errors.New("backend unavailable")
	calls := 0
	r := New()
	r.RegisterProvider("flaky", func(ctx context.Context, t *schema.Type) (store.Store, error) {
		calls++
		if calls == 1 {
			return nil, errBoom
		}
		return store.NewMemory(t), nil
	})
	typ := &schema.Type{Name: "User"}

	_, err := r.Bind(t.Context(), typ, "flaky")
	require.ErrorIs(t, err, errBoom)

	s, err := r.Bind(t.Context(), typ, "flaky")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestRegisterProviderLastWins(t *testing.T) {
	var first, second atomic.Int64
	r := New()
	r.RegisterProvider("memory", countingProvider(&first))
	r.RegisterProvider("memory", countingProvider(&second))

	_, err := r.Bind(t.Context(), &schema.Type{Name: "User"}, "memory")
	require.NoError(t, err)

	assert.Equal(t, int64(0), first.Load())
	assert.Equal(t, int64(1), second.Load())
	assert.Equal(t, []string{"memory"}, r.Providers())
}

func TestNamespaceMemoized(t *testing.T) {
	r := New()
	r.RegisterProvider("memory", MemoryProvider())

	a, err := r.Namespace("memory")
	require.NoError(t, err)
	b, err := r.Namespace("memory")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "memory", a.Provider())

	_, err = r.Namespace("records")
	assert.True(t, IsUnknownProvider(err))
}

// Upserting a label in one provider never creates or affects that label in
// another provider, even for the same record type.
func TestProvidersAreIsolated(t *testing.T) {
	r := New()
	r.RegisterProvider("memory", MemoryProvider())
	r.RegisterProvider("records", MemoryProvider())
	typ := &schema.Type{Name: "User"}

	memNS, err := r.Namespace("memory")
	require.NoError(t, err)
	recNS, err := r.Namespace("records")
	require.NoError(t, err)

	memUsers, err := memNS.Register(t.Context(), typ)
	require.NoError(t, err)
	recUsers, err := recNS.Register(t.Context(), typ)
	require.NoError(t, err)
	require.NotSame(t, memUsers.Store(), recUsers.Store())

	require.NoError(t, memUsers.Upsert(t.Context(), "x", ir.IRObject{"name": ir.IRString("A")}, Origin{}))

	assert.False(t, recUsers.Has("x"))
	_, err = recUsers.Lookup(t.Context(), "x")
	assert.True(t, IsUnknownAccessor(err))
	_, err = recUsers.Store().Find(t.Context(), "x")
	assert.True(t, store.IsNotFound(err))

	require.NoError(t, recUsers.Upsert(t.Context(), "x", ir.IRObject{"name": ir.IRString("B")}, Origin{}))
	rec, err := memUsers.Lookup(t.Context(), "x")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("A"), rec.Attributes["name"])
}
