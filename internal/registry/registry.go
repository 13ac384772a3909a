package registry

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

// Constructor builds the Store for one record type. A Registry calls it at
// most once per (type, provider) pair.
type Constructor func(ctx context.Context, t *schema.Type) (store.Store, error)

// MemoryProvider constructs in-process memory stores.
func MemoryProvider() Constructor {
	return func(_ context.Context, t *schema.Type) (store.Store, error) {
		return store.NewMemory(t), nil
	}
}

// PersistentProvider constructs stores over a shared durable backend.
func PersistentProvider(backend store.Backend) Constructor {
	return func(_ context.Context, t *schema.Type) (store.Store, error) {
		return store.NewPersistent(t, backend), nil
	}
}

type bindKey struct {
	typ      *schema.Type
	provider string
}

// Registry maps provider names to constructors and memoizes one Store per
// (record type, provider) pair. Stores are never replaced or discarded.
type Registry struct {
	mu         sync.Mutex
	providers  map[string]Constructor
	stores     map[bindKey]store.Store
	namespaces map[string]*Namespace

	clock  *Clock
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for store binding events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithClock sets the clock that stamps definitions.
func WithClock(clock *Clock) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		providers:  make(map[string]Constructor),
		stores:     make(map[bindKey]store.Store),
		namespaces: make(map[string]*Namespace),
		clock:      NewClock(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterProvider records a provider kind. Registering a name again
// replaces its constructor for pairs that are not bound yet; stores already
// created are kept.
func (r *Registry) RegisterProvider(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = c
}

// Providers returns the registered provider names in sorted order.
func (r *Registry) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Bind returns the Store for (t, provider), constructing it on first use.
// Repeated binds return the identical Store. The check and the construction
// happen under one lock, so concurrent first binds construct once.
func (r *Registry) Bind(ctx context.Context, t *schema.Type, provider string) (store.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := bindKey{typ: t, provider: provider}
	if s, ok := r.stores[key]; ok {
		return s, nil
	}

	construct, ok := r.providers[provider]
	if !ok {
		return nil, unknownProvider(provider)
	}
	s, err := construct(ctx, t)
	if err != nil {
		return nil, err
	}
	r.stores[key] = s
	r.logger.Debug("store bound",
		"type", t.Name,
		"provider", provider,
	)
	return s, nil
}

// Namespace returns the accessor namespace of provider, creating it on first
// use.
func (r *Registry) Namespace(provider string) (*Namespace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ns, ok := r.namespaces[provider]; ok {
		return ns, nil
	}
	if _, ok := r.providers[provider]; !ok {
		return nil, unknownProvider(provider)
	}
	ns := newNamespace(r, provider)
	r.namespaces[provider] = ns
	return ns, nil
}

func unknownProvider(provider string) *Error {
	return &Error{
		Code:     ErrCodeUnknownProvider,
		Message:  "provider is not registered",
		Provider: provider,
	}
}
