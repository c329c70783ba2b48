package indexing

import (
	"log"
	"reflect"
	"sort"
	"sync"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
)

// Registry owns the Store of every index definition in use. Stores are
// created on first request and live as long as the registry.
type Registry struct {
	mu     sync.Mutex
	stores map[indexID]any

	logger  *log.Logger
	debug   bool
	metrics *Metrics
}

// indexID identifies an index by the Go type of its definition, its
// optional name and, for function-backed definitions, the function
// itself. Func definitions that extract different keys never share a
// store, whatever their names.
type indexID struct {
	def  reflect.Type
	name string
	fn   uintptr
}

// tickChecker is the part of Store[K] the registry drives without knowing K.
type tickChecker interface {
	checkTick(current domain.Tick)
}

type RegistryOption func(*Registry)

// WithLogger sets the logger used by every store of the registry.
func WithLogger(logger *log.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithDebug enables DEBUG lines for every refresh and reindexed entity.
func WithDebug(enabled bool) RegistryOption {
	return func(r *Registry) {
		r.debug = enabled
	}
}

// WithMetrics reports refresh activity to m.
func WithMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates an empty registry
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		stores: make(map[indexID]any),
		logger: log.Default(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// StoreFor returns the store backing def, creating it on first use.
func StoreFor[C any, K comparable](r *Registry, def domain.Definition[C, K]) *Store[K] {
	id := indexID{def: reflect.TypeOf(def)}
	if n, ok := def.(domain.Named); ok {
		id.name = n.IndexName()
	}
	if f, ok := def.(domain.Extractor); ok {
		id.fn = f.Extractor()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[id]; ok {
		return s.(*Store[K])
	}

	s := NewStore[K](domain.IndexName(def))
	s.logger = r.logger
	s.debug = r.debug
	s.metrics = r.metrics
	r.stores[id] = s

	if r.debug {
		r.logger.Printf("DEBUG: Created store for index '%s'", s.name)
	}
	return s
}

// Open returns an Index over view backed by the registry's store for def.
func Open[C any, K comparable](r *Registry, def domain.Definition[C, K], view domain.LiveView[C]) *Index[C, K] {
	return NewIndex(StoreFor(r, def), def, view)
}

// CheckTicks clamps the watermark of every store against current. Hosts
// call it whenever they clamp their own component ticks, so an index left
// idle for a very long time rescans instead of trusting a wrapped
// watermark.
func (r *Registry) CheckTicks(current domain.Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		s.(tickChecker).checkTick(current)
	}
}

// Indexes returns the names of all stores created so far, sorted.
func (r *Registry) Indexes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.stores))
	for id := range r.stores {
		if id.name != "" {
			names = append(names, id.name)
			continue
		}
		names = append(names, id.def.String())
	}
	sort.Strings(names)
	return names
}
