package gridquery

import (
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of resolved paths a Compiler keeps by default.
const DefaultCacheSize = 256

// Option configures a Compiler.
type Option func(*compilerOptions)

type compilerOptions struct {
	cacheSize int
	logger    *slog.Logger
}

// WithCacheSize sets how many resolved property paths the compiler caches.
func WithCacheSize(size int) Option {
	return func(o *compilerOptions) {
		o.cacheSize = size
	}
}

// WithLogger sets the logger used to report dropped descriptors.
func WithLogger(logger *slog.Logger) Option {
	return func(o *compilerOptions) {
		o.logger = logger
	}
}

// Compiler turns filter and sort descriptors into predicates and orderings over T.
// A Compiler is safe for concurrent use and is meant to be created once per entity type.
type Compiler[T any] struct {
	schema *Schema
	paths  *lru.Cache[string, *ResolvedPath]
	logger *slog.Logger
}

// NewCompiler creates a compiler for T. When schema is nil, it is built with SchemaFor[T].
// Property getters of the schema receive values of type T.
func NewCompiler[T any](schema *Schema, opts ...Option) (*Compiler[T], error) {
	o := compilerOptions{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if schema == nil {
		var err error
		if schema, err = SchemaFor[T](); err != nil {
			return nil, err
		}
	}

	paths, err := lru.New[string, *ResolvedPath](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating path cache: %w", err)
	}

	return &Compiler[T]{
		schema: schema,
		paths:  paths,
		logger: o.logger.With("schema", schema.Name()),
	}, nil
}

// Schema returns the schema the compiler resolves paths against.
func (c *Compiler[T]) Schema() *Schema {
	return c.schema
}

// Resolve resolves a dotted path, caching both hits and misses.
func (c *Compiler[T]) Resolve(path string) (*ResolvedPath, bool) {
	key := strings.ToLower(strings.TrimSpace(path))
	if rp, ok := c.paths.Get(key); ok {
		return rp, rp != nil
	}
	rp, ok := c.schema.Resolve(path)
	if !ok {
		rp = nil
	}
	c.paths.Add(key, rp)
	return rp, ok
}

// Query filters and sorts items in memory. The input slice is not modified.
func (c *Compiler[T]) Query(items []T, filters []FilterDescriptor, sorts []SortDescriptor) ([]T, error) {
	f, err := c.Where(filters)
	if err != nil {
		return nil, err
	}
	return Apply(items, f, c.OrderBy(sorts)), nil
}

// Apply returns the items matching f, sorted by o. A nil filter keeps every item and
// a nil ordering keeps the input order.
func Apply[T any](items []T, f *Filter[T], o *Ordering[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if f.Match(item) {
			out = append(out, item)
		}
	}
	o.Sort(out)
	return out
}
