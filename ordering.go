package gridquery

import (
	"slices"
	"strings"
)

// Ordering is a stable multi-key comparison over T built from sort descriptors.
// A nil or empty Ordering leaves input order unchanged.
type Ordering[T any] struct {
	keys []sortKey
}

type sortKey struct {
	path *ResolvedPath
	desc bool
}

// OrderBy compiles sort descriptors into an Ordering. Keys apply in list order: the first
// descriptor is the primary key and later ones break ties. Descriptors whose selector does
// not resolve, or resolves to a property without an order, are skipped.
func (c *Compiler[T]) OrderBy(sorts []SortDescriptor) *Ordering[T] {
	o := &Ordering[T]{keys: make([]sortKey, 0, len(sorts))}
	for _, s := range sorts {
		path, ok := c.Resolve(strings.TrimSpace(s.Selector))
		if !ok {
			c.logger.Debug("dropping sort on unresolvable selector", "selector", s.Selector)
			continue
		}
		if !Orderable(path.Type()) {
			c.logger.Debug("dropping sort on unorderable property", "selector", s.Selector, "type", path.Type())
			continue
		}
		o.keys = append(o.keys, sortKey{path: path, desc: s.Desc})
	}
	return o
}

// Compare compares two entities key by key. Absent values sort before present ones
// in ascending order and after them in descending order.
func (o *Ordering[T]) Compare(a, b T) int {
	if o == nil {
		return 0
	}
	for _, k := range o.keys {
		c := compareKey(k.path, a, b)
		if k.desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareKey(path *ResolvedPath, a, b any) int {
	va, okA := path.Get(a)
	vb, okB := path.Get(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	c, _ := compareValues(va, vb)
	return c
}

// Sort sorts items in place, keeping the relative order of equal items.
func (o *Ordering[T]) Sort(items []T) {
	if o.Len() == 0 {
		return
	}
	slices.SortStableFunc(items, o.Compare)
}

// Len returns the number of compiled sort keys.
func (o *Ordering[T]) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the ordering as storage-level OrderBy clauses.
func (o *Ordering[T]) Keys() []OrderBy {
	if o == nil {
		return nil
	}
	keys := make([]OrderBy, len(o.keys))
	for i, k := range o.keys {
		dir := OrderAsc
		if k.desc {
			dir = OrderDesc
		}
		keys[i] = OrderBy{Key: strings.Join(k.path.Columns(), "."), Direction: dir, Type: k.path.Type()}
	}
	return keys
}
