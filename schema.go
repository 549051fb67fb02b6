package gridquery

import (
	"reflect"
	"strings"
)

// Property is one named member of a Schema.
// A property is either a leaf, whose value is filtered and sorted on, or an object,
// whose Elem schema is used to resolve the next segment of a dotted path.
type Property struct {
	name   string
	column string
	typ    reflect.Type
	elem   *Schema

	// get extracts the property value from its parent value.
	// It reports false when the value is absent (a nil pointer on the way).
	get func(parent any) (any, bool)
}

// Name returns the declared property name.
func (p *Property) Name() string { return p.name }

// Column returns the storage key of the property; it defaults to the declared name.
func (p *Property) Column() string {
	if p.column == "" {
		return p.name
	}
	return p.column
}

// Type returns the Go type of the property value. For objects it is the element type.
func (p *Property) Type() reflect.Type { return p.typ }

// Elem returns the schema of an object property, or nil for a leaf.
func (p *Property) Elem() *Schema { return p.elem }

// WithColumn returns a copy of the property stored under the given column name.
func (p Property) WithColumn(column string) Property {
	p.column = column
	return p
}

// Value declares a leaf property of type V read from a parent of type T.
// When V is a pointer type the property has the pointed-to type and a nil pointer is absent,
// as with Pointer.
func Value[T, V any](name string, get func(T) V) Property {
	typ := reflect.TypeFor[V]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	direct := typ == reflect.TypeFor[V]()
	return Property{
		name: name,
		typ:  typ,
		get: func(parent any) (any, bool) {
			t, ok := parent.(T)
			if !ok {
				return nil, false
			}
			v := any(get(t))
			if direct {
				return v, true
			}
			rv, ok := indirect(reflect.ValueOf(v))
			if !ok {
				return nil, false
			}
			return rv.Interface(), true
		},
	}
}

// Pointer declares an optional leaf property. A nil pointer is an absent value.
func Pointer[T, V any](name string, get func(T) *V) Property {
	return Property{
		name: name,
		typ:  reflect.TypeFor[V](),
		get: func(parent any) (any, bool) {
			t, ok := parent.(T)
			if !ok {
				return nil, false
			}
			v := get(t)
			if v == nil {
				return nil, false
			}
			return *v, true
		},
	}
}

// Object declares a nested object property whose members are described by elem.
// A nil pointer ends path traversal with an absent value.
func Object[T, V any](name string, get func(T) *V, elem *Schema) Property {
	p := Pointer(name, get)
	p.elem = elem
	return p
}

// Schema is the registry of properties that filter and sort descriptors may reference.
// A Schema must not be modified once it is shared between goroutines.
type Schema struct {
	name  string
	props []*Property
}

// NewSchema creates a schema with the given properties, in declaration order.
func NewSchema(name string, props ...Property) *Schema {
	s := &Schema{name: name}
	s.Add(props...)
	return s
}

// Add appends properties to the schema. It exists so self-referencing schemas can be built.
func (s *Schema) Add(props ...Property) *Schema {
	for _, p := range props {
		s.props = append(s.props, &p)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Properties returns the declared properties in declaration order.
func (s *Schema) Properties() []*Property {
	out := make([]*Property, len(s.props))
	copy(out, s.props)
	return out
}

// Lookup finds a property by name, ignoring case.
// Declared names are matched before column names; the first declared match wins.
func (s *Schema) Lookup(name string) (*Property, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	for _, p := range s.props {
		if strings.EqualFold(p.name, name) {
			return p, true
		}
	}
	for _, p := range s.props {
		if p.column != "" && strings.EqualFold(p.column, name) {
			return p, true
		}
	}
	return nil, false
}

// Resolve resolves a dotted property path against the schema.
// Every segment is looked up in the schema of the previous segment's object.
// It reports false when a segment does not exist, when a segment other than the last is
// not an object, or when the last segment is an object.
func (s *Schema) Resolve(path string) (*ResolvedPath, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	props := make([]*Property, 0, len(segments))
	current := s
	for _, segment := range segments {
		if current == nil {
			return nil, false
		}
		p, ok := current.Lookup(segment)
		if !ok {
			return nil, false
		}
		props = append(props, p)
		current = p.elem
	}

	if props[len(props)-1].elem != nil {
		return nil, false
	}
	return &ResolvedPath{props: props}, true
}

// ResolvedPath is a validated chain of property accesses ending at a leaf.
type ResolvedPath struct {
	props []*Property
}

// Name returns the canonical dotted path, using declared property names.
func (r *ResolvedPath) Name() string {
	names := make([]string, len(r.props))
	for i, p := range r.props {
		names[i] = p.name
	}
	return strings.Join(names, ".")
}

// Columns returns the storage keys along the path.
func (r *ResolvedPath) Columns() []string {
	cols := make([]string, len(r.props))
	for i, p := range r.props {
		cols[i] = p.Column()
	}
	return cols
}

// Leaf returns the last property of the path.
func (r *ResolvedPath) Leaf() *Property { return r.props[len(r.props)-1] }

// Type returns the Go type of the leaf value.
func (r *ResolvedPath) Type() reflect.Type { return r.Leaf().typ }

// Get walks the path from the root value. It reports false when any step is absent.
func (r *ResolvedPath) Get(root any) (any, bool) {
	v := root
	for _, p := range r.props {
		next, ok := p.get(v)
		if !ok {
			return nil, false
		}
		v = next
	}
	return v, true
}
