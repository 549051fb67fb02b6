package gridquery

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	timeType            = reflect.TypeFor[time.Time]()
	decimalType         = reflect.TypeFor[decimal.Decimal]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// reflectedSchemas caches schemas built by SchemaFor, keyed by struct type.
var reflectedSchemas sync.Map

// SchemaFor builds a schema for the struct type T from its exported fields.
//
// The Go field name is the property name and the `json` tag name is its column.
// Fields tagged `gridquery:"-"` or `json:"-"` are skipped. Struct fields, and pointers
// to structs, become object properties; time.Time, decimal.Decimal and types implementing
// encoding.TextUnmarshaler stay leaves. Schemas are built once per type and shared.
func SchemaFor[T any]() (*Schema, error) {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type T must be a struct, but got %s", typ.Kind())
	}

	if cached, ok := reflectedSchemas.Load(typ); ok {
		return cached.(*Schema), nil
	}
	s := reflectSchema(typ, make(map[reflect.Type]*Schema))
	actual, _ := reflectedSchemas.LoadOrStore(typ, s)
	return actual.(*Schema), nil
}

// reflectSchema builds the schema of a struct type. seen holds schemas under construction
// so that self-referencing types reuse the same schema instead of recursing forever.
func reflectSchema(typ reflect.Type, seen map[reflect.Type]*Schema) *Schema {
	s := &Schema{name: typ.Name()}
	seen[typ] = s

	for _, field := range reflect.VisibleFields(typ) {
		if !field.IsExported() || field.Tag.Get("gridquery") == "-" {
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		valueType := field.Type
		for valueType.Kind() == reflect.Pointer {
			valueType = valueType.Elem()
		}
		// Fields of embedded structs are promoted; the embedded struct itself is not a property.
		if field.Anonymous && valueType.Kind() == reflect.Struct && !isScalarStruct(valueType) {
			continue
		}

		column, _, _ := strings.Cut(jsonTag, ",")
		p := Property{
			name:   field.Name,
			column: column,
			typ:    valueType,
			get:    fieldGetter(field.Index),
		}
		if valueType.Kind() == reflect.Struct && !isScalarStruct(valueType) {
			if elem, ok := seen[valueType]; ok {
				p.elem = elem
			} else {
				p.elem = reflectSchema(valueType, seen)
			}
		}
		s.props = append(s.props, &p)
	}
	return s
}

// fieldGetter returns an accessor for the field at index, dereferencing pointers on the way.
func fieldGetter(index []int) func(any) (any, bool) {
	return func(parent any) (any, bool) {
		rv, ok := indirect(reflect.ValueOf(parent))
		if !ok || rv.Kind() != reflect.Struct {
			return nil, false
		}
		fv, err := rv.FieldByIndexErr(index)
		if err != nil {
			return nil, false
		}
		fv, ok = indirect(fv)
		if !ok {
			return nil, false
		}
		return fv.Interface(), true
	}
}

func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

// isScalarStruct reports whether a struct type is compared as a single value.
func isScalarStruct(t reflect.Type) bool {
	return t == timeType || t == decimalType || reflect.PointerTo(t).Implements(textUnmarshalerType)
}
