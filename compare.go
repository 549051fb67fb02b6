package gridquery

import (
	"bytes"
	"cmp"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Orderable reports whether values of typ have a natural order: ordered kinds, time,
// decimal and uuid values, and any type with a Compare(other T) int method.
func Orderable(typ reflect.Type) bool {
	if typ == nil {
		return false
	}
	switch typ {
	case timeType, decimalType, uuidType:
		return true
	}
	if _, _, ok := compareMethod(typ); ok {
		return true
	}
	switch typ.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// compareValues orders two values of the same orderable type.
// It reports false when the values cannot be ordered.
func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case decimal.Decimal:
		if y, ok := b.(decimal.Decimal); ok {
			return x.Cmp(y), true
		}
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return bytes.Compare(x[:], y[:]), true
		}
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if !av.IsValid() || !bv.IsValid() || av.Kind() != bv.Kind() {
		return 0, false
	}
	if av.Type() == bv.Type() {
		if c, ok := callCompare(av, bv); ok {
			return c, true
		}
	}
	switch av.Kind() {
	case reflect.String:
		return strings.Compare(av.String(), bv.String()), true
	case reflect.Bool:
		return cmp.Compare(boolRank(av.Bool()), boolRank(bv.Bool())), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(av.Int(), bv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(av.Uint(), bv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(av.Float(), bv.Float()), true
	default:
		return 0, false
	}
}

// compareMethod finds a method of the form Compare(T) int declared on T or *T.
// The second result reports whether the method expects a *T receiver.
func compareMethod(typ reflect.Type) (reflect.Method, bool, bool) {
	if typ.Kind() == reflect.Interface {
		return reflect.Method{}, false, false
	}
	for _, recv := range []reflect.Type{typ, reflect.PointerTo(typ)} {
		m, ok := recv.MethodByName("Compare")
		if !ok {
			continue
		}
		mt := m.Type
		if mt.NumIn() == 2 && mt.In(1) == typ && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Int {
			return m, recv != typ, true
		}
	}
	return reflect.Method{}, false, false
}

// callCompare orders a and b, two values of the same type, with their Compare method.
func callCompare(a, b reflect.Value) (int, bool) {
	m, pointer, ok := compareMethod(a.Type())
	if !ok {
		return 0, false
	}
	recv := a
	if pointer {
		recv = reflect.New(a.Type())
		recv.Elem().Set(a)
	}
	out := m.Func.Call([]reflect.Value{recv, b})
	return int(out[0].Int()), true
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// equalValues compares two values of the same type for equality.
func equalValues(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	}
	if a == nil || b == nil {
		return a == b
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
