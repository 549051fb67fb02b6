package gridquery

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var (
	durationType = reflect.TypeFor[time.Duration]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
)

// Coerce converts a filter value to the Go type typ using invariant parsing rules.
//
// Strings pass through, booleans, integers and floats are parsed in base 10, time.Time
// accepts RFC 3339 and the other layouts understood by spf13/cast (zone-less values are UTC),
// time.Duration accepts Go duration syntax or nanoseconds, and uuid.UUID and
// decimal.Decimal use their own parsers. Types implementing encoding.TextUnmarshaler,
// such as enums with named values, are parsed by UnmarshalText. Pointer types are
// coerced to their element type.
//
// The returned value has exactly type typ. Types without a string conversion yield an
// error wrapping ErrUnsupportedConversion; unparsable text yields one wrapping ErrInvalidValue.
func Coerce(text string, typ reflect.Type) (any, error) {
	if typ == nil {
		return nil, &ConversionError{Value: text, Type: typ, Err: ErrUnsupportedConversion}
	}
	v, err := coerceValue(text, typ)
	if err != nil {
		return nil, &ConversionError{Value: text, Type: typ, Err: err}
	}
	return v.Interface(), nil
}

func coerceValue(text string, typ reflect.Type) (reflect.Value, error) {
	if typ.Kind() == reflect.Pointer {
		elem, err := coerceValue(text, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	out := reflect.New(typ).Elem()

	switch typ {
	case timeType:
		t, err := cast.ToTimeInDefaultLocationE(strings.TrimSpace(text), time.UTC)
		if err != nil {
			return reflect.Value{}, invalid(err)
		}
		out.Set(reflect.ValueOf(t))
		return out, nil
	case durationType:
		d, err := cast.ToDurationE(strings.TrimSpace(text))
		if err != nil {
			return reflect.Value{}, invalid(err)
		}
		out.SetInt(int64(d))
		return out, nil
	case uuidType:
		id, err := uuid.Parse(strings.TrimSpace(text))
		if err != nil {
			return reflect.Value{}, invalid(err)
		}
		out.Set(reflect.ValueOf(id))
		return out, nil
	case decimalType:
		d, err := decimal.NewFromString(strings.TrimSpace(text))
		if err != nil {
			return reflect.Value{}, invalid(err)
		}
		out.Set(reflect.ValueOf(d))
		return out, nil
	}

	// Named types with a text form take precedence over their underlying kind.
	if u, ok := out.Addr().Interface().(encoding.TextUnmarshaler); ok {
		if err := u.UnmarshalText([]byte(text)); err != nil {
			return reflect.Value{}, invalid(err)
		}
		return out, nil
	}

	switch typ.Kind() {
	case reflect.String:
		out.SetString(text)
	case reflect.Bool:
		b, err := cast.ToBoolE(strings.TrimSpace(text))
		if err != nil {
			return reflect.Value{}, invalid(err)
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, typ.Bits())
		if err != nil {
			return reflect.Value{}, invalid(err)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(strings.TrimSpace(text), 10, typ.Bits())
		if err != nil {
			return reflect.Value{}, invalid(err)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), typ.Bits())
		if err != nil {
			return reflect.Value{}, invalid(err)
		}
		out.SetFloat(f)
	default:
		return reflect.Value{}, ErrUnsupportedConversion
	}
	return out, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidValue, err)
}

// Convertible reports whether Coerce supports the type.
func Convertible(typ reflect.Type) bool {
	if typ == nil {
		return false
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	switch typ {
	case timeType, durationType, uuidType, decimalType:
		return true
	}
	if reflect.PointerTo(typ).Implements(textUnmarshalerType) {
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
