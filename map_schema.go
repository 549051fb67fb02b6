package gridquery

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// FieldDef declares one member of a schema over map[string]any records, e.g. decoded JSON.
type FieldDef struct {
	// Name is the property name descriptors refer to.
	Name string `mapstructure:"name" json:"name" validate:"required"`
	// Column is the record key. It defaults to Name.
	Column string `mapstructure:"column" json:"column,omitempty"`
	// Type is one of string, int, float, bool, time, duration, uuid, decimal or object.
	Type string `mapstructure:"type" json:"type" validate:"required,oneof=string int float bool time duration uuid decimal object"`
	// Fields are the members of an object field.
	Fields []FieldDef `mapstructure:"fields" json:"fields,omitempty" validate:"required_if=Type object,dive"`
}

var fieldDefValidator = validator.New(validator.WithRequiredStructEnabled())

// MapSchema builds a schema over map[string]any records from field definitions.
//
// Record values are converted to the declared type when read: "42" and 42.0 both read as
// int64(42) for an int field. A missing key, a nil value, or a value that does not convert
// is absent.
func MapSchema(name string, fields []FieldDef) (*Schema, error) {
	for i := range fields {
		if err := fieldDefValidator.Struct(&fields[i]); err != nil {
			return nil, fmt.Errorf("field %d of schema %s: %w", i, name, err)
		}
	}

	s := &Schema{name: name}
	for _, def := range fields {
		p, err := mapProperty(name, def)
		if err != nil {
			return nil, err
		}
		s.props = append(s.props, &p)
	}
	return s, nil
}

func mapProperty(schemaName string, def FieldDef) (Property, error) {
	key := def.Column
	if key == "" {
		key = def.Name
	}

	if def.Type == "object" {
		elem, err := MapSchema(schemaName+"."+def.Name, def.Fields)
		if err != nil {
			return Property{}, err
		}
		return Property{
			name:   def.Name,
			column: def.Column,
			typ:    reflect.TypeFor[map[string]any](),
			elem:   elem,
			get: func(parent any) (any, bool) {
				m, ok := lookupKey(parent, key)
				if !ok {
					return nil, false
				}
				nested, err := cast.ToStringMapE(m)
				if err != nil {
					return nil, false
				}
				return nested, true
			},
		}, nil
	}

	typ, convert := mapConverter(def.Type)
	return Property{
		name:   def.Name,
		column: def.Column,
		typ:    typ,
		get: func(parent any) (any, bool) {
			raw, ok := lookupKey(parent, key)
			if !ok {
				return nil, false
			}
			v, err := convert(raw)
			if err != nil {
				return nil, false
			}
			return v, true
		},
	}, nil
}

func lookupKey(parent any, key string) (any, bool) {
	m, ok := parent.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// mapConverter returns the Go type of a declared field type and the conversion of raw
// record values to it. Type names are validated before this is called.
func mapConverter(typeName string) (reflect.Type, func(any) (any, error)) {
	switch typeName {
	case "int":
		return reflect.TypeFor[int64](), func(v any) (any, error) { return cast.ToInt64E(v) }
	case "float":
		return reflect.TypeFor[float64](), func(v any) (any, error) { return cast.ToFloat64E(v) }
	case "bool":
		return reflect.TypeFor[bool](), func(v any) (any, error) { return cast.ToBoolE(v) }
	case "time":
		return timeType, func(v any) (any, error) { return cast.ToTimeInDefaultLocationE(v, time.UTC) }
	case "duration":
		return durationType, func(v any) (any, error) { return cast.ToDurationE(v) }
	case "uuid":
		return uuidType, func(v any) (any, error) {
			s, err := cast.ToStringE(v)
			if err != nil {
				return nil, err
			}
			return uuid.Parse(s)
		}
	case "decimal":
		return decimalType, func(v any) (any, error) {
			if f, ok := v.(float64); ok {
				return decimal.NewFromFloat(f), nil
			}
			s, err := cast.ToStringE(v)
			if err != nil {
				return nil, err
			}
			return decimal.NewFromString(s)
		}
	default:
		return reflect.TypeFor[string](), func(v any) (any, error) { return cast.ToStringE(v) }
	}
}
