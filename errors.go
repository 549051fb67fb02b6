package gridquery

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

// Sentinel errors. Every error returned by the parsers and compilers wraps one of them.
var (
	// ErrUnsupportedComparator is returned for an unknown comparator token, or for a
	// comparator that cannot be applied to the resolved property.
	ErrUnsupportedComparator = errors.New("unsupported filter comparator")

	// ErrUnsupportedConversion is returned when a property type cannot be built from a string.
	ErrUnsupportedConversion = errors.New("unsupported conversion")

	// ErrInvalidValue is returned when a filter value cannot be parsed as the property type.
	ErrInvalidValue = errors.New("invalid filter value")

	// ErrMalformedDescriptor is returned when the wire JSON does not have the expected shape.
	ErrMalformedDescriptor = errors.New("malformed descriptor")

	// ErrNotOrderable is returned when an ordering comparator targets a property without an order.
	ErrNotOrderable = errors.New("property is not orderable")
)

// ComparatorError reports a comparator that could not be parsed or applied.
type ComparatorError struct {
	Token string
	Field string
}

func (e *ComparatorError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("unsupported filter comparator %q for field %s", e.Token, e.Field)
	}
	return "unsupported filter comparator: " + e.Token
}

func (e *ComparatorError) Unwrap() error { return ErrUnsupportedComparator }

// ConversionError reports a filter value that could not be coerced to the property type.
type ConversionError struct {
	Field string
	Value string
	Type  reflect.Type
	Err   error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("converting %q to %s", e.Value, e.Type)
	if e.Field != "" {
		msg = "field " + e.Field + ": " + msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// DescriptorError reports wire input that does not match the descriptor grammar.
type DescriptorError struct {
	// Path locates the offending element, e.g. "filter[2][1]".
	Path   string
	Reason string
}

func (e *DescriptorError) Error() string {
	if e.Path == "" {
		return "malformed descriptor: " + e.Reason
	}
	return fmt.Sprintf("malformed descriptor at %s: %s", e.Path, e.Reason)
}

func (e *DescriptorError) Unwrap() error { return ErrMalformedDescriptor }

// HTTPStatus maps an error from this package to the status a request boundary should answer with.
// Client input errors map to 400, anything else to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMalformedDescriptor),
		errors.Is(err, ErrUnsupportedComparator),
		errors.Is(err, ErrUnsupportedConversion),
		errors.Is(err, ErrInvalidValue),
		errors.Is(err, ErrNotOrderable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
