package gridquery

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"strings"
)

// Predicate is a pure boolean function over one entity.
type Predicate[T any] func(T) bool

// Filter is the conjunction of compiled filter descriptors.
// A nil or empty Filter matches every entity.
type Filter[T any] struct {
	terms []filterTerm
}

type filterTerm struct {
	expr  Comparison
	match func(root any) bool
}

// Where compiles filter descriptors into a Filter.
//
// Descriptors whose field does not resolve against the schema are dropped, so that unknown
// or renamed fields degrade gracefully. A value that cannot be coerced to the property type,
// or a comparator that cannot apply to it, fails the whole compilation.
func (c *Compiler[T]) Where(filters []FilterDescriptor) (*Filter[T], error) {
	f := &Filter[T]{terms: make([]filterTerm, 0, len(filters))}
	for _, d := range filters {
		path, ok := c.Resolve(d.Field)
		if !ok {
			c.logger.Debug("dropping filter on unresolvable field", "field", d.Field)
			continue
		}

		value, err := Coerce(d.Value, path.Type())
		if err != nil {
			var convErr *ConversionError
			if errors.As(err, &convErr) {
				convErr.Field = path.Name()
			}
			return nil, err
		}

		term, err := compileTerm(path, d.Comparator, value)
		if err != nil {
			return nil, err
		}
		f.terms = append(f.terms, term)
	}
	return f, nil
}

// compileTerm builds the predicate for one resolved path, comparator and coerced value.
// Comparators outside the known set behave as Equals.
func compileTerm(path *ResolvedPath, op Comparator, value any) (filterTerm, error) {
	switch op {
	case Equals, NotEqual, Contains, NotContains,
		GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
	default:
		op = Equals
	}

	expr := Comparison{Field: path.Name(), Columns: path.Columns(), Op: op, Value: value}
	typ := path.Type()

	if _, _, custom := compareMethod(typ); typ.Kind() == reflect.String && !custom {
		expr.Fold = !op.IsOrdering()
		return filterTerm{expr: expr, match: stringPredicate(path, op, stringOf(value))}, nil
	}

	switch {
	case op == Contains || op == NotContains:
		return filterTerm{}, &ComparatorError{Token: op.String(), Field: path.Name()}
	case op.IsOrdering() && !Orderable(typ):
		return filterTerm{}, fmt.Errorf("%s %s %v: %w", path.Name(), op, typ, ErrNotOrderable)
	}

	match := func(root any) bool {
		v, ok := path.Get(root)
		if !ok {
			return false
		}
		switch op {
		case NotEqual:
			return !equalValues(v, value)
		case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
			c, ok := compareValues(v, value)
			return ok && orderingHolds(op, c)
		default:
			return equalValues(v, value)
		}
	}
	return filterTerm{expr: expr, match: match}, nil
}

// stringPredicate compares string leaves. Equality and containment ignore case;
// ordering compares the original values.
func stringPredicate(path *ResolvedPath, op Comparator, text string) func(any) bool {
	folded := strings.ToLower(text)
	return func(root any) bool {
		v, ok := path.Get(root)
		if !ok {
			return false
		}
		s := stringOf(v)
		switch op {
		case NotEqual:
			return strings.ToLower(s) != folded
		case Contains:
			return strings.Contains(strings.ToLower(s), folded)
		case NotContains:
			return !strings.Contains(strings.ToLower(s), folded)
		case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
			return orderingHolds(op, strings.Compare(s, text))
		default:
			return strings.ToLower(s) == folded
		}
	}
}

func orderingHolds(op Comparator, c int) bool {
	switch op {
	case GreaterThan:
		return c > 0
	case GreaterThanOrEqual:
		return c >= 0
	case LessThan:
		return c < 0
	case LessThanOrEqual:
		return c <= 0
	default:
		return false
	}
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return reflect.ValueOf(v).String()
}

// Match reports whether v satisfies every compiled descriptor.
func (f *Filter[T]) Match(v T) bool {
	if f == nil {
		return true
	}
	for _, t := range f.terms {
		if !t.match(v) {
			return false
		}
	}
	return true
}

// Predicate returns the filter as a plain function.
func (f *Filter[T]) Predicate() Predicate[T] {
	return f.Match
}

// Len returns the number of compiled descriptors.
func (f *Filter[T]) Len() int {
	if f == nil {
		return 0
	}
	return len(f.terms)
}

// Expr returns the inspectable form of the filter: a Conjunction of Comparisons.
func (f *Filter[T]) Expr() Conjunction {
	if f == nil {
		return Conjunction{}
	}
	terms := make([]Expr, len(f.terms))
	for i, t := range f.terms {
		terms[i] = t.expr
	}
	return And(terms...)
}

// Seq returns the items of seq that match the filter.
func (f *Filter[T]) Seq(seq iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if f.Match(v) && !yield(v) {
				return
			}
		}
	}
}
