package gridquery

// Comparator is the comparison a filter descriptor applies to a property.
type Comparator int

// Supported comparators.
const (
	Equals Comparator = iota
	NotEqual
	Contains
	NotContains
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

// String returns the canonical wire token of the comparator.
func (c Comparator) String() string {
	switch c {
	case Equals:
		return "="
	case NotEqual:
		return "<>"
	case Contains:
		return "contains"
	case NotContains:
		return "notcontains"
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	default:
		return "unknown"
	}
}

// IsOrdering reports whether the comparator needs an orderable property.
func (c Comparator) IsOrdering() bool {
	switch c {
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
		return true
	default:
		return false
	}
}

// ParseComparator maps a wire token to a Comparator.
// Tokens are matched exactly; "!=" and "<>" are both NotEqual.
func ParseComparator(token string) (Comparator, error) {
	switch token {
	case "=":
		return Equals, nil
	case "contains":
		return Contains, nil
	case ">":
		return GreaterThan, nil
	case ">=":
		return GreaterThanOrEqual, nil
	case "<":
		return LessThan, nil
	case "<=":
		return LessThanOrEqual, nil
	case "notcontains":
		return NotContains, nil
	case "!=", "<>":
		return NotEqual, nil
	default:
		return 0, &ComparatorError{Token: token}
	}
}
