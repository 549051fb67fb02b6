package gridquery

// Expr is the inspectable form of a compiled filter, for executors that translate
// filters into their own query language instead of calling Go predicates.
// It's a "closed" interface, meaning only types within this package can implement it.
type Expr interface {
	isExpr()
}

// Comparison is an Expr that represents a single condition (e.g., 'Address.City contains "ber"').
type Comparison struct {
	// Field is the canonical dotted property path.
	Field string
	// Columns are the storage keys along the path, e.g. ["address", "city"].
	Columns []string
	Op      Comparator
	// Value is the filter value coerced to the property type.
	Value any
	// Fold marks a case-insensitive string comparison.
	Fold bool
}

func (Comparison) isExpr() {}

// Conjunction is an Expr that joins multiple expressions with AND.
// An empty conjunction matches everything.
type Conjunction struct {
	Terms []Expr
}

func (Conjunction) isExpr() {}

// And combines expressions with a logical AND.
func And(terms ...Expr) Conjunction {
	return Conjunction{Terms: terms}
}
