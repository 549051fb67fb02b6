package gridquery

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
)

// Query encapsulates all parts of a database query.
type Query struct {
	Where   Expr
	OrderBy []OrderBy
	Limit   int
}

// OrderDirection defines the sorting direction.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "ASC"
	OrderDesc OrderDirection = "DESC"
)

// OrderBy specifies a field to sort the results by.
type OrderBy struct {
	// Key is the dotted column path to sort by (e.g., 'address.city'),
	// or the special value 'key' for the primary key.
	Key       string
	Direction OrderDirection
	// Type is the Go type of the sorted value. It selects how the stored JSON is compared;
	// nil compares the stored value as is.
	Type reflect.Type
}

var plainJSONKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// jsonPath converts storage columns to an SQLite JSON path, e.g. $.address."zip code".
func jsonPath(columns []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, c := range columns {
		b.WriteString(".")
		if plainJSONKey.MatchString(c) {
			b.WriteString(c)
		} else {
			b.WriteString(`"` + strings.ReplaceAll(c, `"`, `\"`) + `"`)
		}
	}
	return b.String()
}

// jsonExtract renders the SQLite expression reading columns from the document. The path is
// inlined rather than bound so that expression indexes created by WithIndex apply.
func jsonExtract(columns []string) string {
	return fmt.Sprintf("json_extract(json, '%s')", strings.ReplaceAll(jsonPath(columns), "'", "''"))
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

// leafExpr renders the SQLite expression a leaf of type typ is compared by. Times are
// stored as RFC 3339 text with a zone and compare as instants with millisecond precision.
// Decimals are stored as strings and compare as numbers.
func leafExpr(columns []string, typ reflect.Type) string {
	return leafOperand(jsonExtract(columns), typ)
}

func leafOperand(operand string, typ reflect.Type) string {
	switch indirectType(typ) {
	case timeType:
		return fmt.Sprintf("unixepoch(%s, 'subsec')", operand)
	case decimalType:
		return fmt.Sprintf("CAST(%s AS NUMERIC)", operand)
	default:
		return operand
	}
}

// sqlOrdered reports whether SQLite orders the stored form of typ the way compareValues
// orders the Go values. Enums stored by name and types with their own Compare method do not.
func sqlOrdered(typ reflect.Type) bool {
	typ = indirectType(typ)
	if typ == nil {
		return true
	}
	switch typ {
	case timeType, decimalType, uuidType:
		return true
	}
	if _, _, ok := compareMethod(typ); ok {
		return false
	}
	if typ.Implements(textMarshalerType) || reflect.PointerTo(typ).Implements(textMarshalerType) {
		return false
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

func indirectType(typ reflect.Type) reflect.Type {
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ
}

// build constructs the SQL query string and arguments.
// It assumes q is not nil.
func (q *Query) build(tableName string) (string, []any, error) {
	var queryBuilder strings.Builder
	args := []any{}

	queryBuilder.WriteString(fmt.Sprintf("SELECT key, json FROM %s", tableName))

	if q.Where != nil {
		whereClause, whereArgs, err := buildWhereClause(q.Where)
		if err != nil {
			return "", nil, err
		}
		if whereClause != "" {
			queryBuilder.WriteString(" WHERE ")
			queryBuilder.WriteString(whereClause)
			args = append(args, whereArgs...)
		}
	}

	orderClause, err := buildOrderClause(q.OrderBy)
	if err != nil {
		return "", nil, err
	}
	if orderClause != "" {
		queryBuilder.WriteString(" ORDER BY ")
		queryBuilder.WriteString(orderClause)
	}

	if q.Limit > 0 {
		queryBuilder.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	return queryBuilder.String(), args, nil
}

func buildOrderClause(orderBy []OrderBy) (string, error) {
	if len(orderBy) == 0 {
		return "", nil
	}
	var clauses []string
	for _, o := range orderBy {
		if o.Direction != OrderAsc && o.Direction != OrderDesc {
			return "", fmt.Errorf("invalid order direction: %s", o.Direction)
		}
		// We can't use a parameter for the column name in ORDER BY.
		// The key column is safe and JSON paths are quoted by jsonExtract.
		if o.Key == "key" {
			clauses = append(clauses, fmt.Sprintf("key %s", o.Direction))
			continue
		}
		if o.Key == "" {
			return "", fmt.Errorf("empty order by key")
		}
		if !sqlOrdered(o.Type) {
			return "", fmt.Errorf("ordering by %s: stored form of %v: %w", o.Key, o.Type, ErrNotOrderable)
		}
		clauses = append(clauses, fmt.Sprintf("%s %s", leafExpr(strings.Split(o.Key, "."), o.Type), o.Direction))
	}
	return strings.Join(clauses, ", "), nil
}

// buildWhereClause recursively walks the expression tree to build the SQL query.
func buildWhereClause(e Expr) (string, []any, error) {
	switch v := e.(type) {
	case Comparison:
		return buildComparison(v)

	case Conjunction:
		return joinPredicates(v.Terms, "AND")

	default:
		return "", nil, fmt.Errorf("unknown expression type: %T", e)
	}
}

func buildComparison(c Comparison) (string, []any, error) {
	if len(c.Columns) == 0 {
		return "", nil, fmt.Errorf("comparison on %q has no columns", c.Field)
	}
	arg, err := sqlArg(c.Value)
	if err != nil {
		return "", nil, fmt.Errorf("comparison on %q: %w", c.Field, err)
	}
	args := []any{arg}

	if c.Fold {
		column := jsonExtract(c.Columns)
		switch c.Op {
		case NotEqual:
			return fmt.Sprintf("lower(%s) <> lower(?)", column), args, nil
		case Contains:
			return fmt.Sprintf("instr(lower(%s), lower(?)) > 0", column), args, nil
		case NotContains:
			return fmt.Sprintf("instr(lower(%s), lower(?)) = 0", column), args, nil
		default:
			return fmt.Sprintf("lower(%s) = lower(?)", column), args, nil
		}
	}

	var op string
	switch c.Op {
	case NotEqual:
		op = "<>"
	case GreaterThan:
		op = ">"
	case GreaterThanOrEqual:
		op = ">="
	case LessThan:
		op = "<"
	case LessThanOrEqual:
		op = "<="
	case Contains, NotContains:
		return "", nil, &ComparatorError{Token: c.Op.String(), Field: c.Field}
	default:
		op = "="
	}

	typ := reflect.TypeOf(c.Value)
	if c.Op.IsOrdering() && !sqlOrdered(typ) {
		return "", nil, fmt.Errorf("%s %s: stored form of %v: %w", c.Field, c.Op, typ, ErrNotOrderable)
	}
	return fmt.Sprintf("%s %s %s", leafExpr(c.Columns, typ), op, leafOperand("?", typ)), args, nil
}

// sqlArg converts a coerced value to the representation encoding/json stored it as.
func sqlArg(v any) (any, error) {
	rv, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return nil, fmt.Errorf("%T has no SQL form", v)
	}
	// MarshalText may be declared on the pointer type.
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)
	if m, ok := ptr.Interface().(encoding.TextMarshaler); ok {
		text, err := m.MarshalText()
		if err != nil {
			return nil, err
		}
		return string(text), nil
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows an SQLite integer", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return nil, fmt.Errorf("%T has no SQL form", v)
	}
}

func joinPredicates(exprs []Expr, joiner string) (string, []any, error) {
	if len(exprs) == 0 {
		return "", nil, nil
	}

	var clauses []string
	var allArgs []any

	for _, e := range exprs {
		clause, args, err := buildWhereClause(e)
		if err != nil {
			return "", nil, err
		}
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		allArgs = append(allArgs, args...)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}

	// Wrap each sub-clause in parentheses and join them.
	// e.g., ((clause1) AND (clause2))
	return fmt.Sprintf("(%s)", strings.Join(clauses, ") "+joiner+" (")), allArgs, nil
}

// SQL renders the WHERE and ORDER BY parts a Query would send to SQLite, with the WHERE
// arguments in placeholder order. It is meant for diagnostics.
func (q *Query) SQL() (where string, orderBy string, args []any, err error) {
	if q.Where != nil {
		var whereArgs []any
		if where, whereArgs, err = buildWhereClause(q.Where); err != nil {
			return "", "", nil, err
		}
		args = append(args, whereArgs...)
	}
	if orderBy, err = buildOrderClause(q.OrderBy); err != nil {
		return "", "", nil, err
	}
	return where, orderBy, args, nil
}
