// Package gridquery compiles the filter and sort parameters sent by data grid widgets into
// predicates and orderings over Go types, and runs them in memory or against SQLite.
//
// # Wire format
//
// A grid sends its state as two query parameters. The sort parameter is a JSON array of
// {"selector": "Address.City", "desc": true} objects, parsed by ParseSorts. The filter
// parameter is a JSON array that is either one [field, comparator, value] condition or a group
// of conditions and nested groups joined by "and", "or" and "!" tokens, parsed by ParseFilters.
// Group tokens are discarded and every condition is AND-ed, so filters built with OR or NOT are
// narrowed rather than widened.
//
// # Schemas
//
// Descriptors refer to properties by dotted, case-insensitive paths that are resolved against a
// Schema. Schemas are declared explicitly with NewSchema, Value, Pointer and Object, derived
// from struct fields with SchemaFor, or built from field definitions with MapSchema. Paths that
// do not resolve are dropped; values that do not convert to the property type are errors.
//
// # Executors
//
// A Compiler produces a Filter and an Ordering. Both work on values directly (Apply, Filter.Seq,
// Ordering.Sort) and expose inspectable forms (Filter.Expr, Ordering.Keys) that Store lowers to
// SQLite json_extract queries. Times compare as instants and decimals as numbers in SQL too;
// ordering on enums stored by name, or on types with their own Compare method, is rejected by
// Store with ErrNotOrderable since SQLite cannot reproduce it:
//
//	store, err := gridquery.NewStore[Order](ctx, db, "orders", gridquery.WithIndex("Customer.Name"))
//	if err != nil {
//		return err
//	}
//	filters, err := gridquery.ParseFilters(r.URL.Query().Get("filter"))
//	if err != nil {
//		http.Error(w, err.Error(), gridquery.HTTPStatus(err))
//		return
//	}
//	sorts, err := gridquery.ParseSorts(r.URL.Query().Get("sort"))
//	...
//	orders, err := store.Find(ctx, filters, sorts, 50)
//
// String equality and containment ignore case; ordering comparisons on strings do not.
// A value that is absent because a pointer on the way is nil never satisfies a filter, and
// sorts before present values in ascending order.
package gridquery
