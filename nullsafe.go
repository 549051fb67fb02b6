package gridquery

import "strings"

// NullSafe rewrites a dotted member access into a conditional expression that yields null
// as soon as an intermediate member is null, for expression languages without
// null-propagating member access:
//
//	a.b.c  =>  (a != null ? (a.b != null ? a.b.c : null) : null)
//
// A single segment is returned unchanged. The rewrite is purely textual.
func NullSafe(expression string) string {
	if expression == "" {
		return ""
	}

	segments := strings.Split(expression, ".")
	result := expression
	for i := 0; i < len(segments)-1; i++ {
		guard := strings.Join(segments[:i+1], ".")
		result = strings.Replace(result, expression, "("+guard+" != null ? "+expression+" : null)", 1)
	}
	return result
}
