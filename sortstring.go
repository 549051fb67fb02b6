package gridquery

import (
	"strings"
	"unicode"
)

// SortString renders sort descriptors as a textual order clause, e.g. "Name ASC, Age DESC",
// for executors that take order clauses as text. It returns "" for no descriptors.
func SortString(sorts []SortDescriptor) string {
	if len(sorts) == 0 {
		return ""
	}
	parts := make([]string, len(sorts))
	for i, s := range sorts {
		dir := OrderAsc
		if s.Desc {
			dir = OrderDesc
		}
		parts[i] = s.Selector + " " + string(dir)
	}
	return strings.Join(parts, ", ")
}

// ValidSortString reports whether a textual order clause is safe to hand to an executor:
// every comma-separated column may only hold letters, digits and spaces, optionally
// wrapped in square brackets. A blank clause is valid.
func ValidSortString(sort string) bool {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return true
	}
	for _, column := range strings.Split(sort, ",") {
		column = strings.TrimSpace(column)
		if strings.HasPrefix(column, "[") {
			column = strings.NewReplacer("[", " ", "]", " ").Replace(column)
		}
		for _, r := range column {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
				return false
			}
		}
	}
	return true
}
