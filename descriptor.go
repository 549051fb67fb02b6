package gridquery

// SortDescriptor is one sort key sent by the grid: {"selector": "Name", "desc": true}.
type SortDescriptor struct {
	Selector string `json:"selector"`
	Desc     bool   `json:"desc"`
}

// FilterDescriptor is one leaf condition of the grid filter: ["Name", "contains", "bob"].
// Value is kept as text until it is coerced to the property type at compile time.
type FilterDescriptor struct {
	Field      string
	Comparator Comparator
	Value      string
}
