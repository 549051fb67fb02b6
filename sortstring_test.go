package gridquery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dir01/gridquery"
)

func TestSortString(t *testing.T) {
	assert.Equal(t, "", gridquery.SortString(nil))
	assert.Equal(t, "Name ASC", gridquery.SortString([]gridquery.SortDescriptor{{Selector: "Name"}}))
	assert.Equal(t, "Name ASC, Age DESC, City ASC", gridquery.SortString([]gridquery.SortDescriptor{
		{Selector: "Name"},
		{Selector: "Age", Desc: true},
		{Selector: "City"},
	}))
}

func TestValidSortString(t *testing.T) {
	tests := []struct {
		sort string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"Name ASC, Age DESC", true},
		{"[Order Date] DESC", true},
		{"Straße ASC", true},
		{"Address.City ASC", false},
		{"Name; DROP TABLE users", false},
		{"Name ASC, Age -- comment", false},
		{"Name ASC,", true},
	}
	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			assert.Equal(t, tt.want, gridquery.ValidSortString(tt.sort))
		})
	}

	// Every rendered clause over plain selectors is valid.
	for _, sorts := range [][]gridquery.SortDescriptor{
		{{Selector: "Name"}},
		{{Selector: "Name", Desc: true}, {Selector: "Age"}, {Selector: "Order Date", Desc: true}},
	} {
		assert.True(t, gridquery.ValidSortString(gridquery.SortString(sorts)))
	}
}
