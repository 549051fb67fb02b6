package gridquery_test

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dir01/gridquery"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"malformed", &gridquery.DescriptorError{Path: "filter", Reason: "invalid JSON"}, http.StatusBadRequest},
		{"comparator", &gridquery.ComparatorError{Token: "like"}, http.StatusBadRequest},
		{"conversion", &gridquery.ConversionError{Value: "x", Type: reflect.TypeFor[int](), Err: gridquery.ErrInvalidValue}, http.StatusBadRequest},
		{"wrapped", fmt.Errorf("parsing filter: %w", gridquery.ErrMalformedDescriptor), http.StatusBadRequest},
		{"not orderable", gridquery.ErrNotOrderable, http.StatusBadRequest},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gridquery.HTTPStatus(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "unsupported filter comparator: like",
		(&gridquery.ComparatorError{Token: "like"}).Error())
	assert.Equal(t, `unsupported filter comparator "contains" for field Age`,
		(&gridquery.ComparatorError{Token: "contains", Field: "Age"}).Error())
	assert.Equal(t, "malformed descriptor at filter[1]: field must be a string",
		(&gridquery.DescriptorError{Path: "filter[1]", Reason: "field must be a string"}).Error())

	convErr := &gridquery.ConversionError{Field: "Age", Value: "abc", Type: reflect.TypeFor[int](), Err: gridquery.ErrInvalidValue}
	assert.Equal(t, `field Age: converting "abc" to int: invalid filter value`, convErr.Error())
}
