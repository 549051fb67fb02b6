package gridquery

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// TimestampLayouts are the layouts a filter value is tried against before it is normalized
// to NormalizedTimestampLayout. Values without a zone are taken as UTC.
var TimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// NormalizedTimestampLayout is the fixed-precision UTC form timestamp values are rewritten to.
const NormalizedTimestampLayout = "2006-01-02T15:04:05.000Z"

// ParseFilters parses a URL-encoded grid filter, e.g.
//
//	[["Age",">",18],"and",[["Name","=","Bob"],"or",["Name","=","Alice"]]]
//
// An empty string yields no descriptors. See ParseFilterJSON for the grammar.
func ParseFilters(raw string) ([]FilterDescriptor, error) {
	if raw == "" {
		return nil, nil
	}
	return ParseFilterJSON([]byte(urlDecode(raw)))
}

// ParseFilterJSON parses a decoded grid filter.
//
// The filter is an array that is either a single [field, comparator, value] condition or a
// group whose array elements are conditions or nested groups. Every condition found anywhere
// in the tree is returned, depth first, and the result is meant to be AND-ed: the "and", "or"
// and "!" tokens between group elements are discarded. Filters the grid built with OR or NOT
// are therefore reinterpreted as AND; this is a known limitation.
//
// Values that parse as timestamps are normalized to NormalizedTimestampLayout.
func ParseFilterJSON(data []byte) ([]FilterDescriptor, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, &DescriptorError{Path: "filter", Reason: "invalid JSON"}
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, &DescriptorError{Path: "filter", Reason: "expected an array, got " + root.Type.String()}
	}
	return flattenFilter(root, "filter", nil)
}

func flattenFilter(node gjson.Result, path string, out []FilterDescriptor) ([]FilterDescriptor, error) {
	elems := node.Array()
	if len(elems) == 0 {
		return out, nil
	}

	isGroup := false
	for _, e := range elems {
		if e.IsArray() {
			isGroup = true
			break
		}
	}
	if !isGroup {
		d, err := parseCondition(elems, path)
		if err != nil {
			return nil, err
		}
		return append(out, d), nil
	}

	var err error
	for i, e := range elems {
		elemPath := fmt.Sprintf("%s[%d]", path, i)
		switch {
		case e.IsArray():
			if out, err = flattenFilter(e, elemPath, out); err != nil {
				return nil, err
			}
		case e.Type == gjson.String:
			// group operator, dropped
		default:
			return nil, &DescriptorError{Path: elemPath, Reason: "expected a condition or a group operator, got " + e.Type.String()}
		}
	}
	return out, nil
}

func parseCondition(elems []gjson.Result, path string) (FilterDescriptor, error) {
	if len(elems) != 3 {
		return FilterDescriptor{}, &DescriptorError{
			Path:   path,
			Reason: fmt.Sprintf("expected [field, comparator, value], got %d elements", len(elems)),
		}
	}
	if elems[0].Type != gjson.String {
		return FilterDescriptor{}, &DescriptorError{Path: path + "[0]", Reason: "field must be a string"}
	}
	if elems[1].Type != gjson.String {
		return FilterDescriptor{}, &DescriptorError{Path: path + "[1]", Reason: "comparator must be a string"}
	}

	field := strings.Trim(elems[0].Str, `"`)
	op, err := ParseComparator(strings.Trim(elems[1].Str, `"`))
	if err != nil {
		return FilterDescriptor{}, &ComparatorError{Token: elems[1].Str, Field: field}
	}

	var value string
	switch elems[2].Type {
	case gjson.String:
		value = strings.Trim(elems[2].Str, `"`)
	case gjson.Number, gjson.True, gjson.False:
		value = elems[2].Raw
	case gjson.Null:
		value = ""
	default:
		return FilterDescriptor{}, &DescriptorError{Path: path + "[2]", Reason: "value must be a scalar"}
	}

	return FilterDescriptor{Field: field, Comparator: op, Value: NormalizeTimestamp(value)}, nil
}

// NormalizeTimestamp rewrites a value that parses with one of TimestampLayouts to
// NormalizedTimestampLayout in UTC. Other values are returned unchanged.
func NormalizeTimestamp(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	for _, layout := range TimestampLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t.UTC().Format(NormalizedTimestampLayout)
		}
	}
	return value
}

// urlDecode decodes a query-escaped string. Text that is not valid percent-encoding is
// returned as is.
func urlDecode(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}
