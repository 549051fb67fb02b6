package gridquery

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// sortDescriptorSchema is the JSON schema of the grid sort parameter.
var sortDescriptorSchema = mustSchema(`{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["selector"],
		"properties": {
			"selector": {"type": "string"},
			"desc": {"type": "boolean"}
		}
	}
}`)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic("gridquery: invalid built-in schema: " + err.Error())
	}
	return schema
}

// ParseSorts parses a URL-encoded grid sort parameter, e.g.
//
//	[{"selector":"Name","desc":false},{"selector":"Address.City","desc":true}]
//
// An empty string yields no descriptors.
func ParseSorts(raw string) ([]SortDescriptor, error) {
	if raw == "" {
		return nil, nil
	}
	return ParseSortJSON([]byte(urlDecode(raw)))
}

// ParseSortJSON parses a decoded grid sort parameter. Input that is not an array of
// objects with a string "selector" and an optional boolean "desc" is rejected.
func ParseSortJSON(data []byte) ([]SortDescriptor, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	result, err := sortDescriptorSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &DescriptorError{Path: "sort", Reason: "invalid JSON: " + err.Error()}
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return nil, &DescriptorError{Path: "sort", Reason: strings.Join(errs, "; ")}
	}

	var sorts []SortDescriptor
	if err := json.Unmarshal(data, &sorts); err != nil {
		return nil, &DescriptorError{Path: "sort", Reason: err.Error()}
	}
	return sorts, nil
}
