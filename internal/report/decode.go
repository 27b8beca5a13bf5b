package report

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// instantLayouts are the ISO forms accepted for dates. Layouts without a
// zone are read as UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseInstant parses an ISO-8601 date or date-time into a UTC instant.
func ParseInstant(s string) (time.Time, error) {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO date: %q", s)
}

// UnmarshalJSON keeps the clause value raw; the normalizer types it later.
func (f *FieldFilter) UnmarshalJSON(data []byte) error {
	var doc struct {
		Field      string     `json:"field"`
		Category   Category   `json:"category"`
		Type       FieldType  `json:"type"`
		Comparator Comparator `json:"comparator"`
		Value      any        `json:"value"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*f = FieldFilter{
		Field:      doc.Field,
		Category:   doc.Category,
		Type:       doc.Type,
		Comparator: doc.Comparator,
		Value:      RawValue{V: doc.Value},
	}
	if f.Category == "" {
		f.Category = CategoryStandard
	}
	if doc.Value == nil {
		f.Value = EmptyValue{}
	}
	return nil
}

// UnmarshalJSON accepts date-only or date-time strings for asOf.
func (r *ReportQueryRequest) UnmarshalJSON(data []byte) error {
	type plain ReportQueryRequest
	var doc struct {
		plain
		AsOf string `json:"asOf,omitempty"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*r = ReportQueryRequest(doc.plain)
	if doc.AsOf != "" {
		asOf, err := ParseInstant(doc.AsOf)
		if err != nil {
			return NewError(ErrCodeInvalidRequest, "asOf", "%v", err)
		}
		r.AsOf = asOf
	}
	return nil
}

// DecodeJSON decodes a request document.
func DecodeJSON(data []byte) (*ReportQueryRequest, error) {
	var req ReportQueryRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

// DecodeYAML decodes a YAML request document by way of its JSON form, so
// both encodings share one set of decoding rules.
func DecodeYAML(data []byte) (*ReportQueryRequest, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	jsonData, err := json.Marshal(jsonCompatible(doc))
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return DecodeJSON(jsonData)
}

// jsonCompatible rewrites map[any]any (which encoding/json rejects) into
// map[string]any, recursively.
func jsonCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = jsonCompatible(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = jsonCompatible(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = jsonCompatible(item)
		}
		return out
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
