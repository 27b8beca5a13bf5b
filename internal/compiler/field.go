package compiler

import (
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// Field is a resolved document location and the facts the translator,
// summarizer and sorter need about it.
type Field struct {
	// Path is the dotted document path.
	Path string
	// Type is the storage kind, which may differ from the declared filter
	// type (e.g. a text filter on an array-backed field).
	Type report.FieldType
	// Array marks array-backed storage.
	Array bool
	// Size marks an array whose length is the queryable quantity.
	Size bool
	// SortPath overrides Path for detail-view sorting.
	SortPath string
	// Permission, when set, is required to see the field.
	Permission string
	// Calculated fields only exist after a derived-field stage.
	Calculated bool
}

// Resolver maps a logical field to its document location. The boolean is
// false when the field is unknown to the domain.
type Resolver func(name string, category report.Category, typ report.FieldType) (Field, bool)

// Table is an explicit per-domain field table keyed by report.FieldKey.
type Table map[string]Field

// Lookup returns the table entry for a display name.
func (t Table) Lookup(name string) (Field, bool) {
	f, ok := t[report.FieldKey(name)]
	return f, ok
}

// CustomPath is where custom field values live on every record.
func CustomPath(name string) string {
	return "customAttributes." + name
}

// CustomField describes a custom field of a given declared type.
func CustomField(name string, typ report.FieldType) Field {
	return Field{
		Path:  CustomPath(name),
		Type:  typ,
		Array: typ.IsMultiValued(),
	}
}

// TableResolver resolves standard fields through t and custom fields by
// name. Other categories are unknown.
func TableResolver(t Table) Resolver {
	return func(name string, category report.Category, typ report.FieldType) (Field, bool) {
		switch category {
		case report.CategoryCustom:
			return CustomField(name, typ), true
		case report.CategoryStandard, "":
			return t.Lookup(name)
		default:
			return Field{}, false
		}
	}
}
