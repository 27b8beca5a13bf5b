package report

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldValue is a sealed interface over the shapes a filter value can take.
// Only the types below implement it; translators switch over it exhaustively.
type FieldValue interface {
	fieldValue() // Sealed - only this package implements it
}

// RawValue is un-normalized user input (string, bool, number, []any,
// map[string]any). The normalizer replaces it with a typed value.
type RawValue struct {
	V any
}

func (RawValue) fieldValue() {}

// ScalarValue is a single typed scalar (string, float64, bool).
type ScalarValue struct {
	V any
}

func (ScalarValue) fieldValue() {}

// ListValue holds several scalars, e.g. multi-select options or a numeric
// [min, max] pair for between.
type ListValue struct {
	Items []any
}

func (ListValue) fieldValue() {}

// DateRangeValue holds one instant or an ordered [start, end] pair.
type DateRangeValue struct {
	Start time.Time
	End   *time.Time
}

func (DateRangeValue) fieldValue() {}

// IsRange reports whether both ends were given.
func (v DateRangeValue) IsRange() bool {
	return v.End != nil
}

// ReferenceValue holds entity references.
type ReferenceValue struct {
	IDs []primitive.ObjectID
}

func (ReferenceValue) fieldValue() {}

// DateUnit is the unit of a relative or anniversary offset.
type DateUnit string

const (
	UnitDays   DateUnit = "days"
	UnitMonths DateUnit = "months"
	UnitYears  DateUnit = "years"
)

// RelativeDateValue is "Offset Units from the as-of instant".
type RelativeDateValue struct {
	Offset   int
	Unit     DateUnit
	Timezone string
}

func (RelativeDateValue) fieldValue() {}

// AnniversaryDateValue matches month and day-of-month Offset Units away
// from now.
type AnniversaryDateValue struct {
	Offset   int
	Unit     DateUnit
	Timezone string
}

func (AnniversaryDateValue) fieldValue() {}

// EmptyValue means no value was supplied.
type EmptyValue struct{}

func (EmptyValue) fieldValue() {}

// IsTyped reports whether v has already been normalized.
func IsTyped(v FieldValue) bool {
	switch v.(type) {
	case nil, RawValue, *RawValue:
		return false
	}
	return true
}
