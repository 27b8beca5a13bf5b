package compiler

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/calendar"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// Translator maps one typed clause to a filter fragment.
type Translator struct {
	// Now is the clock for anniversary comparisons. Defaults to time.Now.
	Now func() time.Time
	// AsOf anchors relative dates. Zero means Now().
	AsOf time.Time
	// Calendar performs timezone-aware shifts. Defaults to calendar.Default.
	Calendar calendar.Shifter
	// Timezone applies to relative dates that name none.
	Timezone string
}

func (t *Translator) zone(tz string) string {
	if tz != "" {
		return tz
	}
	return t.Timezone
}

func (t *Translator) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

func (t *Translator) asOf() time.Time {
	if !t.AsOf.IsZero() {
		return t.AsOf.UTC()
	}
	return t.now()
}

func (t *Translator) calendar() calendar.Shifter {
	if t.Calendar != nil {
		return t.Calendar
	}
	return calendar.Default
}

// Translate returns the fragment for f against field. A nil fragment means
// the clause places no constraint and should be dropped.
func (t *Translator) Translate(field Field, f report.FieldFilter) (bson.D, error) {
	path := field.Path

	if field.Size {
		return t.sizeFragment(path, f)
	}

	switch v := f.Value.(type) {
	case nil, report.EmptyValue:
		return emptyFragment(path, f.Comparator), nil
	case report.ScalarValue:
		return t.scalarFragment(field, f, v)
	case report.ListValue:
		return t.listFragment(field, f, v)
	case report.DateRangeValue:
		return dateFragment(path, f, v)
	case report.ReferenceValue:
		return referenceFragment(field, f, v)
	case report.RelativeDateValue:
		return t.relativeFragment(path, f, v)
	case report.AnniversaryDateValue:
		return t.anniversaryFragment(path, f, v)
	case report.RawValue, *report.RawValue:
		return nil, report.NewError(report.ErrCodeInvalidRequest, f.Field, "filter value was not normalized")
	default:
		return nil, report.NewError(report.ErrCodeInvalidRequest, f.Field, "unknown value type %T", f.Value)
	}
}

func unsupported(f report.FieldFilter, kind string) error {
	return report.NewError(report.ErrCodeUnsupportedComparator, f.Field,
		"comparator %q is not supported for %s values", f.Comparator, kind)
}

func emptyFragment(path string, cmp report.Comparator) bson.D {
	switch cmp {
	case report.CmpEq:
		return bson.D{{Key: path, Value: bson.D{{Key: "$in", Value: bson.A{nil, ""}}}}}
	case report.CmpNe:
		return bson.D{{Key: path, Value: bson.D{{Key: "$nin", Value: bson.A{nil, ""}}}}}
	}
	return nil
}

var scalarOps = map[report.Comparator]string{
	report.CmpEq:  "$eq",
	report.CmpNe:  "$ne",
	report.CmpGt:  "$gt",
	report.CmpGte: "$gte",
	report.CmpLt:  "$lt",
	report.CmpLte: "$lte",
}

func (t *Translator) scalarFragment(field Field, f report.FieldFilter, v report.ScalarValue) (bson.D, error) {
	path := field.Path
	if _, isDate := v.V.(time.Time); isDate {
		return nil, unsupported(f, "scalar date")
	}

	if b, ok := v.V.(bool); ok {
		return booleanFragment(path, f, b)
	}

	switch f.Comparator {
	case report.CmpContains, report.CmpNotContains,
		report.CmpStartsWith, report.CmpNotStartsWith,
		report.CmpEndsWith, report.CmpNotEndsWith:
		s, ok := v.V.(string)
		if !ok {
			return nil, unsupported(f, fmt.Sprintf("%T", v.V))
		}
		return stringFragment(path, f.Comparator, s), nil
	}

	if field.Array && (f.Comparator == report.CmpEq || f.Comparator == report.CmpNe) {
		return setFragment(path, f.Comparator, bson.A{v.V})
	}

	op, ok := scalarOps[f.Comparator]
	if !ok {
		return nil, unsupported(f, "scalar")
	}
	if op == "$eq" {
		return bson.D{{Key: path, Value: v.V}}, nil
	}
	return bson.D{{Key: path, Value: bson.D{{Key: op, Value: v.V}}}}, nil
}

// booleanFragment treats a missing flag as false.
func booleanFragment(path string, f report.FieldFilter, b bool) (bson.D, error) {
	switch f.Comparator {
	case report.CmpEq:
	case report.CmpNe:
		b = !b
	default:
		return nil, unsupported(f, "boolean")
	}
	if b {
		return bson.D{{Key: path, Value: true}}, nil
	}
	return bson.D{{Key: path, Value: bson.D{{Key: "$ne", Value: true}}}}, nil
}

// stringFragment builds a case-insensitive pattern with metacharacters
// escaped. not_* comparators negate it.
func stringFragment(path string, cmp report.Comparator, s string) bson.D {
	pattern := regexp.QuoteMeta(s)
	switch cmp {
	case report.CmpStartsWith, report.CmpNotStartsWith:
		pattern = "^" + pattern
	case report.CmpEndsWith, report.CmpNotEndsWith:
		pattern = pattern + "$"
	}
	re := primitive.Regex{Pattern: pattern, Options: "i"}

	switch cmp {
	case report.CmpNotContains, report.CmpNotStartsWith, report.CmpNotEndsWith:
		return bson.D{{Key: path, Value: bson.D{{Key: "$not", Value: re}}}}
	}
	return bson.D{{Key: path, Value: re}}
}

func (t *Translator) listFragment(field Field, f report.FieldFilter, v report.ListValue) (bson.D, error) {
	path := field.Path
	if f.Comparator == report.CmpBetween {
		if len(v.Items) != 2 {
			return nil, report.NewError(report.ErrCodeMalformedFilter, f.Field,
				"between takes exactly two values, got %d", len(v.Items))
		}
		return bson.D{{Key: path, Value: bson.D{
			{Key: "$gte", Value: v.Items[0]},
			{Key: "$lte", Value: v.Items[1]},
		}}}, nil
	}

	items := bson.A(v.Items)
	if field.Array {
		return setFragment(path, f.Comparator, items)
	}
	switch f.Comparator {
	case report.CmpEq, report.CmpContains:
		return bson.D{{Key: path, Value: bson.D{{Key: "$in", Value: items}}}}, nil
	case report.CmpNe, report.CmpNotContains:
		return bson.D{{Key: path, Value: bson.D{{Key: "$nin", Value: items}}}}, nil
	}
	return nil, unsupported(f, "list")
}

// setFragment handles array-backed storage: eq is an exact set match
// (same size, superset), ne its negation, contains/not_contains membership.
func setFragment(path string, cmp report.Comparator, items bson.A) (bson.D, error) {
	exact := bson.D{{Key: path, Value: bson.D{
		{Key: "$size", Value: len(items)},
		{Key: "$all", Value: items},
	}}}
	switch cmp {
	case report.CmpEq:
		return exact, nil
	case report.CmpNe:
		return bson.D{{Key: "$nor", Value: bson.A{exact}}}, nil
	case report.CmpContains:
		return bson.D{{Key: path, Value: bson.D{{Key: "$in", Value: items}}}}, nil
	case report.CmpNotContains:
		return bson.D{{Key: path, Value: bson.D{{Key: "$nin", Value: items}}}}, nil
	}
	return nil, report.NewError(report.ErrCodeUnsupportedComparator, path,
		"comparator %q is not supported for multi-valued fields", cmp)
}

func referenceFragment(field Field, f report.FieldFilter, v report.ReferenceValue) (bson.D, error) {
	ids := make(bson.A, 0, len(v.IDs))
	for _, id := range v.IDs {
		ids = append(ids, id)
	}
	if field.Array {
		return setFragment(field.Path, f.Comparator, ids)
	}

	path := field.Path
	switch f.Comparator {
	case report.CmpEq:
		if len(ids) == 1 {
			return bson.D{{Key: path, Value: ids[0]}}, nil
		}
		return bson.D{{Key: path, Value: bson.D{{Key: "$in", Value: ids}}}}, nil
	case report.CmpNe:
		if len(ids) == 1 {
			return bson.D{{Key: path, Value: bson.D{{Key: "$ne", Value: ids[0]}}}}, nil
		}
		return bson.D{{Key: path, Value: bson.D{{Key: "$nin", Value: ids}}}}, nil
	case report.CmpContains:
		return bson.D{{Key: path, Value: bson.D{{Key: "$in", Value: ids}}}}, nil
	case report.CmpNotContains:
		return bson.D{{Key: path, Value: bson.D{{Key: "$nin", Value: ids}}}}, nil
	}
	return nil, unsupported(f, "reference")
}

// DateBounds returns the inclusive [start, end] a date value covers. A
// single instant widens to its whole UTC day; a range end given as a bare
// date widens to the end of that day.
func DateBounds(v report.DateRangeValue) (time.Time, time.Time) {
	if v.End == nil {
		start := startOfUTCDay(v.Start)
		return start, endOfDay(start)
	}
	end := *v.End
	if end.Equal(startOfUTCDay(end)) {
		end = endOfDay(end)
	}
	return v.Start, end
}

func startOfUTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(start time.Time) time.Time {
	return start.AddDate(0, 0, 1).Add(-time.Millisecond)
}

func dateFragment(path string, f report.FieldFilter, v report.DateRangeValue) (bson.D, error) {
	start, end := DateBounds(v)
	var cond bson.D
	switch f.Comparator {
	case report.CmpBefore, report.CmpLt:
		cond = bson.D{{Key: "$lt", Value: start}}
	case report.CmpAfter, report.CmpGt:
		cond = bson.D{{Key: "$gt", Value: end}}
	case report.CmpEq, report.CmpBetween:
		cond = bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}
	case report.CmpLte:
		cond = bson.D{{Key: "$lte", Value: end}}
	case report.CmpGte:
		cond = bson.D{{Key: "$gte", Value: start}}
	case report.CmpNe:
		cond = bson.D{{Key: "$not", Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}}}
	default:
		return nil, unsupported(f, "date")
	}
	return bson.D{{Key: path, Value: cond}}, nil
}

// sizeFragment handles fields whose array length is the queried quantity.
func (t *Translator) sizeFragment(path string, f report.FieldFilter) (bson.D, error) {
	var n int
	switch v := f.Value.(type) {
	case nil, report.EmptyValue:
		return bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: path, Value: bson.D{{Key: "$exists", Value: false}}}},
			bson.D{{Key: path, Value: bson.D{{Key: "$size", Value: 0}}}},
		}}}, nil
	case report.ScalarValue:
		num, err := toFloat(v.V)
		if err != nil {
			return nil, report.NewError(report.ErrCodeMalformedFilter, f.Field, "%v", err)
		}
		if num != math.Trunc(num) {
			return nil, report.NewError(report.ErrCodeMalformedFilter, f.Field, "count must be a whole number, got %v", num)
		}
		n = int(num)
	default:
		return nil, unsupported(f, "count")
	}

	switch f.Comparator {
	case report.CmpEq:
		return bson.D{{Key: path, Value: bson.D{{Key: "$size", Value: n}}}}, nil
	case report.CmpNe:
		return bson.D{{Key: path, Value: bson.D{{Key: "$not", Value: bson.D{{Key: "$size", Value: n}}}}}}, nil
	case report.CmpGt, report.CmpGte, report.CmpLt, report.CmpLte:
		size := bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + path, bson.A{}}}}}}
		return bson.D{{Key: "$expr", Value: bson.D{{Key: scalarOps[f.Comparator], Value: bson.A{size, n}}}}}, nil
	}
	return nil, unsupported(f, "count")
}
