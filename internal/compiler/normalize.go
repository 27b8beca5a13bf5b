package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// ErrorFunc builds the error raised for a value that cannot be coerced to
// its declared type. report.MalformedFilter is the usual choice.
type ErrorFunc func(field, message string) error

// Normalize types every clause value of groups. Clauses whose value is
// already typed pass through unchanged, so Normalize is idempotent.
// The input is not modified.
func Normalize(groups []report.FilterGroup, newErr ErrorFunc) ([]report.FilterGroup, error) {
	if newErr == nil {
		newErr = report.MalformedFilter
	}
	out := make([]report.FilterGroup, 0, len(groups))
	for _, group := range groups {
		ng := make(report.FilterGroup, 0, len(group))
		for _, f := range group {
			nf, err := NormalizeFilter(f, newErr)
			if err != nil {
				return nil, err
			}
			ng = append(ng, nf)
		}
		out = append(out, ng)
	}
	return out, nil
}

// NormalizeFilter types a single clause.
func NormalizeFilter(f report.FieldFilter, newErr ErrorFunc) (report.FieldFilter, error) {
	if report.IsTyped(f.Value) {
		return f, nil
	}
	var raw any
	switch v := f.Value.(type) {
	case report.RawValue:
		raw = v.V
	case *report.RawValue:
		raw = v.V
	}
	if f.Category == "" {
		f.Category = report.CategoryStandard
	}

	value, err := normalizeValue(f, raw)
	if err != nil {
		return f, newErr(f.Field, err.Error())
	}
	f.Value = value
	return f, nil
}

func normalizeValue(f report.FieldFilter, raw any) (report.FieldValue, error) {
	if isEmptyRaw(raw) {
		return report.EmptyValue{}, nil
	}

	if m, ok := raw.(map[string]any); ok {
		if _, ok := m["relativeOffset"]; ok {
			off, unit, tz, err := offsetValue(m, "relativeOffset")
			if err != nil {
				return nil, err
			}
			return report.RelativeDateValue{Offset: off, Unit: unit, Timezone: tz}, nil
		}
		if _, ok := m["anniversaryOffset"]; ok {
			off, unit, tz, err := offsetValue(m, "anniversaryOffset")
			if err != nil {
				return nil, err
			}
			return report.AnniversaryDateValue{Offset: off, Unit: unit, Timezone: tz}, nil
		}
	}

	switch {
	case f.Type == report.TypeDate:
		return normalizeDate(raw)
	case f.Type.IsReference():
		ids, err := normalizeReferences(raw)
		if err != nil {
			return nil, err
		}
		return report.ReferenceValue{IDs: ids}, nil
	case f.Type == report.TypeBoolean:
		return report.ScalarValue{V: isTrue(raw)}, nil
	case f.Type == report.TypeNumber || f.Type == report.TypeCount:
		return normalizeNumber(raw)
	case f.Type == report.TypeEmail:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected an email string, got %T", raw)
		}
		return report.ScalarValue{V: NormalizeEmail(s)}, nil
	case f.Type == report.TypeMultiSelect:
		if items, ok := raw.([]any); ok {
			return report.ListValue{Items: items}, nil
		}
		return report.ListValue{Items: []any{raw}}, nil
	default:
		switch v := raw.(type) {
		case []any:
			return report.ListValue{Items: v}, nil
		case map[string]any:
			return nil, fmt.Errorf("unexpected object value for %s field", f.Type)
		case time.Time:
			return nil, fmt.Errorf("date value on %s field", f.Type)
		}
		return report.ScalarValue{V: raw}, nil
	}
}

func isEmptyRaw(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	}
	return false
}

func isTrue(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// normalizeDate accepts an ISO string, a time.Time, {date: ...}, or a one
// or two element array of those.
func normalizeDate(raw any) (report.FieldValue, error) {
	if items, ok := raw.([]any); ok {
		if len(items) > 2 {
			return nil, fmt.Errorf("date range takes at most two values, got %d", len(items))
		}
		start, err := parseDate(items[0])
		if err != nil {
			return nil, err
		}
		v := report.DateRangeValue{Start: start}
		if len(items) == 2 {
			end, err := parseDate(items[1])
			if err != nil {
				return nil, err
			}
			if end.Before(start) {
				start, end = end, start
				v.Start = start
			}
			v.End = &end
		}
		return v, nil
	}
	start, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return report.DateRangeValue{Start: start}, nil
}

func parseDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case primitive.DateTime:
		return v.Time().UTC(), nil
	case string:
		t, err := report.ParseInstant(v)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	case map[string]any:
		if d, ok := v["date"]; ok {
			return parseDate(d)
		}
	}
	return time.Time{}, fmt.Errorf("expected a date, got %T", raw)
}

// normalizeReferences accepts a hex string, an ObjectID, {referenceId: ...}
// or an array of those.
func normalizeReferences(raw any) ([]primitive.ObjectID, error) {
	if items, ok := raw.([]any); ok {
		ids := make([]primitive.ObjectID, 0, len(items))
		for _, item := range items {
			id, err := parseReference(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	id, err := parseReference(raw)
	if err != nil {
		return nil, err
	}
	return []primitive.ObjectID{id}, nil
}

func parseReference(raw any) (primitive.ObjectID, error) {
	switch v := raw.(type) {
	case primitive.ObjectID:
		return v, nil
	case string:
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("invalid reference id %q", v)
		}
		return id, nil
	case map[string]any:
		if ref, ok := v["referenceId"]; ok {
			return parseReference(ref)
		}
	}
	return primitive.NilObjectID, fmt.Errorf("expected a reference id, got %T", raw)
}

func normalizeNumber(raw any) (report.FieldValue, error) {
	if items, ok := raw.([]any); ok {
		nums := make([]any, 0, len(items))
		for _, item := range items {
			n, err := toFloat(item)
			if err != nil {
				return nil, err
			}
			nums = append(nums, n)
		}
		return report.ListValue{Items: nums}, nil
	}
	n, err := toFloat(raw)
	if err != nil {
		return nil, err
	}
	return report.ScalarValue{V: n}, nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("expected a number, got %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("expected a number, got %T", raw)
}

func offsetValue(m map[string]any, key string) (int, report.DateUnit, string, error) {
	n, err := toFloat(m[key])
	if err != nil {
		return 0, "", "", fmt.Errorf("%s: %w", key, err)
	}
	if n != math.Trunc(n) {
		return 0, "", "", fmt.Errorf("%s must be a whole number", key)
	}
	unitStr, _ := m["unit"].(string)
	unit := report.DateUnit(unitStr)
	switch unit {
	case report.UnitDays, report.UnitMonths, report.UnitYears:
	default:
		return 0, "", "", fmt.Errorf("unsupported unit %q", unitStr)
	}
	tz, _ := m["timezone"].(string)
	return int(n), unit, tz, nil
}

// NormalizeEmail folds case and composes to NFC, matching how addresses are
// stored on the normalized-email path.
func NormalizeEmail(s string) string {
	return norm.NFC.String(cases.Fold().String(strings.TrimSpace(s)))
}
