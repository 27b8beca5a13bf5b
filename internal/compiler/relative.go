package compiler

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/calendar"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// RelativeDate resolves v against the translator's as-of instant: shift by
// the offset in v's timezone, then truncate to local midnight.
func (t *Translator) RelativeDate(v report.RelativeDateValue) (time.Time, error) {
	return calendar.ShiftToMidnight(t.calendar(), t.asOf(), v.Offset, calendar.Unit(v.Unit), t.zone(v.Timezone))
}

// relativeFragment compares against the resolved midnight. eq and ne cover
// the whole local day starting there.
func (t *Translator) relativeFragment(path string, f report.FieldFilter, v report.RelativeDateValue) (bson.D, error) {
	if !f.Comparator.IsScalar() {
		return nil, unsupported(f, "relative date")
	}
	d, err := t.RelativeDate(v)
	if err != nil {
		return nil, report.NewError(report.ErrCodeMalformedFilter, f.Field, "%v", err)
	}

	var cond bson.D
	switch f.Comparator {
	case report.CmpEq:
		cond = bson.D{{Key: "$gte", Value: d}, {Key: "$lt", Value: d.AddDate(0, 0, 1)}}
	case report.CmpNe:
		cond = bson.D{{Key: "$not", Value: bson.D{{Key: "$gte", Value: d}, {Key: "$lt", Value: d.AddDate(0, 0, 1)}}}}
	default:
		cond = bson.D{{Key: scalarOps[f.Comparator], Value: d}}
	}
	return bson.D{{Key: path, Value: cond}}, nil
}

// AnniversaryTarget returns the local calendar date the anniversary
// comparator matches against: now shifted by the signed offset.
func (t *Translator) AnniversaryTarget(cmp report.Comparator, v report.AnniversaryDateValue) (int, time.Month, int, error) {
	offset := v.Offset
	switch cmp {
	case report.CmpEqAnniversary:
		offset = 0
	case report.CmpBeforeAnniversary:
		offset = -offset
	}
	zone := t.zone(v.Timezone)
	target, err := t.calendar().Shift(t.now(), offset, calendar.Unit(v.Unit), zone)
	if err != nil {
		return 0, 0, 0, err
	}
	return calendar.LocalDate(target, zone)
}

// anniversaryFragment matches month and day-of-month, ignoring the year.
// A target of Feb 28 in a non-leap year also matches Feb 29.
func (t *Translator) anniversaryFragment(path string, f report.FieldFilter, v report.AnniversaryDateValue) (bson.D, error) {
	if !f.Comparator.IsAnniversary() {
		return nil, unsupported(f, "anniversary date")
	}
	year, month, day, err := t.AnniversaryTarget(f.Comparator, v)
	if err != nil {
		return nil, report.NewError(report.ErrCodeMalformedFilter, f.Field, "%v", err)
	}

	ref := "$" + path
	// Stored dates are read in the same zone the target was computed in.
	var operand any = ref
	if zone := t.zone(v.Timezone); zone != "" && zone != "UTC" {
		operand = bson.D{{Key: "date", Value: ref}, {Key: "timezone", Value: zone}}
	}
	monthEq := bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$month", Value: operand}}, int(month)}}}
	dayOfMonth := bson.D{{Key: "$dayOfMonth", Value: operand}}

	var dayMatch bson.D
	if month == time.February && day == 28 && !calendar.IsLeapYear(year) {
		dayMatch = bson.D{{Key: "$in", Value: bson.A{dayOfMonth, bson.A{28, 29}}}}
	} else {
		dayMatch = bson.D{{Key: "$eq", Value: bson.A{dayOfMonth, day}}}
	}

	isDate := bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: ref}}, "date"}}}
	return bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{isDate, monthEq, dayMatch}}}}}, nil
}
