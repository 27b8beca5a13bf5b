// Package calendar isolates timezone-aware date arithmetic.
//
// Every date computation that depends on a timezone goes through Shifter
// so the compiler itself never touches time.Location. Without a timezone
// all arithmetic happens in UTC.
package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Unit is the granularity of a shift.
type Unit string

const (
	Days   Unit = "days"
	Months Unit = "months"
	Years  Unit = "years"
)

// Shifter moves an instant by amount units, interpreted in timezone.
type Shifter interface {
	Shift(t time.Time, amount int, unit Unit, timezone string) (time.Time, error)
}

// Calendar is the default Shifter.
type Calendar struct{}

// Default is the shared Calendar value.
var Default Shifter = Calendar{}

// Shift converts t into timezone (UTC when empty), adds amount units on the
// local calendar so DST transitions keep wall-clock time, and returns the
// result as a UTC instant.
func (Calendar) Shift(t time.Time, amount int, unit Unit, timezone string) (time.Time, error) {
	loc, err := Location(timezone)
	if err != nil {
		return time.Time{}, err
	}
	local := t.In(loc)
	switch unit {
	case Days:
		local = local.AddDate(0, 0, amount)
	case Months:
		local = local.AddDate(0, amount, 0)
	case Years:
		local = local.AddDate(amount, 0, 0)
	default:
		return time.Time{}, fmt.Errorf("unsupported date unit %q", unit)
	}
	return local.UTC(), nil
}

// Location resolves an IANA timezone name; empty means UTC.
func Location(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", timezone, err)
	}
	return loc, nil
}

// StartOfDay truncates t to local midnight in timezone and returns it in UTC.
func StartOfDay(t time.Time, timezone string) (time.Time, error) {
	loc, err := Location(timezone)
	if err != nil {
		return time.Time{}, err
	}
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC(), nil
}

// ShiftToMidnight shifts t and truncates the result to local midnight.
func ShiftToMidnight(s Shifter, t time.Time, amount int, unit Unit, timezone string) (time.Time, error) {
	shifted, err := s.Shift(t, amount, unit, timezone)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(shifted, timezone)
}

// LocalDate returns the calendar date of t in timezone.
func LocalDate(t time.Time, timezone string) (int, time.Month, int, error) {
	loc, err := Location(timezone)
	if err != nil {
		return 0, 0, 0, err
	}
	y, m, d := t.In(loc).Date()
	return y, m, d, nil
}

// IsLeapYear reports whether year has a February 29th.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
