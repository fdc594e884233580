// Package caldate provides an immutable Gregorian calendar date value with
// cached derived fields (weekday, day of year, ISO week, month length) and
// pure date arithmetic. It is the leaf layer the recurrence engine builds on
// and has no dependency on it.
package caldate

import (
	"fmt"
	"time"
)

// InvalidDateError reports a (year, month, day) triple that does not name a
// valid Gregorian calendar date, or a date operation that would produce one.
type InvalidDateError struct {
	Year   int
	Month  int
	Day    int
	Reason string
}

func (e *InvalidDateError) Error() string {
	if e.Year == 0 && e.Month == 0 && e.Day == 0 {
		return fmt.Sprintf("invalid date: %s", e.Reason)
	}
	return fmt.Sprintf("invalid date %04d-%02d-%02d: %s", e.Year, e.Month, e.Day, e.Reason)
}

// Date is an immutable calendar date. The zero value is the zero date
// (year 0) and compares less than any common date; construct real values via
// New, NewRollover, Parse, Today or FromTime. Equality is value equality.
type Date struct {
	year  int
	month int
	day   int

	// Derived bundle, computed once at construction.
	weekday  time.Weekday
	yearDay  int // 0-based: Jan 1 is 0
	isoWeek  int
	monthLen int
}

// New constructs a date and validates it strictly: an out-of-range month or
// day (Feb 30, Apr 31) fails with *InvalidDateError rather than being
// adjusted.
func New(year, month, day int) (Date, error) {
	if month < 1 || month > 12 {
		return Date{}, &InvalidDateError{year, month, day, "month must be in 1..12"}
	}
	if n := DaysIn(year, month); day < 1 || day > n {
		return Date{}, &InvalidDateError{year, month, day,
			fmt.Sprintf("day must be in 1..%d for %s %d", n, time.Month(month), year)}
	}
	return fromYMD(year, month, day), nil
}

// NewRollover constructs a date with explicit rollover: out-of-range fields
// carry into the next month/year using standard calendar normalization, so
// (2023, 2, 30) becomes March 2 and (2024, 2, 30) becomes March 1.
func NewRollover(year, month, day int) Date {
	return FromTime(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
}

// Today returns the current date from the process clock. No time-of-day
// component is retained.
func Today() Date {
	return FromTime(time.Now())
}

// FromTime extracts the calendar date of t in t's location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return fromYMD(y, int(m), d)
}

func fromYMD(year, month, day int) Date {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	_, week := t.ISOWeek()
	return Date{
		year:     year,
		month:    month,
		day:      day,
		weekday:  t.Weekday(),
		yearDay:  t.YearDay() - 1,
		isoWeek:  week,
		monthLen: DaysIn(year, month),
	}
}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in the given month of the given year.
func DaysIn(year, month int) int {
	switch time.Month(month) {
	case time.January, time.March, time.May, time.July, time.August, time.October, time.December:
		return 31
	case time.April, time.June, time.September, time.November:
		return 30
	case time.February:
		if IsLeap(year) {
			return 29
		}
		return 28
	}
	return 0
}

// YearDays returns the number of days in the given year (365 or 366).
func YearDays(year int) int {
	if IsLeap(year) {
		return 366
	}
	return 365
}

// Year returns the (signed) year.
func (d Date) Year() int { return d.year }

// Month returns the month, 1..12.
func (d Date) Month() int { return d.month }

// Day returns the day of month, 1..31.
func (d Date) Day() int { return d.day }

// Weekday returns the day of week, Sunday = 0.
func (d Date) Weekday() time.Weekday { return d.weekday }

// DayOfYear returns the 0-based ordinal of the date within its year:
// January 1 is 0, December 31 is 364 or 365.
func (d Date) DayOfYear() int { return d.yearDay }

// ISOWeek returns the ISO 8601 week number, 1..53. Note that dates near the
// start or end of a year may belong to a week of the adjacent ISO year.
func (d Date) ISOWeek() int { return d.isoWeek }

// DaysInMonth returns the length of the date's month, 28..31.
func (d Date) DaysInMonth() int { return d.monthLen }

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return FromTime(time.Date(d.year, time.Month(d.month), d.day+n, 0, 0, 0, 0, time.UTC))
}

// AddMonths returns the date n months later. When the day of month does not
// exist in the target month the operation fails unless clamp is set, in
// which case the day is clamped to the target month's last day. Jan 31 plus
// one month is therefore an error without clamp and Feb 28/29 with it.
func (d Date) AddMonths(n int, clamp bool) (Date, error) {
	total := d.year*12 + d.month - 1 + n
	year := total / 12
	month := total%12 + 1
	if total < 0 && total%12 != 0 {
		year--
		month += 12
	}
	day := d.day
	if max := DaysIn(year, month); day > max {
		if !clamp {
			return Date{}, &InvalidDateError{year, month, day,
				fmt.Sprintf("day overflows %s %d (%d days)", time.Month(month), year, max)}
		}
		day = max
	}
	return fromYMD(year, month, day), nil
}

// AddYears returns the date n years later, with the same clamp semantics as
// AddMonths (relevant only for Feb 29 anchors landing on non-leap years).
func (d Date) AddYears(n int, clamp bool) (Date, error) {
	return d.AddMonths(12*n, clamp)
}

// NthWeekdayOfMonth reports whether the date is the n-th occurrence of
// weekday w within its month. Negative n counts from the end of the month,
// so n = -1 means the last such weekday. n = 0 never matches.
func (d Date) NthWeekdayOfMonth(w time.Weekday, n int) bool {
	if d.weekday != w || n == 0 {
		return false
	}
	if n > 0 {
		return (d.day-1)/7+1 == n
	}
	return (d.monthLen-d.day)/7+1 == -n
}

// Compare returns -1, 0 or +1 ordering d against other by (year, month, day).
func (d Date) Compare(other Date) int {
	switch {
	case d.year != other.year:
		return cmp(d.year, other.year)
	case d.month != other.month:
		return cmp(d.month, other.month)
	default:
		return cmp(d.day, other.day)
	}
}

func cmp(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// Equal reports whether d and other name the same calendar date.
func (d Date) Equal(other Date) bool { return d.Compare(other) == 0 }

// Time returns the date at midnight in loc (UTC when loc is nil).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.year, time.Month(d.month), d.day, 0, 0, 0, 0, loc)
}

// String renders the date in extended ISO form, e.g. "2024-02-29".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}
