// Package recurrence implements iCalendar (RFC 5545) recurrence rules: an
// immutable-once-frozen rule specification and a lazy occurrence iterator
// that expands it from an anchor date/time.
package recurrence

import (
	"time"

	"github.com/samber/mo"

	"github.com/yohang/qCal/caldate"
)

// Spec describes one recurrence rule: frequency, interval, week start,
// keyed BY-rule constraints and a termination bound (Count XOR Until XOR
// unbounded). A Spec is assembled through its setters and becomes read-only
// the moment the first iterator is constructed from it; later setter calls
// fail with ErrSpecFrozen.
//
// Specs are not safe for concurrent mutation. A frozen spec is immutable
// and may back any number of independent iterators, concurrently.
type Spec struct {
	freq      Frequency
	interval  int
	weekStart time.Weekday

	// Integer-valued BY-rules, keyed by kind so re-setting a kind
	// overwrites the previous list. BYDAY lives apart because its values
	// carry ordinals.
	rules    map[RuleKind][]int
	weekdays []WeekdayNum

	count  int           // 0 means no count bound
	until  *caldate.Date // nil means no until bound
	frozen bool
}

// NewSpec creates a spec for the given frequency with interval 1, week
// start Monday, no BY-rules and no termination bound.
func NewSpec(freq Frequency) *Spec {
	return &Spec{
		freq:      freq,
		interval:  1,
		weekStart: time.Monday,
		rules:     make(map[RuleKind][]int),
	}
}

// NewSpecFromToken is NewSpec for a textual frequency token, e.g. "weekly".
func NewSpecFromToken(token string) (*Spec, error) {
	freq, err := ParseFrequency(token)
	if err != nil {
		return nil, err
	}
	return NewSpec(freq), nil
}

// SetInterval sets the multiplier applied to the frequency between periods;
// interval 2 with Weekly means every second week. Must be at least 1.
func (s *Spec) SetInterval(n int) error {
	if s.frozen {
		return ErrSpecFrozen
	}
	if n < 1 {
		return &InvalidIntervalError{Interval: n}
	}
	s.interval = n
	return nil
}

// SetWeekStart sets the first day of the week, which aligns weekly periods.
// The default is Monday, matching the RFC 5545 WKST default.
func (s *Spec) SetWeekStart(w time.Weekday) error {
	if s.frozen {
		return ErrSpecFrozen
	}
	if w < time.Sunday || w > time.Saturday {
		return &InvalidRuleValueError{Rule: "WKST", Value: int(w), Min: 0, Max: 6}
	}
	s.weekStart = w
	return nil
}

// SetByMonth constrains occurrences to the listed months (1..12). Calling
// with no values clears the rule.
func (s *Spec) SetByMonth(months ...int) error {
	if s.frozen {
		return ErrSpecFrozen
	}
	for _, m := range months {
		if m < 1 || m > 12 {
			return &InvalidRuleValueError{Rule: "BYMONTH", Value: m, Min: 1, Max: 12}
		}
	}
	s.rules[RuleByMonth] = append([]int(nil), months...)
	return nil
}

// SetByWeekday constrains occurrences to the listed weekdays. An entry's
// ordinal selects the n-th such weekday within the period (negative from
// the period's end); ordinals are only valid with Monthly or Yearly
// frequency. Calling with no values clears the rule.
func (s *Spec) SetByWeekday(days ...WeekdayNum) error {
	if s.frozen {
		return ErrSpecFrozen
	}
	for _, wd := range days {
		if wd.Day < time.Sunday || wd.Day > time.Saturday {
			return &InvalidRuleValueError{Rule: "BYDAY", Value: int(wd.Day), Min: 0, Max: 6}
		}
		if wd.N != 0 {
			if wd.N < -53 || wd.N > 53 {
				return &InvalidRuleValueError{Rule: "BYDAY", Value: wd.N, Min: -53, Max: 53,
					Note: "(ordinal)"}
			}
			if s.freq != Monthly && s.freq != Yearly {
				return &UnsupportedRuleCombinationError{Rule: "BYDAY", Freq: s.freq,
					Reason: "ordinal weekdays require a monthly or yearly frequency"}
			}
		}
	}
	s.weekdays = append([]WeekdayNum(nil), days...)
	return nil
}

// SetByMonthDay constrains occurrences to the listed days of the month,
// -31..-1 or 1..31; negative values count from the month's end. A value the
// target month cannot resolve (31 in a 30-day month) filters silently
// during iteration. Incompatible with Weekly frequency.
func (s *Spec) SetByMonthDay(days ...int) error {
	if s.frozen {
		return ErrSpecFrozen
	}
	if s.freq == Weekly && len(days) > 0 {
		return &UnsupportedRuleCombinationError{Rule: "BYMONTHDAY", Freq: s.freq,
			Reason: "month days cannot constrain a weekly frequency"}
	}
	for _, d := range days {
		if d == 0 || d < -31 || d > 31 {
			return &InvalidRuleValueError{Rule: "BYMONTHDAY", Value: d, Min: -31, Max: 31,
				Note: "(never 0)"}
		}
	}
	s.rules[RuleByMonthDay] = append([]int(nil), days...)
	return nil
}

// SetByYearDay constrains occurrences to the listed days of the year,
// -366..-1 or 1..366; negative values count from the year's end. Only valid
// with Yearly, Hourly, Minutely and Secondly frequencies.
func (s *Spec) SetByYearDay(days ...int) error {
	if s.frozen {
		return ErrSpecFrozen
	}
	switch s.freq {
	case Daily, Weekly, Monthly:
		if len(days) > 0 {
			return &UnsupportedRuleCombinationError{Rule: "BYYEARDAY", Freq: s.freq,
				Reason: "year days cannot constrain daily, weekly or monthly frequencies"}
		}
	}
	for _, d := range days {
		if d == 0 || d < -366 || d > 366 {
			return &InvalidRuleValueError{Rule: "BYYEARDAY", Value: d, Min: -366, Max: 366,
				Note: "(never 0)"}
		}
	}
	s.rules[RuleByYearDay] = append([]int(nil), days...)
	return nil
}

// SetByWeekNo constrains occurrences to the listed ISO week numbers,
// -53..-1 or 1..53; negative values count from the year's last week. Only
// meaningful with Yearly frequency.
func (s *Spec) SetByWeekNo(weeks ...int) error {
	if s.frozen {
		return ErrSpecFrozen
	}
	if s.freq != Yearly && len(weeks) > 0 {
		return &UnsupportedRuleCombinationError{Rule: "BYWEEKNO", Freq: s.freq,
			Reason: "week numbers are only meaningful with a yearly frequency"}
	}
	for _, w := range weeks {
		if w == 0 || w < -53 || w > 53 {
			return &InvalidRuleValueError{Rule: "BYWEEKNO", Value: w, Min: -53, Max: 53,
				Note: "(never 0)"}
		}
	}
	s.rules[RuleByWeekNo] = append([]int(nil), weeks...)
	return nil
}

// SetBySetPos selects, per period, only the occurrences at the listed
// positions among those produced by the other BY-rules (1 = first,
// -1 = last). Requires at least one other BY-rule by the time iteration
// starts; that combination is checked at Iterate.
func (s *Spec) SetBySetPos(positions ...int) error {
	if s.frozen {
		return ErrSpecFrozen
	}
	for _, p := range positions {
		if p == 0 || p < -366 || p > 366 {
			return &InvalidRuleValueError{Rule: "BYSETPOS", Value: p, Min: -366, Max: 366,
				Note: "(never 0)"}
		}
	}
	s.rules[RuleBySetPos] = append([]int(nil), positions...)
	return nil
}

// SetCount bounds the recurrence to n occurrences and clears any Until
// bound. n must be at least 1.
func (s *Spec) SetCount(n int) error {
	if s.frozen {
		return ErrSpecFrozen
	}
	if n < 1 {
		return &InvalidRuleValueError{Rule: "COUNT", Value: n, Min: 1, Max: 1<<31 - 1}
	}
	s.count = n
	s.until = nil
	return nil
}

// SetUntil bounds the recurrence to occurrences on or before the given date
// (inclusive, per RFC 5545 UNTIL) and clears any Count bound.
func (s *Spec) SetUntil(d caldate.Date) error {
	if s.frozen {
		return ErrSpecFrozen
	}
	s.until = &d
	s.count = 0
	return nil
}

// SetUnbounded clears both termination bounds, making the spec infinite.
func (s *Spec) SetUnbounded() error {
	if s.frozen {
		return ErrSpecFrozen
	}
	s.count = 0
	s.until = nil
	return nil
}

// Frequency returns the spec's frequency.
func (s *Spec) Frequency() Frequency { return s.freq }

// Interval returns the period multiplier, at least 1.
func (s *Spec) Interval() int { return s.interval }

// WeekStart returns the configured first day of the week.
func (s *Spec) WeekStart() time.Weekday { return s.weekStart }

// Count returns the occurrence-count bound, if one is set.
func (s *Spec) Count() mo.Option[int] {
	if s.count == 0 {
		return mo.None[int]()
	}
	return mo.Some(s.count)
}

// Until returns the inclusive end-date bound, if one is set.
func (s *Spec) Until() mo.Option[caldate.Date] {
	if s.until == nil {
		return mo.None[caldate.Date]()
	}
	return mo.Some(*s.until)
}

// Rule returns a copy of the integer list for an integer-valued rule kind
// and whether the rule is set. For RuleByWeekday use ByWeekday.
func (s *Spec) Rule(kind RuleKind) ([]int, bool) {
	vals := s.rules[kind]
	if len(vals) == 0 {
		return nil, false
	}
	return append([]int(nil), vals...), true
}

// ByWeekday returns a copy of the BYDAY entries, if any.
func (s *Spec) ByWeekday() []WeekdayNum {
	return append([]WeekdayNum(nil), s.weekdays...)
}

// Frozen reports whether iteration has started and the spec is read-only.
func (s *Spec) Frozen() bool { return s.frozen }

func (s *Spec) hasRule(kind RuleKind) bool {
	if kind == RuleByWeekday {
		return len(s.weekdays) > 0
	}
	return len(s.rules[kind]) > 0
}

// hasSelectingRule reports whether any BY-rule other than BYSETPOS is set.
func (s *Spec) hasSelectingRule() bool {
	return s.hasRule(RuleByMonth) || s.hasRule(RuleByWeekday) ||
		s.hasRule(RuleByMonthDay) || s.hasRule(RuleByYearDay) ||
		s.hasRule(RuleByWeekNo)
}

func (s *Spec) weekdayOrdinalsUsed() bool {
	for _, wd := range s.weekdays {
		if wd.N != 0 {
			return true
		}
	}
	return false
}
