package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yohang/qCal/caldate"
)

// ParseRRule builds a spec from an RFC 5545 RRULE property value such as
// "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR". Keys are case-insensitive; the
// FREQ part is mandatory. Malformed or out-of-range parts fail with the
// same errors the corresponding setters produce, never a silent guess.
func ParseRRule(text string) (*Spec, error) {
	fields := strings.Split(strings.TrimSpace(text), ";")

	var freqToken string
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if ok && strings.EqualFold(strings.TrimSpace(key), "FREQ") {
			freqToken = strings.TrimSpace(value)
		}
	}
	if freqToken == "" {
		return nil, fmt.Errorf("rrule: missing FREQ part in %q", text)
	}

	spec, err := NewSpecFromToken(freqToken)
	if err != nil {
		return nil, err
	}

	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("rrule: malformed part %q", field)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "FREQ":
			// Already consumed.
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("rrule: INTERVAL %q: %w", value, err)
			}
			if err := spec.SetInterval(n); err != nil {
				return nil, err
			}
		case "WKST":
			wd, ok := weekdayTokens[strings.ToUpper(value)]
			if !ok {
				return nil, fmt.Errorf("rrule: unknown WKST weekday %q", value)
			}
			if err := spec.SetWeekStart(wd); err != nil {
				return nil, err
			}
		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("rrule: COUNT %q: %w", value, err)
			}
			if err := spec.SetCount(n); err != nil {
				return nil, err
			}
		case "UNTIL":
			d, err := parseUntil(value)
			if err != nil {
				return nil, err
			}
			if err := spec.SetUntil(d); err != nil {
				return nil, err
			}
		case "BYMONTH":
			if err := applyInts(value, key, spec.SetByMonth); err != nil {
				return nil, err
			}
		case "BYMONTHDAY":
			if err := applyInts(value, key, spec.SetByMonthDay); err != nil {
				return nil, err
			}
		case "BYYEARDAY":
			if err := applyInts(value, key, spec.SetByYearDay); err != nil {
				return nil, err
			}
		case "BYWEEKNO":
			if err := applyInts(value, key, spec.SetByWeekNo); err != nil {
				return nil, err
			}
		case "BYSETPOS":
			if err := applyInts(value, key, spec.SetBySetPos); err != nil {
				return nil, err
			}
		case "BYDAY":
			days, err := parseWeekdayNums(value)
			if err != nil {
				return nil, err
			}
			if err := spec.SetByWeekday(days...); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("rrule: unrecognized part %q", key)
		}
	}

	return spec, nil
}

func applyInts(value, key string, set func(...int) error) error {
	vals, err := parseInts(value, key)
	if err != nil {
		return err
	}
	return set(vals...)
}

func parseInts(value, key string) ([]int, error) {
	var out []int
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("rrule: %s %q: %w", key, item, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseWeekdayNums(value string) ([]WeekdayNum, error) {
	var out []WeekdayNum
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if len(item) < 2 {
			return nil, fmt.Errorf("rrule: BYDAY %q: too short", item)
		}
		code := strings.ToUpper(item[len(item)-2:])
		day, ok := weekdayTokens[code]
		if !ok {
			return nil, fmt.Errorf("rrule: BYDAY %q: unknown weekday code %q", item, code)
		}
		ordinal := 0
		if prefix := item[:len(item)-2]; prefix != "" {
			n, err := strconv.Atoi(prefix)
			if err != nil {
				return nil, fmt.Errorf("rrule: BYDAY %q: %w", item, err)
			}
			if n == 0 {
				// An explicit zero ordinal is not the same as no ordinal.
				return nil, &InvalidRuleValueError{Rule: "BYDAY", Value: 0, Min: -53, Max: 53,
					Note: "(ordinal, never 0)"}
			}
			ordinal = n
		}
		out = append(out, WeekdayNum{Day: day, N: ordinal})
	}
	return out, nil
}

func parseUntil(value string) (caldate.Date, error) {
	if d, err := caldate.Parse(value); err == nil {
		return d, nil
	}
	// Date-time form; only the date portion bounds iteration.
	t, err := time.Parse("20060102T150405Z", value)
	if err != nil {
		return caldate.Date{}, &caldate.InvalidDateError{
			Reason: fmt.Sprintf("unrecognized UNTIL value %q", value)}
	}
	return caldate.FromTime(t), nil
}

// RRuleString renders the spec as a canonical RFC 5545 RRULE value.
// ParseRRule(s.RRuleString()) reproduces the spec.
func (s *Spec) RRuleString() string {
	var b strings.Builder
	b.WriteString("FREQ=")
	b.WriteString(s.freq.String())

	if s.interval != 1 {
		fmt.Fprintf(&b, ";INTERVAL=%d", s.interval)
	}
	if s.weekStart != time.Monday {
		fmt.Fprintf(&b, ";WKST=%s", weekdayCodes[s.weekStart])
	}
	writeIntRule(&b, "BYMONTH", s.rules[RuleByMonth])
	writeIntRule(&b, "BYWEEKNO", s.rules[RuleByWeekNo])
	writeIntRule(&b, "BYYEARDAY", s.rules[RuleByYearDay])
	writeIntRule(&b, "BYMONTHDAY", s.rules[RuleByMonthDay])
	if len(s.weekdays) > 0 {
		b.WriteString(";BYDAY=")
		for i, wd := range s.weekdays {
			if i > 0 {
				b.WriteByte(',')
			}
			if wd.N != 0 {
				b.WriteString(strconv.Itoa(wd.N))
			}
			b.WriteString(weekdayCodes[wd.Day])
		}
	}
	writeIntRule(&b, "BYSETPOS", s.rules[RuleBySetPos])

	if s.count > 0 {
		fmt.Fprintf(&b, ";COUNT=%d", s.count)
	}
	if s.until != nil {
		fmt.Fprintf(&b, ";UNTIL=%04d%02d%02d", s.until.Year(), s.until.Month(), s.until.Day())
	}
	return b.String()
}

func writeIntRule(b *strings.Builder, key string, vals []int) {
	if len(vals) == 0 {
		return
	}
	b.WriteByte(';')
	b.WriteString(key)
	b.WriteByte('=')
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
}
