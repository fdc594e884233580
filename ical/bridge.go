package ical

import (
	"fmt"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"

	"github.com/yohang/qCal/caldate"
	"github.com/yohang/qCal/recurrence"
)

// RecurrenceFromComponent extracts a component's DTSTART anchor and its
// RRULE property into a recurrence spec. A component without an RRULE
// yields a nil spec and no error; a malformed RRULE or DTSTART fails.
func RecurrenceFromComponent(comp *goical.Component) (*recurrence.Spec, time.Time, error) {
	anchor, err := comp.Props.DateTime(goical.PropDateTimeStart, nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("ical: reading DTSTART: %w", err)
	}

	prop := comp.Props.Get(goical.PropRecurrenceRule)
	if prop == nil || prop.Value == "" {
		return nil, anchor, nil
	}
	spec, err := recurrence.ParseRRule(prop.Value)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("ical: parsing RRULE of %s: %w", comp.Name, err)
	}
	return spec, anchor, nil
}

// ApplyRecurrence writes the spec onto the component as an RRULE property,
// replacing any previous one.
func ApplyRecurrence(comp *goical.Component, spec *recurrence.Spec) {
	prop := goical.NewProp(goical.PropRecurrenceRule)
	prop.SetValueType(goical.ValueRecurrence)
	prop.Value = spec.RRuleString()
	comp.Props.Set(prop)
}

// ExceptionDates extracts the component's EXDATE values. Date-only entries
// (VALUE=DATE, or values without a time part) come back as midnight UTC and
// exclude the whole day; unparseable entries are skipped.
func ExceptionDates(comp *goical.Component) []time.Time {
	var out []time.Time
	for _, prop := range comp.Props[goical.PropExceptionDates] {
		dateOnly := false
		if vals := prop.Params["VALUE"]; len(vals) > 0 && strings.EqualFold(vals[0], "DATE") {
			dateOnly = true
		}
		for _, item := range strings.Split(prop.Value, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if !dateOnly {
				if t, err := time.Parse("20060102T150405Z", item); err == nil {
					out = append(out, t)
					continue
				}
			}
			if d, err := caldate.Parse(item); err == nil {
				out = append(out, d.Time(time.UTC))
			}
		}
	}
	return out
}
