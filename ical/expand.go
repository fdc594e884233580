package ical

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	goical "github.com/emersion/go-ical"

	"github.com/yohang/qCal/recurrence"
)

const defaultMaxPerEvent = 1000

// Occurrence is one materialized instance of a calendar event.
type Occurrence struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
}

// Expander materializes concrete event instances from the VEVENTs of a
// calendar by querying the recurrence engine. Safe for concurrent use once
// constructed.
type Expander struct {
	logger      *slog.Logger
	cfg         recurrence.Config
	cache       *recurrence.Cache
	maxPerEvent int
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithLogger sets the logger; by default logs are discarded.
func WithLogger(logger *slog.Logger) ExpanderOption {
	return func(e *Expander) { e.logger = logger }
}

// WithConfig sets the iteration options, including cache settings.
func WithConfig(cfg recurrence.Config) ExpanderOption {
	return func(e *Expander) { e.cfg = cfg }
}

// WithMaxPerEvent caps how many occurrences a single event may contribute
// to one expansion. Expansion is truncated, and logged, beyond the cap.
func WithMaxPerEvent(n int) ExpanderOption {
	return func(e *Expander) { e.maxPerEvent = n }
}

// NewExpander creates an expander. Call Close when done if caching is
// enabled in the config.
func NewExpander(opts ...ExpanderOption) *Expander {
	e := &Expander{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:         recurrence.DefaultConfig,
		maxPerEvent: defaultMaxPerEvent,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxPerEvent <= 0 {
		e.maxPerEvent = defaultMaxPerEvent
	}
	if e.cfg.CacheEnabled {
		e.cache = recurrence.NewCache(e.cfg.Cache)
	}
	return e
}

// Close releases the expansion cache, if any.
func (e *Expander) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Expand materializes every occurrence of the calendar's events whose start
// falls within [rangeStart, rangeEnd], sorted chronologically (ties by UID).
func (e *Expander) Expand(cal *goical.Calendar, rangeStart, rangeEnd time.Time) ([]Occurrence, error) {
	if rangeEnd.Before(rangeStart) {
		return nil, fmt.Errorf("ical: expansion range end %s precedes start %s", rangeEnd, rangeStart)
	}

	var out []Occurrence
	for _, comp := range cal.Children {
		if comp.Name != goical.CompEvent {
			continue
		}
		occs, err := e.expandEvent(comp, rangeStart, rangeEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, occs...)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

func (e *Expander) expandEvent(comp *goical.Component, rangeStart, rangeEnd time.Time) ([]Occurrence, error) {
	spec, anchor, err := RecurrenceFromComponent(comp)
	if err != nil {
		return nil, err
	}

	uid := propText(comp, goical.PropUID)
	summary := propText(comp, goical.PropSummary)
	duration := eventDuration(comp, anchor)
	exdates := ExceptionDates(comp)

	if spec == nil {
		end := anchor.Add(duration)
		if anchor.After(rangeEnd) || end.Before(rangeStart) || excluded(anchor, exdates) {
			return nil, nil
		}
		return []Occurrence{{UID: uid, Summary: summary, Start: anchor, End: end}}, nil
	}

	var starts []time.Time
	if e.cache != nil {
		starts, err = e.cache.Between(spec, anchor, rangeStart, rangeEnd, true)
	} else {
		starts, err = spec.Between(anchor, rangeStart, rangeEnd, true)
	}
	if err != nil {
		return nil, fmt.Errorf("ical: expanding %s: %w", uid, err)
	}

	if len(exdates) > 0 {
		kept := starts[:0:0]
		for _, start := range starts {
			if !excluded(start, exdates) {
				kept = append(kept, start)
			}
		}
		starts = kept
	}

	if len(starts) > e.maxPerEvent {
		starts = starts[:e.maxPerEvent]
		e.logger.Warn("event expansion truncated",
			"uid", uid,
			"cap", e.maxPerEvent,
		)
	}

	out := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		out = append(out, Occurrence{
			UID:     uid,
			Summary: summary,
			Start:   start,
			End:     start.Add(duration),
		})
	}
	return out, nil
}

// excluded reports whether an occurrence start is named by an EXDATE entry.
// A midnight-UTC entry excludes every occurrence on that calendar date.
func excluded(t time.Time, exdates []time.Time) bool {
	for _, ex := range exdates {
		if t.Equal(ex) {
			return true
		}
		if ex.Hour() == 0 && ex.Minute() == 0 && ex.Second() == 0 && ex.Location() == time.UTC {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			if day.Equal(ex) {
				return true
			}
		}
	}
	return false
}

func propText(comp *goical.Component, name string) string {
	if prop := comp.Props.Get(name); prop != nil {
		return prop.Value
	}
	return ""
}

// eventDuration derives an occurrence's length from DTEND or DURATION;
// without either the event is instantaneous.
func eventDuration(comp *goical.Component, start time.Time) time.Duration {
	if end, err := comp.Props.DateTime(goical.PropDateTimeEnd, nil); err == nil && !end.IsZero() {
		return end.Sub(start)
	}
	if prop := comp.Props.Get(goical.PropDuration); prop != nil {
		if d, err := prop.Duration(); err == nil {
			return d
		}
	}
	return 0
}
