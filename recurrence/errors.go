package recurrence

import (
	"errors"
	"fmt"
)

// ErrSpecFrozen is returned by all Spec setters once an iterator has been
// constructed from the spec. Mutating a spec mid-iteration is rejected
// rather than left undefined; build a new spec instead.
var ErrSpecFrozen = errors.New("recurrence: spec is frozen once iteration has started")

// InvalidIntervalError reports a non-positive recurrence interval.
type InvalidIntervalError struct {
	Interval int
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval %d: must be >= 1", e.Interval)
}

// UnsupportedFrequencyError reports a frequency token outside the fixed set.
type UnsupportedFrequencyError struct {
	Token string
}

func (e *UnsupportedFrequencyError) Error() string {
	return fmt.Sprintf("unsupported frequency %q: expected one of yearly, monthly, weekly, daily, hourly, minutely, secondly", e.Token)
}

// InvalidRuleValueError reports a BY-rule (or COUNT) value outside its
// defined range.
type InvalidRuleValueError struct {
	Rule  string
	Value int
	Min   int
	Max   int
	Note  string
}

func (e *InvalidRuleValueError) Error() string {
	msg := fmt.Sprintf("invalid %s value %d: must be in %d..%d", e.Rule, e.Value, e.Min, e.Max)
	if e.Note != "" {
		msg += " " + e.Note
	}
	return msg
}

// UnsupportedRuleCombinationError reports a BY-rule that is incompatible
// with the spec's frequency or with another configured rule.
type UnsupportedRuleCombinationError struct {
	Rule   string
	Freq   Frequency
	Reason string
}

func (e *UnsupportedRuleCombinationError) Error() string {
	return fmt.Sprintf("unsupported rule combination: %s with %s frequency: %s", e.Rule, e.Freq, e.Reason)
}
