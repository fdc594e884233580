package caldate

import (
	"fmt"
	"time"
)

// dateLayouts are the recognized textual date forms: iCalendar basic format
// and extended ISO 8601. The list is fixed; anything else fails rather than
// being guessed at.
var dateLayouts = []string{
	"20060102",
	"2006-01-02",
}

// Parse converts a recognized date string into a Date. Parsing is
// locale-independent and strict: a well-formed string naming an impossible
// date (e.g. "20240230") fails with *InvalidDateError.
func Parse(text string) (Date, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return FromTime(t), nil
		}
	}
	return Date{}, &InvalidDateError{Reason: fmt.Sprintf("unrecognized date text %q", text)}
}
