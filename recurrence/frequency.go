package recurrence

import (
	"strings"
	"time"
)

// Frequency is the recurrence granularity: one period of the frequency
// (a year, a month, ...) is scanned for candidate occurrences at a time.
type Frequency int

const (
	Yearly Frequency = iota
	Monthly
	Weekly
	Daily
	Hourly
	Minutely
	Secondly
)

// frequencyNames is the fixed frequency token table. Initialized once,
// never altered at runtime; lookups are case-insensitive via ParseFrequency.
var frequencyNames = map[string]Frequency{
	"YEARLY":   Yearly,
	"MONTHLY":  Monthly,
	"WEEKLY":   Weekly,
	"DAILY":    Daily,
	"HOURLY":   Hourly,
	"MINUTELY": Minutely,
	"SECONDLY": Secondly,
}

var frequencyTokens = [...]string{
	Yearly:   "YEARLY",
	Monthly:  "MONTHLY",
	Weekly:   "WEEKLY",
	Daily:    "DAILY",
	Hourly:   "HOURLY",
	Minutely: "MINUTELY",
	Secondly: "SECONDLY",
}

// ParseFrequency resolves a frequency token, case-insensitively, against the
// fixed set. Unknown tokens fail with *UnsupportedFrequencyError.
func ParseFrequency(token string) (Frequency, error) {
	f, ok := frequencyNames[strings.ToUpper(strings.TrimSpace(token))]
	if !ok {
		return 0, &UnsupportedFrequencyError{Token: token}
	}
	return f, nil
}

// String returns the canonical upper-case token for the frequency.
func (f Frequency) String() string {
	if f < 0 || int(f) >= len(frequencyTokens) {
		return "UNKNOWN"
	}
	return frequencyTokens[f]
}

// weekdayTokens maps RRULE two-letter day codes to weekdays (Sunday = 0).
var weekdayTokens = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var weekdayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}
