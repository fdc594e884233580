package recurrence

import "time"

// RuleKind names a BY-rule constraint. Each kind is keyed in the spec:
// setting a kind again overwrites its previous value entirely (last write
// wins), it never appends.
type RuleKind int

const (
	RuleByMonth RuleKind = iota
	RuleByWeekday
	RuleByMonthDay
	RuleByYearDay
	RuleByWeekNo
	RuleBySetPos
)

var ruleKindNames = [...]string{
	RuleByMonth:    "BYMONTH",
	RuleByWeekday:  "BYDAY",
	RuleByMonthDay: "BYMONTHDAY",
	RuleByYearDay:  "BYYEARDAY",
	RuleByWeekNo:   "BYWEEKNO",
	RuleBySetPos:   "BYSETPOS",
}

func (k RuleKind) String() string {
	if k < 0 || int(k) >= len(ruleKindNames) {
		return "BY?"
	}
	return ruleKindNames[k]
}

// WeekdayNum pairs a weekday with an optional signed ordinal. N = 0 means
// every such weekday within the period; N = 2 the second one, N = -1 the
// last. Non-zero ordinals are only meaningful for monthly and yearly
// frequencies and are rejected elsewhere.
type WeekdayNum struct {
	Day time.Weekday
	N   int
}
