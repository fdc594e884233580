package recurrence

import (
	"errors"
	"sort"
	"time"

	"github.com/yohang/qCal/caldate"
)

type iterState int

const (
	stateReady iterState = iota
	stateIterating
	stateExhausted
)

// Iterator produces the occurrences of a spec from an anchor, lazily and in
// strictly increasing chronological order. It is single-pass: once
// exhausted it stays exhausted, and restarting means constructing a new
// iterator from the same (frozen) spec. A single iterator must not be
// advanced from multiple goroutines; independent iterators are fine.
type Iterator struct {
	spec   *Spec
	cfg    Config
	anchor time.Time

	cursor  time.Time // start of the current period
	pending []time.Time
	emitted int
	empty   int // consecutive periods without a match
	state   iterState

	last    time.Time
	hasLast bool
}

// Iterate constructs an iterator over the spec's occurrences starting at
// the period containing anchor, with DefaultConfig. Occurrences strictly
// before anchor are never produced; anchor itself is produced when it
// satisfies the rules. Constructing the first iterator freezes the spec.
func (s *Spec) Iterate(anchor time.Time) (*Iterator, error) {
	return s.IterateWithConfig(anchor, DefaultConfig)
}

// IterateWithConfig is Iterate with explicit iteration options. All rule
// validation that needs the complete spec happens here, before any
// occurrence is produced; Next itself never fails.
func (s *Spec) IterateWithConfig(anchor time.Time, cfg Config) (*Iterator, error) {
	if cfg.MaxEmptyPeriods <= 0 {
		cfg.MaxEmptyPeriods = DefaultConfig.MaxEmptyPeriods
	}
	if s.hasRule(RuleBySetPos) && !s.hasSelectingRule() {
		return nil, &UnsupportedRuleCombinationError{Rule: "BYSETPOS", Freq: s.freq,
			Reason: "requires at least one other BY-rule to select from"}
	}
	if s.hasRule(RuleByWeekNo) && s.weekdayOrdinalsUsed() {
		return nil, &UnsupportedRuleCombinationError{Rule: "BYWEEKNO", Freq: s.freq,
			Reason: "cannot combine with ordinal BYDAY entries"}
	}
	if cfg.LeapPolicy == LeapPolicyReject && s.freq == Yearly && !s.hasSelectingRule() &&
		anchor.Month() == time.February && anchor.Day() == 29 {
		return nil, &caldate.InvalidDateError{Year: anchor.Year(), Month: 2, Day: 29,
			Reason: "February 29 anchor cannot recur yearly in non-leap years"}
	}

	s.frozen = true
	it := &Iterator{spec: s, cfg: cfg, anchor: anchor}
	it.cursor = it.periodStart(anchor)
	return it, nil
}

// Exhausted reports whether the iterator has reached its terminal state.
func (it *Iterator) Exhausted() bool { return it.state == stateExhausted }

// Next produces the next occurrence. The second return is false once the
// sequence is exhausted, which is terminal. Next never blocks and performs
// no I/O; a caller bounds an unbounded spec simply by ceasing to call it.
func (it *Iterator) Next() (time.Time, bool) {
	if it.state == stateExhausted {
		return time.Time{}, false
	}
	it.state = stateIterating

	for {
		for len(it.pending) > 0 {
			if it.spec.count > 0 && it.emitted >= it.spec.count {
				return it.exhaust()
			}
			t := it.pending[0]
			it.pending = it.pending[1:]
			if it.spec.until != nil && caldate.FromTime(t).After(*it.spec.until) {
				return it.exhaust()
			}
			if it.hasLast && !t.After(it.last) {
				continue
			}
			it.emitted++
			it.last, it.hasLast = t, true
			return t, true
		}

		if it.spec.count > 0 && it.emitted >= it.spec.count {
			return it.exhaust()
		}

		candidates := it.expandPeriod()
		it.advance()

		var kept []time.Time
		for _, c := range candidates {
			if !c.Before(it.anchor) {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			it.empty++
			if it.empty > it.cfg.MaxEmptyPeriods {
				return it.exhaust()
			}
			continue
		}
		it.empty = 0
		it.pending = kept
	}
}

func (it *Iterator) exhaust() (time.Time, bool) {
	it.state = stateExhausted
	it.pending = nil
	return time.Time{}, false
}

// periodStart maps an instant to the start of its period, keeping the
// anchor's time of day. Weekly periods align to the spec's week start.
func (it *Iterator) periodStart(t time.Time) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()
	ns := t.Nanosecond()
	loc := t.Location()
	switch it.spec.freq {
	case Yearly:
		return time.Date(y, time.January, 1, h, min, sec, ns, loc)
	case Monthly:
		return time.Date(y, m, 1, h, min, sec, ns, loc)
	case Weekly:
		back := (int(t.Weekday()) - int(it.spec.weekStart) + 7) % 7
		return time.Date(y, m, d-back, h, min, sec, ns, loc)
	default:
		// Daily and sub-daily periods are the instant itself.
		return t
	}
}

// advance moves the cursor to the next period, interval units of frequency
// onward. Arithmetic stays in calendar fields so month and year length
// irregularities come out right; it is never elapsed-seconds math.
func (it *Iterator) advance() {
	n := it.spec.interval
	c := it.cursor
	y, m, d := c.Date()
	h, min, sec := c.Clock()
	ns := c.Nanosecond()
	loc := c.Location()
	switch it.spec.freq {
	case Yearly:
		it.cursor = time.Date(y+n, m, d, h, min, sec, ns, loc)
	case Monthly:
		it.cursor = time.Date(y, m+time.Month(n), d, h, min, sec, ns, loc)
	case Weekly:
		it.cursor = time.Date(y, m, d+7*n, h, min, sec, ns, loc)
	case Daily:
		it.cursor = time.Date(y, m, d+n, h, min, sec, ns, loc)
	case Hourly:
		it.cursor = time.Date(y, m, d, h+n, min, sec, ns, loc)
	case Minutely:
		it.cursor = time.Date(y, m, d, h, min+n, sec, ns, loc)
	case Secondly:
		it.cursor = time.Date(y, m, d, h, min, sec+n, ns, loc)
	}
}

// expandPeriod enumerates every instant in the current period satisfying
// all BY-rules, sorted and deduplicated, with BYSETPOS applied last.
func (it *Iterator) expandPeriod() []time.Time {
	var days []caldate.Date
	switch it.spec.freq {
	case Yearly:
		days = it.yearCandidates(it.cursor.Year())
	case Monthly:
		days = it.monthPeriodCandidates()
	case Weekly:
		days = it.weekCandidates()
	case Daily:
		if d := caldate.FromTime(it.cursor); it.dayMatches(d) {
			days = []caldate.Date{d}
		}
	default:
		// Sub-daily: the cursor instant itself, filtered by its date.
		if d := caldate.FromTime(it.cursor); it.dayMatches(d) {
			return it.applySetPos([]time.Time{it.cursor})
		}
		return nil
	}

	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		out = append(out, it.at(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	out = dedupeTimes(out)
	return it.applySetPos(out)
}

// at places the anchor's time of day on a candidate date.
func (it *Iterator) at(d caldate.Date) time.Time {
	h, m, s := it.anchor.Clock()
	return time.Date(d.Year(), time.Month(d.Month()), d.Day(),
		h, m, s, it.anchor.Nanosecond(), it.anchor.Location())
}

func (it *Iterator) applySetPos(cands []time.Time) []time.Time {
	positions := it.spec.rules[RuleBySetPos]
	if len(positions) == 0 || len(cands) == 0 {
		return cands
	}
	var out []time.Time
	for _, p := range positions {
		i := p - 1
		if p < 0 {
			i = len(cands) + p
		}
		if i >= 0 && i < len(cands) {
			out = append(out, cands[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return dedupeTimes(out)
}

// yearCandidates enumerates the matching days of one year. With BYYEARDAY
// or BYWEEKNO present, or BYDAY unscoped by month rules, every day of the
// year is tested; otherwise the months named by BYMONTH (or implied by the
// day rules, or the anchor's month) are expanded one by one.
func (it *Iterator) yearCandidates(year int) []caldate.Date {
	s := it.spec
	scanYear := s.hasRule(RuleByYearDay) || s.hasRule(RuleByWeekNo) ||
		(len(s.weekdays) > 0 && !s.hasRule(RuleByMonth) && !s.hasRule(RuleByMonthDay))
	if scanYear {
		var out []caldate.Date
		d, err := caldate.New(year, 1, 1)
		if err != nil {
			return nil
		}
		for i, n := 0, caldate.YearDays(year); i < n; i++ {
			if it.yearDayMatches(d) {
				out = append(out, d)
			}
			d = d.AddDays(1)
		}
		return out
	}

	months := s.rules[RuleByMonth]
	if len(months) == 0 {
		if s.hasRule(RuleByMonthDay) || len(s.weekdays) > 0 {
			// BYMONTHDAY / BYDAY expand across every month of the year.
			months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
		} else {
			months = []int{int(it.anchor.Month())}
		}
	}
	var out []caldate.Date
	for _, m := range months {
		out = append(out, it.monthDays(year, m)...)
	}
	return out
}

// yearDayMatches applies every BY-rule to one day during a full-year scan.
func (it *Iterator) yearDayMatches(d caldate.Date) bool {
	s := it.spec
	if v := s.rules[RuleByMonth]; len(v) > 0 && !containsInt(v, d.Month()) {
		return false
	}
	if v := s.rules[RuleByMonthDay]; len(v) > 0 && !matchesMonthDay(v, d) {
		return false
	}
	if v := s.rules[RuleByYearDay]; len(v) > 0 && !matchesYearDay(v, d) {
		return false
	}
	if v := s.rules[RuleByWeekNo]; len(v) > 0 && !matchesWeekNo(v, d) {
		return false
	}
	if len(s.weekdays) > 0 && !it.weekdayEntryMatches(d, !s.hasRule(RuleByMonth)) {
		return false
	}
	return true
}

func (it *Iterator) monthPeriodCandidates() []caldate.Date {
	y, m := it.cursor.Year(), int(it.cursor.Month())
	if v := it.spec.rules[RuleByMonth]; len(v) > 0 && !containsInt(v, m) {
		return nil
	}
	return it.monthDays(y, m)
}

// monthDays enumerates the matching days within one month: BYMONTHDAY
// values resolved against the month's length (unresolvable ones filtered,
// not errors), further narrowed by BYDAY; BYDAY alone scans the month; with
// neither, the anchor's day of month, skipped when the month is too short.
func (it *Iterator) monthDays(year, month int) []caldate.Date {
	s := it.spec
	monthLen := caldate.DaysIn(year, month)

	if v := s.rules[RuleByMonthDay]; len(v) > 0 {
		var out []caldate.Date
		for _, raw := range v {
			day := resolveMonthDay(raw, monthLen)
			if day < 1 || day > monthLen {
				continue
			}
			d, err := caldate.New(year, month, day)
			if err != nil {
				continue
			}
			if len(s.weekdays) > 0 && !it.weekdayEntryMatches(d, false) {
				continue
			}
			out = append(out, d)
		}
		return out
	}

	if len(s.weekdays) > 0 {
		var out []caldate.Date
		d, err := caldate.New(year, month, 1)
		if err != nil {
			return nil
		}
		for i := 0; i < monthLen; i++ {
			if it.weekdayEntryMatches(d, false) {
				out = append(out, d)
			}
			d = d.AddDays(1)
		}
		return out
	}

	day := it.anchor.Day()
	if day > monthLen {
		return nil
	}
	d, err := caldate.New(year, month, day)
	if err != nil {
		return nil
	}
	return []caldate.Date{d}
}

func (it *Iterator) weekCandidates() []caldate.Date {
	s := it.spec
	start := caldate.FromTime(it.cursor)
	var out []caldate.Date
	for i := 0; i < 7; i++ {
		d := start.AddDays(i)
		if len(s.weekdays) > 0 {
			if !matchesPlainWeekday(s.weekdays, d.Weekday()) {
				continue
			}
		} else if d.Weekday() != it.anchor.Weekday() {
			continue
		}
		if v := s.rules[RuleByMonth]; len(v) > 0 && !containsInt(v, d.Month()) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// dayMatches applies the date-level BY-rules as pure filters, used by the
// daily and sub-daily frequencies where nothing expands.
func (it *Iterator) dayMatches(d caldate.Date) bool {
	s := it.spec
	if v := s.rules[RuleByMonth]; len(v) > 0 && !containsInt(v, d.Month()) {
		return false
	}
	if v := s.rules[RuleByMonthDay]; len(v) > 0 && !matchesMonthDay(v, d) {
		return false
	}
	if v := s.rules[RuleByYearDay]; len(v) > 0 && !matchesYearDay(v, d) {
		return false
	}
	if len(s.weekdays) > 0 && !matchesPlainWeekday(s.weekdays, d.Weekday()) {
		return false
	}
	return true
}

func (it *Iterator) weekdayEntryMatches(d caldate.Date, yearContext bool) bool {
	for _, wd := range it.spec.weekdays {
		if wd.Day != d.Weekday() {
			continue
		}
		if wd.N == 0 {
			return true
		}
		if yearContext {
			if nthWeekdayOfYear(d, wd.N) {
				return true
			}
		} else if d.NthWeekdayOfMonth(wd.Day, wd.N) {
			return true
		}
	}
	return false
}

func nthWeekdayOfYear(d caldate.Date, n int) bool {
	if n > 0 {
		return d.DayOfYear()/7+1 == n
	}
	return (caldate.YearDays(d.Year())-1-d.DayOfYear())/7+1 == -n
}

func resolveMonthDay(v, monthLen int) int {
	if v > 0 {
		return v
	}
	return monthLen + 1 + v
}

func matchesMonthDay(vals []int, d caldate.Date) bool {
	for _, v := range vals {
		if resolveMonthDay(v, d.DaysInMonth()) == d.Day() {
			return true
		}
	}
	return false
}

func matchesYearDay(vals []int, d caldate.Date) bool {
	ordinal := d.DayOfYear() + 1
	yearLen := caldate.YearDays(d.Year())
	for _, v := range vals {
		if v > 0 && v == ordinal {
			return true
		}
		if v < 0 && yearLen+1+v == ordinal {
			return true
		}
	}
	return false
}

func matchesWeekNo(vals []int, d caldate.Date) bool {
	// Days whose ISO week belongs to an adjacent ISO year never match a
	// week number of the period's year.
	weekYear, week := d.Time(nil).ISOWeek()
	if weekYear != d.Year() {
		return false
	}
	last := isoWeeksInYear(d.Year())
	for _, v := range vals {
		if v > 0 && v == week {
			return true
		}
		if v < 0 && last+1+v == week {
			return true
		}
	}
	return false
}

// isoWeeksInYear returns 52 or 53; December 28 is always in the last ISO
// week of its year.
func isoWeeksInYear(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

func matchesPlainWeekday(entries []WeekdayNum, w time.Weekday) bool {
	for _, wd := range entries {
		if wd.Day == w {
			return true
		}
	}
	return false
}

func containsInt(vals []int, n int) bool {
	for _, v := range vals {
		if v == n {
			return true
		}
	}
	return false
}

func dedupeTimes(ts []time.Time) []time.Time {
	if len(ts) < 2 {
		return ts
	}
	out := ts[:1]
	for _, t := range ts[1:] {
		if !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return out
}

// All materializes occurrences from anchor. limit bounds the result; it may
// be zero only for a spec that already carries a Count or Until bound,
// since an unbounded spec must never be eagerly collected.
func (s *Spec) All(anchor time.Time, limit int) ([]time.Time, error) {
	if limit <= 0 && s.count == 0 && s.until == nil {
		return nil, errors.New("recurrence: refusing to materialize an unbounded spec without a limit")
	}
	it, err := s.Iterate(anchor)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for {
		t, ok := it.Next()
		if !ok {
			return out, nil
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			return out, nil
		}
	}
}

// Between returns the occurrences falling within start..end. inclusive
// controls whether occurrences exactly on either endpoint are included.
// Terminates for unbounded specs because occurrences strictly increase.
func (s *Spec) Between(anchor, start, end time.Time, inclusive bool) ([]time.Time, error) {
	it, err := s.Iterate(anchor)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for {
		t, ok := it.Next()
		if !ok {
			return out, nil
		}
		if t.After(end) || (!inclusive && t.Equal(end)) {
			return out, nil
		}
		if t.Before(start) || (!inclusive && t.Equal(start)) {
			continue
		}
		out = append(out, t)
	}
}

// Before returns the last occurrence before t (at or before when inclusive)
// and whether one exists.
func (s *Spec) Before(anchor, t time.Time, inclusive bool) (time.Time, bool, error) {
	it, err := s.Iterate(anchor)
	if err != nil {
		return time.Time{}, false, err
	}
	var best time.Time
	found := false
	for {
		occ, ok := it.Next()
		if !ok {
			return best, found, nil
		}
		if occ.After(t) || (!inclusive && occ.Equal(t)) {
			return best, found, nil
		}
		best, found = occ, true
	}
}

// After returns the first occurrence after t (at or after when inclusive)
// and whether one exists.
func (s *Spec) After(anchor, t time.Time, inclusive bool) (time.Time, bool, error) {
	it, err := s.Iterate(anchor)
	if err != nil {
		return time.Time{}, false, err
	}
	for {
		occ, ok := it.Next()
		if !ok {
			return time.Time{}, false, nil
		}
		if occ.After(t) || (inclusive && occ.Equal(t)) {
			return occ, true, nil
		}
	}
}
