package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yohang/qCal/caldate"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func collect(t *testing.T, s *Spec, anchor time.Time, max int) []time.Time {
	t.Helper()
	it, err := s.Iterate(anchor)
	require.NoError(t, err)
	var out []time.Time
	for len(out) < max {
		occ, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, occ)
	}
	return out
}

func TestIterator_WeeklyByWeekday(t *testing.T) {
	s := NewSpec(Weekly)
	require.NoError(t, s.SetByWeekday(
		WeekdayNum{Day: time.Monday},
		WeekdayNum{Day: time.Wednesday},
		WeekdayNum{Day: time.Friday},
	))
	require.NoError(t, s.SetCount(6))

	got := collect(t, s, date(2024, time.January, 1), 100)

	want := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 3),
		date(2024, time.January, 5),
		date(2024, time.January, 8),
		date(2024, time.January, 10),
		date(2024, time.January, 12),
	}
	assert.Equal(t, want, got)

	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].After(got[i-1]), "occurrences must strictly increase")
	}
}

func TestIterator_MonthlyDay31SkipsShortMonths(t *testing.T) {
	s := NewSpec(Monthly)
	require.NoError(t, s.SetByMonthDay(31))
	require.NoError(t, s.SetCount(4))

	got := collect(t, s, date(2024, time.January, 31), 100)

	// February and April have no 31st and yield nothing.
	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.March, 31),
		date(2024, time.May, 31),
		date(2024, time.July, 31),
	}
	assert.Equal(t, want, got)
}

func TestIterator_YearlyLeapDaySkipPolicy(t *testing.T) {
	s := NewSpec(Yearly)
	until, err := caldate.New(2024, 12, 31)
	require.NoError(t, err)
	require.NoError(t, s.SetUntil(until))

	// 2025-02-29 does not exist; under LeapPolicySkip it is filtered, never
	// emitted, and the Until bound then exhausts the iterator at 2028.
	got := collect(t, s, date(2024, time.February, 29), 100)
	assert.Equal(t, []time.Time{date(2024, time.February, 29)}, got)
}

func TestIterator_YearlyLeapDaySkipEmitsLeapYearsOnly(t *testing.T) {
	s := NewSpec(Yearly)
	require.NoError(t, s.SetCount(3))

	got := collect(t, s, date(2024, time.February, 29), 100)

	want := []time.Time{
		date(2024, time.February, 29),
		date(2028, time.February, 29),
		date(2032, time.February, 29),
	}
	assert.Equal(t, want, got)
}

func TestIterator_YearlyLeapDayRejectPolicy(t *testing.T) {
	s := NewSpec(Yearly)
	cfg := DefaultConfig
	cfg.LeapPolicy = LeapPolicyReject

	_, err := s.IterateWithConfig(date(2024, time.February, 29), cfg)
	var invalid *caldate.InvalidDateError
	require.ErrorAs(t, err, &invalid)

	// A non-leap anchor is unaffected by the policy.
	s2 := NewSpec(Yearly)
	require.NoError(t, s2.SetCount(1))
	_, err = s2.IterateWithConfig(date(2024, time.March, 1), cfg)
	require.NoError(t, err)
}

func TestIterator_Idempotence(t *testing.T) {
	s := NewSpec(Weekly)
	require.NoError(t, s.SetInterval(2))
	require.NoError(t, s.SetByWeekday(WeekdayNum{Day: time.Tuesday}, WeekdayNum{Day: time.Sunday}))
	require.NoError(t, s.SetCount(9))

	anchor := date(2024, time.January, 2)
	first := collect(t, s, anchor, 100)
	second := collect(t, s, anchor, 100)

	require.Len(t, first, 9)
	assert.Equal(t, first, second, "independent iterators over one spec must agree")
}

func TestIterator_ImpossibleRuleTerminates(t *testing.T) {
	s := NewSpec(Monthly)
	require.NoError(t, s.SetByMonth(2))
	require.NoError(t, s.SetByMonthDay(31))

	cfg := DefaultConfig
	cfg.MaxEmptyPeriods = 50

	it, err := s.IterateWithConfig(date(2024, time.January, 1), cfg)
	require.NoError(t, err)

	_, ok := it.Next()
	assert.False(t, ok, "February 31 can never match; iterator must exhaust")
	assert.True(t, it.Exhausted())

	// Exhaustion is terminal.
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestIterator_UntilInclusive(t *testing.T) {
	s := NewSpec(Daily)
	until, err := caldate.New(2024, 1, 3)
	require.NoError(t, err)
	require.NoError(t, s.SetUntil(until))

	got := collect(t, s, date(2024, time.January, 1), 100)

	want := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 2),
		date(2024, time.January, 3),
	}
	assert.Equal(t, want, got, "an occurrence on the Until date itself is emitted")
}

func TestIterator_Interval(t *testing.T) {
	t.Run("every second week", func(t *testing.T) {
		s := NewSpec(Weekly)
		require.NoError(t, s.SetInterval(2))
		require.NoError(t, s.SetCount(3))

		got := collect(t, s, date(2024, time.January, 1), 10)
		want := []time.Time{
			date(2024, time.January, 1),
			date(2024, time.January, 15),
			date(2024, time.January, 29),
		}
		assert.Equal(t, want, got)
	})

	t.Run("every third month keeps calendar lengths", func(t *testing.T) {
		s := NewSpec(Monthly)
		require.NoError(t, s.SetInterval(3))
		require.NoError(t, s.SetCount(4))

		got := collect(t, s, date(2024, time.January, 15), 10)
		want := []time.Time{
			date(2024, time.January, 15),
			date(2024, time.April, 15),
			date(2024, time.July, 15),
			date(2024, time.October, 15),
		}
		assert.Equal(t, want, got)
	})
}

func TestIterator_MonthlyNthWeekday(t *testing.T) {
	// Second Tuesday of every month.
	s := NewSpec(Monthly)
	require.NoError(t, s.SetByWeekday(WeekdayNum{Day: time.Tuesday, N: 2}))
	require.NoError(t, s.SetCount(3))

	got := collect(t, s, date(2024, time.January, 1), 10)
	want := []time.Time{
		date(2024, time.January, 9),
		date(2024, time.February, 13),
		date(2024, time.March, 12),
	}
	assert.Equal(t, want, got)
}

func TestIterator_MonthlyLastWeekdayViaSetPos(t *testing.T) {
	// Last working day of the month.
	spec, err := ParseRRule("FREQ=MONTHLY;BYDAY=MO,TU,WE,TH,FR;BYSETPOS=-1;COUNT=3")
	require.NoError(t, err)

	got := collect(t, spec, date(2024, time.January, 1), 10)
	want := []time.Time{
		date(2024, time.January, 31),  // Wednesday
		date(2024, time.February, 29), // Thursday
		date(2024, time.March, 29),    // Good Friday is still a weekday here
	}
	assert.Equal(t, want, got)
}

func TestIterator_SetPosRequiresOtherRule(t *testing.T) {
	s := NewSpec(Monthly)
	require.NoError(t, s.SetBySetPos(1))

	_, err := s.Iterate(date(2024, time.January, 1))
	var unsupported *UnsupportedRuleCombinationError
	require.ErrorAs(t, err, &unsupported)
}

func TestIterator_YearlyByMonth(t *testing.T) {
	s := NewSpec(Yearly)
	require.NoError(t, s.SetByMonth(7, 6)) // order in the rule does not matter
	require.NoError(t, s.SetCount(4))

	got := collect(t, s, date(2024, time.June, 10), 10)
	want := []time.Time{
		date(2024, time.June, 10),
		date(2024, time.July, 10),
		date(2025, time.June, 10),
		date(2025, time.July, 10),
	}
	assert.Equal(t, want, got)
}

func TestIterator_YearlyByWeekNo(t *testing.T) {
	// Mondays of ISO week 1. Anchor is a Monday.
	s := NewSpec(Yearly)
	require.NoError(t, s.SetByWeekNo(1))
	require.NoError(t, s.SetByWeekday(WeekdayNum{Day: time.Monday}))
	require.NoError(t, s.SetCount(3))

	got := collect(t, s, date(2024, time.January, 1), 10)

	// Week 1 of 2025 starts Mon 2024-12-30 and week 1 of 2026 starts Mon
	// 2025-12-29: those Mondays fall in the previous calendar year, and a
	// day only matches week numbers of its own ISO week-year, so 2025 and
	// 2026 contribute nothing. The next qualifying Mondays open weeks that
	// lie entirely inside their own year.
	want := []time.Time{
		date(2024, time.January, 1),
		date(2027, time.January, 4),
		date(2028, time.January, 3),
	}
	assert.Equal(t, want, got)

	for _, occ := range got {
		weekYear, week := occ.ISOWeek()
		assert.Equal(t, 1, week)
		assert.Equal(t, occ.Year(), weekYear)
		assert.Equal(t, time.Monday, occ.Weekday())
	}
}

func TestIterator_YearlyByYearDay(t *testing.T) {
	s := NewSpec(Yearly)
	require.NoError(t, s.SetByYearDay(1, 100, -1))
	require.NoError(t, s.SetCount(5))

	got := collect(t, s, date(2024, time.January, 1), 10)
	want := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.April, 9),    // day 100 of a leap year
		date(2024, time.December, 31),
		date(2025, time.January, 1),
		date(2025, time.April, 10), // day 100 of a common year
	}
	assert.Equal(t, want, got)
}

func TestIterator_NegativeMonthDay(t *testing.T) {
	// Last day of each month.
	s := NewSpec(Monthly)
	require.NoError(t, s.SetByMonthDay(-1))
	require.NoError(t, s.SetCount(4))

	got := collect(t, s, date(2024, time.January, 1), 10)
	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
		date(2024, time.April, 30),
	}
	assert.Equal(t, want, got)
}

func TestIterator_WeekStartAlignsBiweeklyPeriods(t *testing.T) {
	// With interval > 1 the week-start decides which weeks get scanned at
	// all, not just how one week is ordered. Anchor is Mon 2024-01-01.
	build := func(wkst time.Weekday) *Spec {
		s := NewSpec(Weekly)
		require.NoError(t, s.SetWeekStart(wkst))
		require.NoError(t, s.SetInterval(2))
		require.NoError(t, s.SetByWeekday(WeekdayNum{Day: time.Sunday}))
		require.NoError(t, s.SetCount(2))
		return s
	}
	anchor := date(2024, time.January, 1)

	// Monday weeks: Jan 1-7 and Jan 15-21, whose Sundays are the 7th and
	// the 21st.
	got := collect(t, build(time.Monday), anchor, 10)
	assert.Equal(t, []time.Time{
		date(2024, time.January, 7),
		date(2024, time.January, 21),
	}, got)

	// Sunday weeks: the anchor's week starts Sun Dec 31, whose only Sunday
	// precedes the anchor, so the first emissions come from the weeks of
	// Jan 14 and Jan 28.
	got = collect(t, build(time.Sunday), anchor, 10)
	assert.Equal(t, []time.Time{
		date(2024, time.January, 14),
		date(2024, time.January, 28),
	}, got)
}

func TestIterator_DuplicateCandidatesEmitOnce(t *testing.T) {
	// In a 31-day month the 15th and the 17th-from-the-end are the same
	// day; the overlap must collapse to a single emission. In February
	// 2024 (29 days) the two values separate again.
	s := NewSpec(Monthly)
	require.NoError(t, s.SetByMonthDay(15, -17))
	require.NoError(t, s.SetCount(3))

	got := collect(t, s, date(2024, time.January, 1), 10)
	want := []time.Time{
		date(2024, time.January, 15),
		date(2024, time.February, 13),
		date(2024, time.February, 15),
	}
	assert.Equal(t, want, got)
}

func TestIterator_AnchorBeforeFirstMatch(t *testing.T) {
	// Anchor is a Tuesday; the rule wants Fridays. The first period starts
	// on the Monday before the anchor, but nothing before the anchor may
	// be emitted.
	s := NewSpec(Weekly)
	require.NoError(t, s.SetByWeekday(WeekdayNum{Day: time.Friday}))
	require.NoError(t, s.SetCount(2))

	got := collect(t, s, date(2024, time.January, 2), 10)
	want := []time.Time{
		date(2024, time.January, 5),
		date(2024, time.January, 12),
	}
	assert.Equal(t, want, got)
}

func TestIterator_SubDaily(t *testing.T) {
	t.Run("hourly", func(t *testing.T) {
		s := NewSpec(Hourly)
		require.NoError(t, s.SetInterval(6))
		require.NoError(t, s.SetCount(5))

		anchor := time.Date(2024, time.January, 1, 22, 30, 0, 0, time.UTC)
		got := collect(t, s, anchor, 10)
		want := []time.Time{
			time.Date(2024, time.January, 1, 22, 30, 0, 0, time.UTC),
			time.Date(2024, time.January, 2, 4, 30, 0, 0, time.UTC),
			time.Date(2024, time.January, 2, 10, 30, 0, 0, time.UTC),
			time.Date(2024, time.January, 2, 16, 30, 0, 0, time.UTC),
			time.Date(2024, time.January, 2, 22, 30, 0, 0, time.UTC),
		}
		assert.Equal(t, want, got)
	})

	t.Run("minutely filtered by weekday", func(t *testing.T) {
		s := NewSpec(Minutely)
		require.NoError(t, s.SetInterval(30))
		require.NoError(t, s.SetByWeekday(WeekdayNum{Day: time.Tuesday}))
		require.NoError(t, s.SetCount(3))

		// Anchor late on Monday; matches begin at Tuesday midnight.
		anchor := time.Date(2024, time.January, 1, 23, 45, 0, 0, time.UTC)
		got := collect(t, s, anchor, 10)
		want := []time.Time{
			time.Date(2024, time.January, 2, 0, 15, 0, 0, time.UTC),
			time.Date(2024, time.January, 2, 0, 45, 0, 0, time.UTC),
			time.Date(2024, time.January, 2, 1, 15, 0, 0, time.UTC),
		}
		assert.Equal(t, want, got)
	})
}

func TestIterator_TimeOfDayPreserved(t *testing.T) {
	s := NewSpec(Monthly)
	require.NoError(t, s.SetByMonthDay(15))
	require.NoError(t, s.SetCount(2))

	anchor := time.Date(2024, time.January, 15, 9, 30, 45, 0, time.UTC)
	got := collect(t, s, anchor, 10)
	want := []time.Time{
		time.Date(2024, time.January, 15, 9, 30, 45, 0, time.UTC),
		time.Date(2024, time.February, 15, 9, 30, 45, 0, time.UTC),
	}
	assert.Equal(t, want, got)
}

func TestSpec_All(t *testing.T) {
	s := NewSpec(Daily)

	// Unbounded spec without a limit must be refused, not materialized.
	_, err := s.All(date(2024, time.January, 1), 0)
	require.Error(t, err)

	got, err := s.All(date(2024, time.January, 1), 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	bounded := NewSpec(Daily)
	require.NoError(t, bounded.SetCount(2))
	got, err = bounded.All(date(2024, time.January, 1), 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSpec_Between(t *testing.T) {
	s := NewSpec(Daily)

	start := date(2024, time.January, 3)
	end := date(2024, time.January, 5)

	got, err := s.Between(date(2024, time.January, 1), start, end, true)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2024, time.January, 3),
		date(2024, time.January, 4),
		date(2024, time.January, 5),
	}, got)

	got, err = s.Between(date(2024, time.January, 1), start, end, false)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, time.January, 4)}, got)
}

func TestSpec_BeforeAfter(t *testing.T) {
	s := NewSpec(Weekly) // Mondays from the anchor
	anchor := date(2024, time.January, 1)

	occ, found, err := s.After(anchor, date(2024, time.January, 10), false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, date(2024, time.January, 15), occ)

	occ, found, err = s.After(anchor, date(2024, time.January, 15), true)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, date(2024, time.January, 15), occ)

	occ, found, err = s.Before(anchor, date(2024, time.January, 15), false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, date(2024, time.January, 8), occ)

	_, found, err = s.Before(anchor, date(2023, time.December, 1), true)
	require.NoError(t, err)
	assert.False(t, found, "nothing precedes the anchor")
}
