package recurrence

// LeapPolicy decides what an iterator does with a yearly recurrence
// anchored on February 29 when a target year has no such day.
type LeapPolicy int

const (
	// LeapPolicySkip treats the missing day like any other unresolvable
	// candidate (day 31 in a 30-day month): the year yields no occurrence
	// and iteration moves on. This is the default.
	LeapPolicySkip LeapPolicy = iota

	// LeapPolicyReject refuses to construct an iterator for a Feb 29
	// yearly anchor at all, failing with *caldate.InvalidDateError, for
	// callers that consider such a spec a mistake.
	LeapPolicyReject
)

// Config holds iteration options. The zero value is not useful; start from
// DefaultConfig.
type Config struct {
	// MaxEmptyPeriods bounds how many consecutive periods may be scanned
	// without a single match before the iterator gives up and exhausts.
	// It guarantees termination for rule combinations with no real
	// occurrences, e.g. BYMONTHDAY=31 with BYMONTH=2.
	MaxEmptyPeriods int

	LeapPolicy LeapPolicy

	// CacheEnabled controls whether range-expansion helpers built on top
	// of the iterator (see Cache) memoize their results.
	CacheEnabled bool
	Cache        CacheConfig
}

// DefaultConfig provides sensible defaults for general use.
var DefaultConfig = Config{
	MaxEmptyPeriods: 1000,
	LeapPolicy:      LeapPolicySkip,
	CacheEnabled:    false,
	Cache:           DefaultCacheConfig,
}
