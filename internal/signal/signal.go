// Package signal holds the boolean series produced by strategies and the
// lookup that turns them into per-bar signal points.
package signal

import (
	"sort"
	"time"

	"github.com/rxtech-lab/argo-router/internal/types"
)

// Series is a boolean series keyed by timestamp. Timestamps are compared at
// nanosecond resolution regardless of location. A missing timestamp reads as false.
type Series map[int64]bool

// NewSeries creates an empty series.
func NewSeries() Series {
	return make(Series)
}

// Set stores value at ts.
func (s Series) Set(ts time.Time, value bool) {
	s[ts.UnixNano()] = value
}

// Get returns the stored value at ts, or false when ts is absent.
func (s Series) Get(ts time.Time) bool {
	return s[ts.UnixNano()]
}

// Has reports whether ts is present in the series.
func (s Series) Has(ts time.Time) bool {
	_, ok := s[ts.UnixNano()]

	return ok
}

// Count returns how many timestamps are set to true.
func (s Series) Count() int {
	count := 0

	for _, v := range s {
		if v {
			count++
		}
	}

	return count
}

// TrueTimes returns the timestamps set to true in ascending order (UTC).
func (s Series) TrueTimes() []time.Time {
	keys := make([]int64, 0, len(s))

	for k, v := range s {
		if v {
			keys = append(keys, k)
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]time.Time, len(keys))
	for i, k := range keys {
		out[i] = time.Unix(0, k).UTC()
	}

	return out
}

// ExtractPoint reads both series at ts. Each side is looked up independently;
// no priority between entry and exit is applied here.
func ExtractPoint(ts time.Time, entries, exits Series) types.SignalPoint {
	return types.SignalPoint{
		Entry: entries.Get(ts),
		Exit:  exits.Get(ts),
	}
}
