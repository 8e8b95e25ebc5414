package marketdata

import (
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// Interval is a bar size in Binance notation.
type Interval string

const (
	IntervalOneMinute      Interval = "1m"
	IntervalThreeMinutes   Interval = "3m"
	IntervalFiveMinutes    Interval = "5m"
	IntervalFifteenMinutes Interval = "15m"
	IntervalThirtyMinutes  Interval = "30m"
	IntervalOneHour        Interval = "1h"
	IntervalTwoHours       Interval = "2h"
	IntervalFourHours      Interval = "4h"
	IntervalSixHours       Interval = "6h"
	IntervalTwelveHours    Interval = "12h"
	IntervalOneDay         Interval = "1d"
	IntervalOneWeek        Interval = "1w"
)

type intervalDef struct {
	multiplier int
	timespan   models.Timespan
	unit       time.Duration
}

var intervals = map[Interval]intervalDef{
	IntervalOneMinute:      {1, models.Minute, time.Minute},
	IntervalThreeMinutes:   {3, models.Minute, time.Minute},
	IntervalFiveMinutes:    {5, models.Minute, time.Minute},
	IntervalFifteenMinutes: {15, models.Minute, time.Minute},
	IntervalThirtyMinutes:  {30, models.Minute, time.Minute},
	IntervalOneHour:        {1, models.Hour, time.Hour},
	IntervalTwoHours:       {2, models.Hour, time.Hour},
	IntervalFourHours:      {4, models.Hour, time.Hour},
	IntervalSixHours:       {6, models.Hour, time.Hour},
	IntervalTwelveHours:    {12, models.Hour, time.Hour},
	IntervalOneDay:         {1, models.Day, 24 * time.Hour},
	IntervalOneWeek:        {1, models.Week, 7 * 24 * time.Hour},
}

// SupportedIntervals lists the intervals both providers accept, shortest first.
func SupportedIntervals() []Interval {
	return []Interval{
		IntervalOneMinute, IntervalThreeMinutes, IntervalFiveMinutes, IntervalFifteenMinutes,
		IntervalThirtyMinutes, IntervalOneHour, IntervalTwoHours, IntervalFourHours,
		IntervalSixHours, IntervalTwelveHours, IntervalOneDay, IntervalOneWeek,
	}
}

// ParseInterval validates s as an Interval.
func ParseInterval(s string) (Interval, error) {
	interval := Interval(s)
	if _, ok := intervals[interval]; !ok {
		return "", errors.Newf(errors.ErrCodeInvalidArgument, "unsupported interval %q", s)
	}

	return interval, nil
}

// Polygon returns the aggregate multiplier and timespan for the interval.
func (i Interval) Polygon() (int, models.Timespan) {
	def, ok := intervals[i]
	if !ok {
		return 1, models.Minute
	}

	return def.multiplier, def.timespan
}

// Duration is the length of one bar.
func (i Interval) Duration() time.Duration {
	def, ok := intervals[i]
	if !ok {
		return 0
	}

	return time.Duration(def.multiplier) * def.unit
}

// BarsBetween estimates how many bars cover [start, end].
func (i Interval) BarsBetween(start, end time.Time) int64 {
	d := i.Duration()
	if d <= 0 || !end.After(start) {
		return 0
	}

	return int64(end.Sub(start)/d) + 1
}
