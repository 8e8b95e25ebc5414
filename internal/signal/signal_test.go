package signal

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/stretchr/testify/suite"
)

type SignalTestSuite struct {
	suite.Suite
	t1 time.Time
	t2 time.Time
	t3 time.Time
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func (suite *SignalTestSuite) SetupTest() {
	suite.t1 = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	suite.t2 = suite.t1.Add(time.Minute)
	suite.t3 = suite.t2.Add(time.Minute)
}

func (suite *SignalTestSuite) TestAbsentTimestampIsFalse() {
	point := ExtractPoint(suite.t1, NewSeries(), nil)
	suite.Equal(types.SignalPoint{Entry: false, Exit: false}, point)
}

func (suite *SignalTestSuite) TestStoredValuesAreReadIndependently() {
	entries := NewSeries()
	exits := NewSeries()

	entries.Set(suite.t1, true)
	exits.Set(suite.t1, false)
	exits.Set(suite.t2, true)
	entries.Set(suite.t3, true)
	exits.Set(suite.t3, true)

	suite.Equal(types.SignalPoint{Entry: true, Exit: false}, ExtractPoint(suite.t1, entries, exits))
	suite.Equal(types.SignalPoint{Entry: false, Exit: true}, ExtractPoint(suite.t2, entries, exits))
	suite.Equal(types.SignalPoint{Entry: true, Exit: true}, ExtractPoint(suite.t3, entries, exits))
}

func (suite *SignalTestSuite) TestTimestampsMatchAcrossLocations() {
	entries := NewSeries()
	entries.Set(suite.t2, true)

	ny := time.FixedZone("EST", -5*60*60)

	suite.True(entries.Get(suite.t2.In(ny)))
	suite.True(entries.Has(suite.t2))
	suite.False(entries.Has(suite.t1))
}

func (suite *SignalTestSuite) TestCountAndTrueTimes() {
	series := NewSeries()
	series.Set(suite.t3, true)
	series.Set(suite.t2, false)
	series.Set(suite.t1, true)

	suite.Equal(2, series.Count())
	suite.Equal([]time.Time{suite.t1, suite.t3}, series.TrueTimes())
}
