// Package feed provides the ordered bar sequences the runner consumes.
package feed

import (
	"context"

	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// ErrEndOfFeed is returned by Next once every bar has been consumed.
var ErrEndOfFeed = errors.New(errors.ErrCodeEndOfFeed, "end of feed")

// Feed is a forward-only cursor over bars in strictly increasing time order.
type Feed interface {
	// Load reads the bars and rewinds the cursor. It must be called before Next.
	Load(ctx context.Context) error
	HasNext() bool
	// Next returns the bar under the cursor and advances it, or ErrEndOfFeed.
	Next() (types.Bar, error)
	// Reset rewinds the cursor to the first bar.
	Reset()
	// Len returns the number of loaded bars.
	Len() int
	// Bars returns a copy of every loaded bar, for strategies that need the
	// whole history up front.
	Bars() []types.Bar
}

// cursor is the shared forward-only iteration state.
type cursor struct {
	bars []types.Bar
	pos  int
}

func (c *cursor) HasNext() bool {
	return c.pos < len(c.bars)
}

func (c *cursor) Next() (types.Bar, error) {
	if !c.HasNext() {
		return types.Bar{}, ErrEndOfFeed
	}

	bar := c.bars[c.pos]
	c.pos++

	return bar, nil
}

func (c *cursor) Reset() {
	c.pos = 0
}

func (c *cursor) Len() int {
	return len(c.bars)
}

func (c *cursor) Bars() []types.Bar {
	out := make([]types.Bar, len(c.bars))
	copy(out, c.bars)

	return out
}

func (c *cursor) load(bars []types.Bar) {
	c.bars = bars
	c.pos = 0
}

// checkOrder fails unless timestamps are strictly increasing.
func checkOrder(bars []types.Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return errors.Newf(errors.ErrCodeOutOfOrderBar,
				"bar %d at %s is not after bar %d at %s",
				i, bars[i].Time.Format("2006-01-02T15:04:05Z07:00"), i-1, bars[i-1].Time.Format("2006-01-02T15:04:05Z07:00"))
		}
	}

	return nil
}
