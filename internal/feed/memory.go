package feed

import (
	"context"

	"github.com/rxtech-lab/argo-router/internal/types"
)

// MemoryFeed serves bars from a slice.
type MemoryFeed struct {
	cursor
	source []types.Bar
}

// NewMemoryFeed creates a feed over bars. Ordering is checked by Load.
func NewMemoryFeed(bars []types.Bar) *MemoryFeed {
	source := make([]types.Bar, len(bars))
	copy(source, bars)

	return &MemoryFeed{
		cursor: cursor{bars: nil, pos: 0},
		source: source,
	}
}

// Load implements Feed.
func (m *MemoryFeed) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := checkOrder(m.source); err != nil {
		return err
	}

	m.load(m.source)

	return nil
}

var _ Feed = (*MemoryFeed)(nil)
