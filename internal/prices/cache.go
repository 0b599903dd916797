package prices

import (
	"context"
	"sync"
	"time"

	"wsb-sentiment/internal/types"
)

// CachedSource is a read-through cache over a Source. Historical closes
// never change once the trading day ends, so entries need no invalidation.
type CachedSource struct {
	src Source

	mu    sync.RWMutex
	spans map[string][]span
}

type span struct {
	from, to time.Time
	points   []types.PricePoint
}

// NewCachedSource wraps src with a read-through range cache.
func NewCachedSource(src Source) *CachedSource {
	return &CachedSource{
		src:   src,
		spans: map[string][]span{},
	}
}

var _ Source = (*CachedSource)(nil)

func (c *CachedSource) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]types.PricePoint, error) {
	if points, ok := c.lookup(symbol, from, to); ok {
		return points, nil
	}

	points, err := c.src.DailyCloses(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.spans[symbol] = append(c.spans[symbol], span{from: from, to: to, points: points})
	c.mu.Unlock()

	return points, nil
}

func (c *CachedSource) lookup(symbol string, from, to time.Time) ([]types.PricePoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.spans[symbol] {
		if !s.from.After(from) && !s.to.Before(to) {
			var out []types.PricePoint
			for _, p := range s.points {
				if p.Date.Before(from) || p.Date.After(to) {
					continue
				}
				out = append(out, p)
			}
			return out, true
		}
	}
	return nil, false
}
