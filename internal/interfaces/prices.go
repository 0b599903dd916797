package interfaces

import (
	"context"
	"time"

	"wsb-sentiment/internal/types"
)

// PriceSource serves historical daily closes for a symbol over a date
// range, inclusive on both ends.
type PriceSource interface {
	DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]types.PricePoint, error)
}
