package pipeline

import (
	"context"
	"math"

	"github.com/LavenderBridge/recall/internal/models"
)

// Built-in limiters.
const (
	LimiterFixedCount StageName = "fixed-count"
	LimiterPercentage StageName = "percentage"
	LimiterTimeLimit  StageName = "time-limit"
	LimiterSmart      StageName = "smart-limit"
)

// MinutesPerItem is the time-limit limiter's estimate of one review.
const MinutesPerItem = 2

func registerLimiters(r *Registry) {
	r.RegisterLimiter(LimiterFixedCount, func(_ context.Context, _ Reader, items []models.Item, p Params) ([]models.Item, error) {
		n, err := p.Int("count", 0)
		if err != nil {
			return nil, err
		}
		return truncate(items, n), nil
	})

	r.RegisterLimiter(LimiterPercentage, func(_ context.Context, _ Reader, items []models.Item, p Params) ([]models.Item, error) {
		pct, err := p.Float("percentage", 0)
		if err != nil {
			return nil, err
		}
		if pct <= 0 || pct > 100 {
			return items, nil
		}
		return truncate(items, int(math.Ceil(float64(len(items))*pct/100))), nil
	})

	r.RegisterLimiter(LimiterTimeLimit, func(_ context.Context, _ Reader, items []models.Item, p Params) ([]models.Item, error) {
		minutes, err := p.Int("minutes", 0)
		if err != nil {
			return nil, err
		}
		if minutes <= 0 {
			return items, nil
		}
		n := minutes / MinutesPerItem
		if n == 0 {
			return items[:0], nil
		}
		return truncate(items, n), nil
	})

	// smart-limit grows the session for users who answer poorly.
	r.RegisterLimiter(LimiterSmart, func(ctx context.Context, rd Reader, items []models.Item, p Params) ([]models.Item, error) {
		base, err := p.Int("baseCount", 20)
		if err != nil {
			return nil, err
		}
		ceiling, err := p.Int("maxCount", 50)
		if err != nil {
			return nil, err
		}
		totals, err := rd.ReviewTotals(ctx)
		if err != nil {
			return nil, err
		}
		accuracy := 0.5
		if totals.Total > 0 {
			accuracy = float64(totals.Correct) / float64(totals.Total)
		}
		return truncate(items, SmartCount(base, ceiling, accuracy)), nil
	})
}

// SmartCount is the smart-limit session size for a given historic accuracy.
func SmartCount(base, ceiling int, accuracy float64) int {
	n := int(math.Round(float64(base) * (1 + (1-accuracy)*0.5)))
	if n < 10 {
		n = 10
	}
	if n > ceiling {
		n = ceiling
	}
	return n
}
