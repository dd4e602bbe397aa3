package pipeline

import (
	"cmp"
	"math/rand"
	"slices"
	"time"

	"github.com/LavenderBridge/recall/internal/models"
)

// Built-in sorters.
const (
	SorterRandom        StageName = "random"
	SorterSequential    StageName = "sequential"
	SorterByCreatedTime StageName = "by-created-time"
	SorterByDueTime     StageName = "by-due-time"
	SorterByReviewTime  StageName = "by-review-time" // alias of by-due-time
	SorterByDifficulty  StageName = "by-difficulty"
	SorterByAccuracy    StageName = "by-accuracy"
	SorterSmart         StageName = "smart"
)

func registerSorters(r *Registry) {
	r.RegisterSorter(SorterRandom, func(items []models.Item, _ Params, env Env) ([]models.Item, error) {
		return Shuffle(items, env.Rand), nil
	})

	r.RegisterSorter(SorterSequential, func(items []models.Item, _ Params, _ Env) ([]models.Item, error) {
		return sortBy(items, true, func(a, b models.Item) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}), nil
	})

	r.RegisterSorter(SorterByCreatedTime, ordered(func(a, b models.Item) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	}))

	byDue := ordered(func(a, b models.Item) int {
		return a.DueAt.Compare(b.DueAt)
	})
	r.RegisterSorter(SorterByDueTime, byDue)
	r.RegisterSorter(SorterByReviewTime, byDue)

	r.RegisterSorter(SorterByDifficulty, ordered(func(a, b models.Item) int {
		return cmp.Compare(difficulty(a), difficulty(b))
	}))

	r.RegisterSorter(SorterByAccuracy, ordered(func(a, b models.Item) int {
		return cmp.Compare(a.Accuracy(), b.Accuracy())
	}))

	// smart weighs urgency, accuracy and difficulty; lower scores come first.
	r.RegisterSorter(SorterSmart, func(items []models.Item, _ Params, env Env) ([]models.Item, error) {
		return sortBy(items, true, func(a, b models.Item) int {
			return cmp.Compare(smartScore(a, env.Now), smartScore(b, env.Now))
		}), nil
	})
}

// Shuffle returns a uniformly shuffled copy of items (Fisher–Yates).
func Shuffle[T any](items []T, rng *rand.Rand) []T {
	out := append([]T(nil), items...)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ordered wraps a key comparison into a sorter honoring the "order" param.
func ordered(by func(a, b models.Item) int) SorterFunc {
	return func(items []models.Item, p Params, _ Env) ([]models.Item, error) {
		asc, err := p.Order()
		if err != nil {
			return nil, err
		}
		return sortBy(items, asc, by), nil
	}
}

// sortBy stable-sorts a copy of items. Ties fall back to id so the order is
// total regardless of how the source returned them.
func sortBy(items []models.Item, asc bool, by func(a, b models.Item) int) []models.Item {
	out := append([]models.Item(nil), items...)
	slices.SortStableFunc(out, func(a, b models.Item) int {
		c := by(a, b)
		if !asc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func difficulty(it models.Item) int {
	if it.Difficulty == 0 {
		return 3
	}
	return it.Difficulty
}

func smartScore(it models.Item, now time.Time) float64 {
	urgency := float64(it.DueAt.Sub(now).Milliseconds())
	if urgency < 0 {
		urgency = 0
	}
	return urgency*0.5 + (1-it.Accuracy())*1_000_000 + float64(difficulty(it))*100_000
}
