package pipeline

import (
	"github.com/LavenderBridge/recall/internal/models"
)

// Built-in filters.
const (
	FilterDueForReview  StageName = "due-for-review"
	FilterByDifficulty  StageName = "by-difficulty"
	FilterByAccuracy    StageName = "by-accuracy"
	FilterByTags        StageName = "by-tags"
	FilterByReviewCount StageName = "by-review-count"
	FilterByVariant     StageName = "by-variant"
	FilterDedupe        StageName = "dedupe"
	FilterHead          StageName = "head"
)

func registerFilters(r *Registry) {
	// fallbackAll returns the input untouched when nothing is due, which is
	// what plain sequential review does.
	r.RegisterFilter(FilterDueForReview, func(items []models.Item, p Params, env Env) ([]models.Item, error) {
		fallback, err := p.Bool("fallbackAll", false)
		if err != nil {
			return nil, err
		}
		due := keep(items, func(it models.Item) bool { return it.IsDue(env.Now) })
		if len(due) == 0 && fallback {
			return items, nil
		}
		return due, nil
	})

	r.RegisterFilter(FilterByDifficulty, func(items []models.Item, p Params, _ Env) ([]models.Item, error) {
		lo, hi, err := intRange(p)
		if err != nil {
			return nil, err
		}
		return keep(items, func(it models.Item) bool {
			d := it.Difficulty
			if d == 0 {
				d = 3
			}
			return inRange(d, lo, hi)
		}), nil
	})

	r.RegisterFilter(FilterByAccuracy, func(items []models.Item, p Params, _ Env) ([]models.Item, error) {
		lo, err := p.Float("min", 0)
		if err != nil {
			return nil, err
		}
		hi, err := p.Float("max", 1)
		if err != nil {
			return nil, err
		}
		return keep(items, func(it models.Item) bool {
			acc := it.Accuracy()
			return acc >= lo && acc <= hi
		}), nil
	})

	r.RegisterFilter(FilterByTags, func(items []models.Item, p Params, _ Env) ([]models.Item, error) {
		tags, _, err := p.Strings("tags")
		if err != nil {
			return nil, err
		}
		mode, err := p.String("mode", "any")
		if err != nil {
			return nil, err
		}
		if mode != "any" && mode != "all" {
			return nil, invalid("mode must be any or all, got %q", mode)
		}
		if len(tags) == 0 {
			return items, nil
		}
		return keep(items, func(it models.Item) bool {
			hits := 0
			for _, t := range tags {
				if it.HasTag(t) {
					hits++
				}
			}
			if mode == "all" {
				return hits == len(tags)
			}
			return hits > 0
		}), nil
	})

	r.RegisterFilter(FilterByReviewCount, func(items []models.Item, p Params, _ Env) ([]models.Item, error) {
		lo, hi, err := intRange(p)
		if err != nil {
			return nil, err
		}
		return keep(items, func(it models.Item) bool {
			return inRange(it.ReviewCount, lo, hi)
		}), nil
	})

	r.RegisterFilter(FilterByVariant, func(items []models.Item, p Params, _ Env) ([]models.Item, error) {
		v, err := p.RequireString("variant")
		if err != nil {
			return nil, err
		}
		variant := models.Variant(v)
		if variant != models.VariantOpen && variant != models.VariantChoice {
			return nil, invalid("variant must be open or choice, got %q", v)
		}
		return keep(items, func(it models.Item) bool { return it.Variant == variant }), nil
	})

	r.RegisterFilter(FilterDedupe, func(items []models.Item, _ Params, _ Env) ([]models.Item, error) {
		return dedupe(items), nil
	})

	r.RegisterFilter(FilterHead, func(items []models.Item, p Params, _ Env) ([]models.Item, error) {
		n, err := p.Int("count", 0)
		if err != nil {
			return nil, err
		}
		return truncate(items, n), nil
	})
}

// intRange reads optional "min"/"max"; zero means unbounded on that side.
func intRange(p Params) (int, int, error) {
	lo, err := p.Int("min", 0)
	if err != nil {
		return 0, 0, err
	}
	hi, err := p.Int("max", 0)
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func inRange(v, lo, hi int) bool {
	return (lo == 0 || v >= lo) && (hi == 0 || v <= hi)
}

func truncate(items []models.Item, n int) []models.Item {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[:n]
}
