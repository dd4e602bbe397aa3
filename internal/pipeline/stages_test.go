package pipeline

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavenderBridge/recall/internal/models"
)

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Contains(t, r.Names(KindSource), SourceCustomList)
	assert.Contains(t, r.Names(KindSorter), SorterByReviewTime)
	assert.Equal(t, []StageName{LimiterFixedCount, LimiterPercentage, LimiterSmart, LimiterTimeLimit}, r.Names(KindLimiter))

	assert.Panics(t, func() {
		r.RegisterSorter(SorterRandom, func(items []models.Item, _ Params, _ Env) ([]models.Item, error) { return items, nil })
	})

	custom := NewRegistry()
	custom.RegisterFilter("none", func([]models.Item, Params, Env) ([]models.Item, error) { return nil, nil })
	f, err := custom.Filter("none")
	require.NoError(t, err)
	got, err := f([]models.Item{item("a", 0, 0)}, nil, Env{})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = custom.Source(SourceAllKnowledge)
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func runSource(t *testing.T, rd Reader, name StageName, p Params) []string {
	t.Helper()
	src, err := DefaultRegistry().Source(name)
	require.NoError(t, err)
	items, err := src(context.Background(), rd, p)
	require.NoError(t, err)
	return ids(items)
}

func TestSources(t *testing.T) {
	a, b, c := item("a", 1, 0), item("b", 2, 0), item("c", 3, 0)
	b.AreaID = "a2"
	c.KnowledgeBaseID, c.AreaID = "kb2", "a3"
	rd := &memReader{
		items: []models.Item{a, b, c, a},
		mistakes: []models.MistakeRecord{
			{ItemID: "b", Count: 1},
			{ItemID: "c", Count: 2},
			{ItemID: "a", Count: 1, Resolved: true},
			{ItemID: "gone", Count: 1},
		},
	}

	assert.Equal(t, []string{"a", "b", "c"}, runSource(t, rd, SourceAllKnowledge, nil))
	assert.Equal(t, []string{"a", "b"}, runSource(t, rd, SourceKnowledgeBase, Params{"baseId": "kb1"}))
	assert.Equal(t, []string{"b"}, runSource(t, rd, SourceKnowledgeArea, Params{"areaId": "a2"}))
	assert.Empty(t, runSource(t, rd, SourceKnowledgeArea, Params{"areaId": "missing"}))

	assert.Equal(t, []string{"b", "c"}, runSource(t, rd, SourceAllMistakes, nil))
	assert.Equal(t, []string{"b"}, runSource(t, rd, SourceMistakesByBase, Params{"baseId": "kb1"}))
	assert.Equal(t, []string{"c"}, runSource(t, rd, SourceMistakesByArea, Params{"areaId": "a3"}))

	assert.Equal(t, []string{"c", "a"}, runSource(t, rd, SourceCustomList, Params{"ids": []any{"c", "x", "a", "c"}}))
}

func TestSourceMissingParams(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []StageName{SourceKnowledgeBase, SourceKnowledgeArea, SourceMistakesByBase, SourceMistakesByArea, SourceCustomList} {
		src, err := r.Source(name)
		require.NoError(t, err)
		_, err = src(context.Background(), &memReader{}, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig, name)
	}
}

func runFilter(t *testing.T, name StageName, items []models.Item, p Params) []string {
	t.Helper()
	f, err := DefaultRegistry().Filter(name)
	require.NoError(t, err)
	out, err := f(items, p, Env{Now: t0})
	require.NoError(t, err)
	return ids(out)
}

func TestFilters(t *testing.T) {
	a := item("a", 1, -time.Hour)
	a.Difficulty, a.ReviewCount, a.CorrectCount, a.Tags = 1, 4, 4, []string{"go", "db"}
	b := item("b", 2, time.Hour)
	b.Difficulty, b.ReviewCount, b.CorrectCount, b.Tags = 5, 4, 1, []string{"go"}
	c := item("c", 3, 0)
	c.Difficulty, c.Variant = 0, models.VariantChoice
	items := []models.Item{a, b, c}

	assert.Equal(t, []string{"a", "c"}, runFilter(t, FilterDueForReview, items, nil))
	assert.Empty(t, runFilter(t, FilterDueForReview, []models.Item{b}, nil))
	assert.Equal(t, []string{"b"}, runFilter(t, FilterDueForReview, []models.Item{b}, Params{"fallbackAll": true}))

	assert.Equal(t, []string{"b", "c"}, runFilter(t, FilterByDifficulty, items, Params{"min": 3}))
	assert.Equal(t, []string{"a", "c"}, runFilter(t, FilterByDifficulty, items, Params{"max": 3}))

	assert.Equal(t, []string{"b", "c"}, runFilter(t, FilterByAccuracy, items, Params{"max": 0.7}))
	assert.Equal(t, []string{"a"}, runFilter(t, FilterByAccuracy, items, Params{"min": 0.9}))

	assert.Equal(t, []string{"a", "b"}, runFilter(t, FilterByTags, items, Params{"tags": []string{"go", "x"}}))
	assert.Equal(t, []string{"a"}, runFilter(t, FilterByTags, items, Params{"tags": []any{"go", "db"}, "mode": "all"}))

	assert.Equal(t, []string{"a", "b"}, runFilter(t, FilterByReviewCount, items, Params{"min": 2}))
	assert.Equal(t, []string{"c"}, runFilter(t, FilterByVariant, items, Params{"variant": "choice"}))
	assert.Equal(t, []string{"a", "b"}, runFilter(t, FilterHead, items, Params{"count": 2}))
	assert.Equal(t, []string{"a", "b", "c"}, runFilter(t, FilterHead, items, Params{"count": 0}))
	assert.Equal(t, []string{"a", "b"}, runFilter(t, FilterDedupe, []models.Item{a, b, a}, nil))
}

func TestFilterBadParams(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		name StageName
		p    Params
	}{
		{FilterDueForReview, Params{"fallbackAll": "yes"}},
		{FilterByDifficulty, Params{"min": "1"}},
		{FilterByAccuracy, Params{"max": true}},
		{FilterByTags, Params{"tags": "go"}},
		{FilterByTags, Params{"tags": []any{"go", 1}}},
		{FilterByTags, Params{"mode": "some"}},
		{FilterByVariant, Params{"variant": "essay"}},
		{FilterHead, Params{"count": 1.5}},
	}
	for _, tt := range tests {
		f, err := r.Filter(tt.name)
		require.NoError(t, err)
		_, err = f(nil, tt.p, Env{Now: t0})
		assert.ErrorIs(t, err, ErrInvalidConfig, "%s %v", tt.name, tt.p)
	}
}

func runSorter(t *testing.T, name StageName, items []models.Item, p Params) []string {
	t.Helper()
	s, err := DefaultRegistry().Sorter(name)
	require.NoError(t, err)
	out, err := s(items, p, Env{Now: t0, Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)
	return ids(out)
}

func TestSorters(t *testing.T) {
	a := item("a", 3, 2*time.Hour)
	b := item("b", 1, time.Hour)
	c := item("c", 2, 3*time.Hour)
	a.Difficulty, b.Difficulty, c.Difficulty = 2, 4, 2
	a.ReviewCount, a.CorrectCount = 2, 1
	b.ReviewCount, b.CorrectCount = 2, 2
	items := []models.Item{a, b, c}

	assert.Equal(t, []string{"b", "c", "a"}, runSorter(t, SorterSequential, items, nil))
	assert.Equal(t, []string{"a", "c", "b"}, runSorter(t, SorterByCreatedTime, items, Params{"order": "desc"}))
	assert.Equal(t, []string{"b", "a", "c"}, runSorter(t, SorterByDueTime, items, nil))
	assert.Equal(t, []string{"c", "a", "b"}, runSorter(t, SorterByReviewTime, items, Params{"order": "desc"}))
	// Equal difficulty falls back to id.
	assert.Equal(t, []string{"a", "c", "b"}, runSorter(t, SorterByDifficulty, items, nil))
	assert.Equal(t, []string{"c", "a", "b"}, runSorter(t, SorterByAccuracy, items, nil))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, runSorter(t, SorterRandom, items, nil))

	s, err := DefaultRegistry().Sorter(SorterByDueTime)
	require.NoError(t, err)
	_, err = s(items, Params{"order": "up"}, Env{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSmartSorter(t *testing.T) {
	// Overdue, never reviewed: urgency 0, accuracy term dominates.
	weak := item("weak", 1, -time.Hour)
	// Perfect accuracy and due now.
	strong := item("strong", 2, 0)
	strong.ReviewCount, strong.CorrectCount = 3, 3
	// Perfect accuracy but due in a day: 86.4e6 ms × 0.5 outweighs the rest.
	later := item("later", 3, 24*time.Hour)
	later.ReviewCount, later.CorrectCount = 3, 3

	assert.Equal(t, []string{"strong", "weak", "later"}, runSorter(t, SorterSmart, []models.Item{later, weak, strong}, nil))
}

func TestShuffleDoesNotMutate(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6}
	out := Shuffle(in, rand.New(rand.NewSource(3)))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, in)
	assert.ElementsMatch(t, in, out)
}

func runLimiter(t *testing.T, rd Reader, name StageName, n int, p Params) int {
	t.Helper()
	l, err := DefaultRegistry().Limiter(name)
	require.NoError(t, err)
	items := make([]models.Item, n)
	for i := range items {
		items[i] = item(string(rune('a'+i%26))+string(rune('0'+i/26)), i, 0)
	}
	out, err := l(context.Background(), rd, items, p)
	require.NoError(t, err)
	return len(out)
}

func TestLimiters(t *testing.T) {
	rd := &memReader{}

	assert.Equal(t, 3, runLimiter(t, rd, LimiterFixedCount, 10, Params{"count": 3}))
	assert.Equal(t, 10, runLimiter(t, rd, LimiterFixedCount, 10, Params{"count": 0}))
	assert.Equal(t, 2, runLimiter(t, rd, LimiterFixedCount, 2, Params{"count": 5}))

	assert.Equal(t, 4, runLimiter(t, rd, LimiterPercentage, 10, Params{"percentage": 33}))
	assert.Equal(t, 10, runLimiter(t, rd, LimiterPercentage, 10, Params{"percentage": 150}))

	assert.Equal(t, 5, runLimiter(t, rd, LimiterTimeLimit, 10, Params{"minutes": 10}))
	assert.Equal(t, 0, runLimiter(t, rd, LimiterTimeLimit, 10, Params{"minutes": 1}))
	assert.Equal(t, 10, runLimiter(t, rd, LimiterTimeLimit, 10, nil))

	// No history: accuracy 0.5 → round(20 × 1.25) = 25.
	assert.Equal(t, 25, runLimiter(t, rd, LimiterSmart, 60, nil))
	rd.totals = models.ReviewTotals{Total: 10, Correct: 10}
	assert.Equal(t, 20, runLimiter(t, rd, LimiterSmart, 60, nil))

	l, err := DefaultRegistry().Limiter(LimiterSmart)
	require.NoError(t, err)
	_, err = l(context.Background(), &memReader{err: errStoreDown}, nil, nil)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestSmartCount(t *testing.T) {
	tests := []struct {
		base, ceiling int
		accuracy      float64
		want          int
	}{
		{20, 50, 1, 20},
		{20, 50, 0.5, 25},
		{20, 50, 0, 30},
		{4, 50, 1, 10},
		{60, 50, 0, 50},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SmartCount(tt.base, tt.ceiling, tt.accuracy), "%+v", tt)
	}
}

func TestShuffleChoices(t *testing.T) {
	it := models.Item{
		ID:      "q",
		Variant: models.VariantChoice,
		Options: []models.Option{
			{Label: "A", Text: "red"}, {Label: "B", Text: "green"}, {Label: "C", Text: "blue"},
		},
		CorrectLabels: []string{"a", "C"},
	}
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 10; i++ {
		out := ShuffleChoices(it, rng)
		require.Len(t, out.Options, 3)
		for j, o := range out.Options {
			assert.Equal(t, string(rune('A'+j)), o.Label)
		}
		var texts []string
		for _, l := range out.CorrectLabels {
			text, ok := out.OptionText(l)
			require.True(t, ok)
			texts = append(texts, text)
		}
		assert.ElementsMatch(t, []string{"red", "blue"}, texts)
	}

	broken := it.Clone()
	broken.CorrectLabels = []string{"Z"}
	assert.Equal(t, broken, ShuffleChoices(broken, rng))

	dup := it.Clone()
	dup.Options[1].Text = "red"
	assert.Equal(t, dup, ShuffleChoices(dup, rng))

	open := item("o", 0, 0)
	assert.Equal(t, open, ShuffleChoices(open, rng))
}

func TestParams(t *testing.T) {
	p := Params{"n": float64(3), "f": 2, "s": "x", "b": true, "list": []any{"a", "b"}}

	n, err := p.Int("n", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := p.Float("f", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	d, err := p.Int("missing", 9)
	require.NoError(t, err)
	assert.Equal(t, 9, d)

	list, ok, err := p.Strings("list")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, list)

	_, err = p.RequireString("missing")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = p.Bool("s", false)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSessionConfigClone(t *testing.T) {
	cfg := CustomList([]string{"a", "b"}, TemplateOptions{Limit: 3})
	cp := cfg.Clone()
	cp.Source.Params["ids"].([]string)[0] = "z"
	cp.Limiter.Params["count"] = 1

	assert.Equal(t, []string{"a", "b"}, cfg.Source.Params["ids"])
	assert.Equal(t, 3, cfg.Limiter.Params["count"])
	assert.Equal(t, SorterSequential, SessionConfig{}.SorterName())
}

func TestTemplates(t *testing.T) {
	weak := WeaknessReview(TemplateOptions{})
	assert.Equal(t, SourceAllKnowledge, weak.Source.Name)
	assert.Equal(t, SorterByAccuracy, weak.Sorter.Name)
	require.NotNil(t, weak.Limiter)
	assert.Equal(t, 15, weak.Limiter.Params["count"])

	area := AreaReview("a1", TemplateOptions{OnlyDue: true, Random: true})
	assert.Equal(t, SorterRandom, area.Sorter.Name)
	require.Len(t, area.Filters, 1)
	assert.Equal(t, FilterDueForReview, area.Filters[0].Name)
	assert.Nil(t, area.Limiter)

	assert.Equal(t, SorterByReviewTime, AreaReview("a1", TemplateOptions{}).Sorter.Name)
	assert.Equal(t, SorterSmart, KnowledgeBaseReview("kb", TemplateOptions{}).Sorter.Name)

	smart := SmartReview(TemplateOptions{})
	assert.Equal(t, SourceAllKnowledge, smart.Source.Name)
	assert.Equal(t, SorterSmart, smart.Sorter.Name)
	require.Len(t, smart.Filters, 1)
	assert.Equal(t, FilterDueForReview, smart.Filters[0].Name)
	require.NotNil(t, smart.Limiter)
	assert.Equal(t, LimiterSmart, smart.Limiter.Name)
	assert.Equal(t, Params{"baseCount": 20, "maxCount": 40}, smart.Limiter.Params)

	scoped := SmartReview(TemplateOptions{BaseID: "kb", Limit: 10})
	assert.Equal(t, SourceKnowledgeBase, scoped.Source.Name)
	assert.Equal(t, Params{"baseCount": 10, "maxCount": 20}, scoped.Limiter.Params)
	assert.Equal(t, Params{"baseId": "kb"}, WeaknessReview(TemplateOptions{BaseID: "kb"}).Source.Params)

	for _, scope := range []models.MistakeScope{models.GlobalScope(), models.BaseScope("kb"), models.AreaScope("a1")} {
		m := MistakesReview(scope, TemplateOptions{})
		assert.Equal(t, SorterByAccuracy, m.Sorter.Name)
		assert.Equal(t, Params{"order": "asc"}, m.Sorter.Params)
		assert.Equal(t, SorterRandom, MistakesReview(scope, TemplateOptions{Random: true}).Sorter.Name)
	}

	assert.Equal(t, SourceMistakesByArea, MistakesReview(models.AreaScope("a1"), TemplateOptions{}).Source.Name)
	assert.Equal(t, SourceMistakesByBase, MistakesReview(models.BaseScope("kb"), TemplateOptions{}).Source.Name)
	assert.Equal(t, SourceAllMistakes, MistakesReview(models.GlobalScope(), TemplateOptions{}).Source.Name)

	for _, cfg := range []SessionConfig{weak, area, smart, Scheduled(TemplateOptions{}), RandomAll(TemplateOptions{}), Single("x")} {
		assert.NoError(t, cfg.Validate())
	}
}
