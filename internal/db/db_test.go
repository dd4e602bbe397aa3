package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavenderBridge/recall/internal/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.now = func() time.Time { return t0 }
	return s
}

type fixture struct {
	base  models.KnowledgeBase
	area  models.Area
	other models.Area
}

func seed(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()
	kb, err := s.AddKnowledgeBase(ctx, "Go", "language notes")
	require.NoError(t, err)
	a, err := s.AddArea(ctx, kb.ID, "Concurrency")
	require.NoError(t, err)
	b, err := s.AddArea(ctx, kb.ID, "Generics")
	require.NoError(t, err)
	return fixture{base: kb, area: a, other: b}
}

func openItem(areaID, prompt string) models.Item {
	return models.Item{
		AreaID:     areaID,
		Prompt:     prompt,
		Variant:    models.VariantOpen,
		Answer:     "answer to " + prompt,
		Difficulty: 3,
		Ease:       2.5,
		Interval:   1,
		DueAt:      t0,
		Tags:       []string{"go"},
	}
}

func TestBasesAndAreas(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)

	bases, err := s.ListBases(ctx)
	require.NoError(t, err)
	require.Len(t, bases, 1)
	assert.Equal(t, "Go", bases[0].Name)
	assert.Equal(t, "language notes", bases[0].Description)
	assert.Len(t, bases[0].Areas, 2)

	_, err = s.AddKnowledgeBase(ctx, "Go", "")
	assert.Error(t, err, "names are unique")

	_, err = s.AddArea(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	kb, err := s.ResolveBase(ctx, "Go")
	require.NoError(t, err)
	assert.Equal(t, f.base.ID, kb.ID)
	kb, err = s.ResolveBase(ctx, f.base.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", kb.Name)
	_, err = s.ResolveBase(ctx, "Rust")
	assert.ErrorIs(t, err, ErrNotFound)

	a, err := s.ResolveArea(ctx, "Generics")
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, a.ID)

	kb2, err := s.AddKnowledgeBase(ctx, "Java", "")
	require.NoError(t, err)
	_, err = s.AddArea(ctx, kb2.ID, "Generics")
	require.NoError(t, err)
	_, err = s.ResolveArea(ctx, "Generics")
	assert.ErrorContains(t, err, "ambiguous")
	a, err = s.ResolveArea(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Generics", a.Name)
}

func TestAddAndReadItems(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)

	open, err := s.AddItem(ctx, openItem(f.area.ID, "What does a nil channel do?"))
	require.NoError(t, err)
	assert.NotEmpty(t, open.ID)
	assert.Equal(t, f.base.ID, open.KnowledgeBaseID)

	choice := models.Item{
		AreaID:        f.other.ID,
		Prompt:        "Which are type parameters?",
		Variant:       models.VariantChoice,
		Options:       []models.Option{{Label: "A", Text: "T any"}, {Label: "B", Text: "int"}, {Label: "C", Text: "K comparable"}},
		CorrectLabels: []string{"A", "C"},
		Selection:     models.SelectMultiple,
		Ease:          2.5,
		Interval:      1,
	}
	choice, err = s.AddItem(ctx, choice)
	require.NoError(t, err)
	assert.True(t, choice.DueAt.Equal(t0), "due immediately when unset")

	got, err := s.ItemByID(ctx, choice.ID)
	require.NoError(t, err)
	assert.Equal(t, choice.Options, got.Options)
	assert.Equal(t, []string{"A", "C"}, got.CorrectLabels)
	assert.Equal(t, models.SelectMultiple, got.Selection)
	assert.Nil(t, got.Tags)
	assert.Nil(t, got.LastReviewed)
	assert.True(t, got.CreatedAt.Equal(t0))

	all, err := s.AllItems(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byArea, err := s.ItemsByArea(ctx, f.area.ID)
	require.NoError(t, err)
	require.Len(t, byArea, 1)
	assert.Equal(t, []string{"go"}, byArea[0].Tags)
	assert.Equal(t, "answer to What does a nil channel do?", byArea[0].Answer)

	byBase, err := s.ItemsByKnowledgeBase(ctx, f.base.ID)
	require.NoError(t, err)
	assert.Len(t, byBase, 2)

	_, err = s.ItemByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddItemValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)

	tests := []struct {
		name string
		edit func(*models.Item)
	}{
		{"unknown area", func(it *models.Item) { it.AreaID = "nowhere" }},
		{"wrong base", func(it *models.Item) { it.KnowledgeBaseID = "other" }},
		{"blank prompt", func(it *models.Item) { it.Prompt = "  " }},
		{"bad difficulty", func(it *models.Item) { it.Difficulty = 9 }},
		{"bad variant", func(it *models.Item) { it.Variant = "essay" }},
		{"choice without options", func(it *models.Item) {
			it.Variant = models.VariantChoice
			it.Options = []models.Option{{Label: "A", Text: "x"}}
			it.CorrectLabels = []string{"A"}
		}},
		{"choice with unknown label", func(it *models.Item) {
			it.Variant = models.VariantChoice
			it.Options = []models.Option{{Label: "A", Text: "x"}, {Label: "B", Text: "y"}}
			it.CorrectLabels = []string{"C"}
		}},
		{"single selection with two answers", func(it *models.Item) {
			it.Variant = models.VariantChoice
			it.Selection = models.SelectSingle
			it.Options = []models.Option{{Label: "A", Text: "x"}, {Label: "B", Text: "y"}}
			it.CorrectLabels = []string{"A", "B"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := openItem(f.area.ID, "q")
			tt.edit(&it)
			_, err := s.AddItem(ctx, it)
			assert.Error(t, err)
		})
	}

	all, err := s.AllItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateItem(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)
	it, err := s.AddItem(ctx, openItem(f.area.ID, "old"))
	require.NoError(t, err)

	it.Prompt = "new"
	it.Tags = []string{"a", "b"}
	it.Ease = 1.3 // ignored by a details update
	require.NoError(t, s.UpdateItemDetails(ctx, it))

	got, err := s.ItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Prompt)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, 2.5, got.Ease)

	reviewed := t0.Add(time.Hour)
	require.NoError(t, s.UpdateItemScheduling(ctx, it.ID, models.SchedulingUpdate{
		Ease: 2.65, Interval: 3, DueAt: t0.AddDate(0, 0, 3), ReviewCount: 1, CorrectCount: 1, ReviewedAt: reviewed,
	}))
	got, err = s.ItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.65, got.Ease)
	assert.Equal(t, 3, got.Interval)
	assert.True(t, got.DueAt.Equal(t0.AddDate(0, 0, 3)))
	assert.Equal(t, 1, got.ReviewCount)
	assert.Equal(t, 1, got.CorrectCount)
	require.NotNil(t, got.LastReviewed)
	assert.True(t, got.LastReviewed.Equal(reviewed))

	assert.ErrorIs(t, s.UpdateItemScheduling(ctx, "missing", models.SchedulingUpdate{}), ErrNotFound)
	assert.ErrorIs(t, s.UpdateItemDetails(ctx, models.Item{ID: "missing", Prompt: "x", Variant: models.VariantOpen}), ErrNotFound)
}

func TestMistakes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)
	a, err := s.AddItem(ctx, openItem(f.area.ID, "a"))
	require.NoError(t, err)
	b, err := s.AddItem(ctx, openItem(f.other.ID, "b"))
	require.NoError(t, err)

	require.NoError(t, s.UpsertMistake(ctx, a.ID, "user answer: x"))
	s.now = func() time.Time { return t0.Add(time.Hour) }
	require.NoError(t, s.UpsertMistake(ctx, a.ID, "user answer: (blank)"))
	require.NoError(t, s.UpsertMistake(ctx, b.ID, "user answer: y"))

	all, err := s.Mistakes(ctx, models.GlobalScope())
	require.NoError(t, err)
	require.Len(t, all, 2)

	var ma models.MistakeRecord
	for _, m := range all {
		if m.ItemID == a.ID {
			ma = m
		}
	}
	assert.Equal(t, 2, ma.Count)
	assert.Equal(t, []string{"user answer: x", "user answer: (blank)"}, ma.Reasons)
	assert.True(t, ma.FirstMistakeAt.Equal(t0))
	assert.True(t, ma.LastMistakeAt.Equal(t0.Add(time.Hour)))
	assert.False(t, ma.Resolved)

	inArea, err := s.Mistakes(ctx, models.AreaScope(f.other.ID))
	require.NoError(t, err)
	require.Len(t, inArea, 1)
	assert.Equal(t, b.ID, inArea[0].ItemID)

	inBase, err := s.Mistakes(ctx, models.BaseScope(f.base.ID))
	require.NoError(t, err)
	assert.Len(t, inBase, 2)

	require.NoError(t, s.ResolveMistake(ctx, a.ID))
	assert.ErrorIs(t, s.ResolveMistake(ctx, a.ID), ErrNotFound, "already resolved")

	all, err = s.Mistakes(ctx, models.GlobalScope())
	require.NoError(t, err)
	for _, m := range all {
		if m.ItemID == a.ID {
			assert.True(t, m.Resolved)
			require.NotNil(t, m.ResolvedAt)
		}
	}

	n, err := s.ClearResolved(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	all, err = s.Mistakes(ctx, models.GlobalScope())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteItemCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)
	it, err := s.AddItem(ctx, openItem(f.area.ID, "a"))
	require.NoError(t, err)
	require.NoError(t, s.UpsertMistake(ctx, it.ID, "r"))
	require.NoError(t, s.AppendReviewHistory(ctx, models.ReviewEntry{ID: "r1", ItemID: it.ID, ReviewedAt: t0, Quality: 1}))

	require.NoError(t, s.DeleteItem(ctx, it.ID))
	assert.ErrorIs(t, s.DeleteItem(ctx, it.ID), ErrNotFound)

	mistakes, err := s.Mistakes(ctx, models.GlobalScope())
	require.NoError(t, err)
	assert.Empty(t, mistakes)
	totals, err := s.ReviewTotals(ctx)
	require.NoError(t, err)
	assert.Zero(t, totals.Total)
}

func TestReviewHistoryAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	f := seed(t, s)
	a, err := s.AddItem(ctx, openItem(f.area.ID, "a"))
	require.NoError(t, err)
	b := openItem(f.area.ID, "b")
	b.DueAt = t0.AddDate(0, 0, 5)
	b, err = s.AddItem(ctx, b)
	require.NoError(t, err)

	entries := []models.ReviewEntry{
		{ID: "r1", ItemID: a.ID, ReviewedAt: t0.AddDate(0, 0, -10), Correct: true, Quality: 3, TimeSpent: 1500 * time.Millisecond, Variant: models.VariantOpen},
		{ID: "r2", ItemID: a.ID, ReviewedAt: t0.AddDate(0, 0, -2), Correct: false, Quality: 1, Answer: "nope", Variant: models.VariantOpen},
		{ID: "r3", ItemID: a.ID, ReviewedAt: t0.Add(-time.Hour), Correct: false, Quality: 2, Variant: models.VariantOpen},
		{ID: "r4", ItemID: b.ID, ReviewedAt: t0.Add(-time.Minute), Correct: true, Quality: 3, Variant: models.VariantOpen},
	}
	for _, e := range entries {
		require.NoError(t, s.AppendReviewHistory(ctx, e))
	}
	require.NoError(t, s.UpsertMistake(ctx, a.ID, "user answer: nope"))

	hist, err := s.History(ctx, a.ID, 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "r3", hist[0].ID)
	assert.Equal(t, "r2", hist[1].ID)
	assert.Equal(t, "nope", hist[1].Answer)

	hist, err = s.History(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, hist[2].TimeSpent)
	assert.True(t, hist[2].Correct)

	totals, err := s.ReviewTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewTotals{Total: 4, Correct: 2}, totals)

	stats, err := s.ReviewStats(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalItems)
	assert.Equal(t, 4, stats.TotalReviews)
	assert.Equal(t, 2, stats.ReviewsToday)
	assert.Equal(t, 3, stats.ReviewsLast7Days)
	assert.InDelta(t, 2.25, stats.AverageQuality, 1e-9)
	assert.InDelta(t, 50.0, stats.CorrectRate, 1e-9)
	assert.Equal(t, 1, stats.OpenMistakes)
	assert.Equal(t, 1, stats.Due)
	assert.Equal(t, 0, stats.Mastered)
	assert.Equal(t, map[models.Variant]int{models.VariantOpen: 2}, stats.CountByVariant)
}

func TestEmptyStats(t *testing.T) {
	s := newTestStore(t)

	totals, err := s.ReviewTotals(context.Background())
	require.NoError(t, err)
	assert.Zero(t, totals)

	stats, err := s.ReviewStats(context.Background(), t0)
	require.NoError(t, err)
	assert.Zero(t, stats.CorrectRate)
	assert.Zero(t, stats.AverageQuality)
	assert.Empty(t, stats.CountByVariant)
}

func TestImportLegacyProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.db")

	legacy, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = legacy.Exec(`
		CREATE TABLE problems (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			url TEXT,
			notes TEXT,
			difficulty INTEGER NOT NULL,
			interval INTEGER DEFAULT 1,
			ease_factor REAL DEFAULT 2.5,
			last_reviewed DATE NOT NULL,
			next_review DATE NOT NULL
		);
		CREATE TABLE tags (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT UNIQUE NOT NULL);
		CREATE TABLE problem_tags (problem_id INTEGER, tag_id INTEGER, PRIMARY KEY (problem_id, tag_id));
	`)
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO problems (name, url, notes, difficulty, interval, ease_factor, last_reviewed, next_review)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, "two-sum", "https://example.com/two-sum", "hash map", 2, 6, 2.6, t0, t0.AddDate(0, 0, 6))
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO tags (name) VALUES ('array'); INSERT INTO problem_tags VALUES (1, 1);`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	for i := 0; i < 2; i++ {
		s, err := Open(path)
		require.NoError(t, err)

		items, err := s.AllItems(context.Background())
		require.NoError(t, err)
		require.Len(t, items, 1, "imported exactly once")
		it := items[0]
		assert.Equal(t, "two-sum", it.Prompt)
		assert.Equal(t, "https://example.com/two-sum", it.Answer)
		assert.Equal(t, "hash map", it.Note)
		assert.Equal(t, []string{"array"}, it.Tags)
		assert.Equal(t, 6, it.Interval)
		assert.Equal(t, 2.6, it.Ease)
		assert.True(t, it.DueAt.Equal(t0.AddDate(0, 0, 6)))

		kb, err := s.ResolveBase(context.Background(), LegacyBaseName)
		require.NoError(t, err)
		assert.Equal(t, kb.ID, it.KnowledgeBaseID)
		require.NoError(t, s.Close())
	}
}
