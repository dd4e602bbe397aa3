package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/LavenderBridge/recall/internal/models"
)

// AppendReviewHistory stores one grading event.
func (s *Store) AppendReviewHistory(ctx context.Context, e models.ReviewEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, item_id, reviewed_at, correct, quality, time_spent_ms, answer, variant)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ItemID, e.ReviewedAt.UTC(), e.Correct, e.Quality, e.TimeSpent.Milliseconds(), e.Answer, string(e.Variant),
	)
	return err
}

// History returns the latest reviews of an item, newest first.
func (s *Store) History(ctx context.Context, itemID string, limit int) ([]models.ReviewEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, reviewed_at, correct, quality, time_spent_ms, answer, variant
		FROM reviews
		WHERE item_id = ?
		ORDER BY reviewed_at DESC
		LIMIT ?`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ReviewEntry
	for rows.Next() {
		var r models.ReviewEntry
		var spent int64
		var answer, variant sql.NullString
		if err := rows.Scan(&r.ID, &r.ItemID, &r.ReviewedAt, &r.Correct, &r.Quality, &spent, &answer, &variant); err != nil {
			return nil, err
		}
		r.TimeSpent = time.Duration(spent) * time.Millisecond
		r.Answer = answer.String
		r.Variant = models.Variant(variant.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReviewTotals counts all graded reviews and the correct ones.
func (s *Store) ReviewTotals(ctx context.Context) (models.ReviewTotals, error) {
	var t models.ReviewTotals
	var correct sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), SUM(correct) FROM reviews`).Scan(&t.Total, &correct)
	t.Correct = int(correct.Int64)
	return t, err
}

// ReviewStats summarizes the store as of now.
func (s *Store) ReviewStats(ctx context.Context, now time.Time) (*models.ReviewStats, error) {
	stats := &models.ReviewStats{
		CountByVariant: make(map[models.Variant]int),
	}
	now = now.UTC()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	counts := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&stats.TotalItems, "SELECT COUNT(*) FROM items", nil},
		{&stats.TotalReviews, "SELECT COUNT(*) FROM reviews", nil},
		{&stats.ReviewsToday, "SELECT COUNT(*) FROM reviews WHERE reviewed_at >= ?", []any{today}},
		{&stats.ReviewsLast7Days, "SELECT COUNT(*) FROM reviews WHERE reviewed_at >= ?", []any{now.AddDate(0, 0, -7)}},
		{&stats.OpenMistakes, "SELECT COUNT(*) FROM mistakes WHERE resolved = 0", nil},
		{&stats.Due, "SELECT COUNT(*) FROM items WHERE due_at <= ?", []any{now}},
		{&stats.Mastered, "SELECT COUNT(*) FROM items WHERE review_count >= 5 AND correct_count >= 0.8 * review_count", nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	var avg sql.NullFloat64
	var correct sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT AVG(quality), SUM(correct) FROM reviews").Scan(&avg, &correct); err != nil {
		return nil, err
	}
	stats.AverageQuality = avg.Float64
	if stats.TotalReviews > 0 {
		stats.CorrectRate = float64(correct.Int64) * 100 / float64(stats.TotalReviews)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT variant, COUNT(*) FROM items GROUP BY variant")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var variant string
		var n int
		if err := rows.Scan(&variant, &n); err != nil {
			return nil, err
		}
		stats.CountByVariant[models.Variant(variant)] = n
	}
	return stats, rows.Err()
}
