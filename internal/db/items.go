package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LavenderBridge/recall/internal/models"
)

const itemColumns = `id, knowledge_base_id, area_id, prompt, variant, answer, explanation,
	options, correct_labels, selection, note, tags, difficulty, ease_factor, interval,
	due_at, review_count, correct_count, last_reviewed, created_at, updated_at`

// AddItem stores a new item in an existing area. The caller seeds its
// scheduling fields.
func (s *Store) AddItem(ctx context.Context, it models.Item) (models.Item, error) {
	if err := s.checkPlacement(ctx, &it); err != nil {
		return models.Item{}, err
	}
	if err := ValidateItem(it); err != nil {
		return models.Item{}, err
	}

	now := s.now().UTC()
	it.ID = uuid.NewString()
	it.CreatedAt = now
	it.UpdatedAt = now
	if it.DueAt.IsZero() {
		it.DueAt = now
	}

	opts, labels, tags, err := encodeItemLists(it)
	if err != nil {
		return models.Item{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.KnowledgeBaseID, it.AreaID, it.Prompt, string(it.Variant), it.Answer, it.Explanation,
		opts, labels, string(it.Selection), it.Note, tags, it.Difficulty, it.Ease, it.Interval,
		it.DueAt.UTC(), it.ReviewCount, it.CorrectCount, nullTime(it.LastReviewed), it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return models.Item{}, fmt.Errorf("add item: %w", err)
	}
	return it, nil
}

// checkPlacement makes sure the area exists and fills in its base.
func (s *Store) checkPlacement(ctx context.Context, it *models.Item) error {
	var baseID string
	err := s.db.QueryRowContext(ctx, `SELECT knowledge_base_id FROM areas WHERE id = ?`, it.AreaID).Scan(&baseID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("area %q: %w", it.AreaID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if it.KnowledgeBaseID != "" && it.KnowledgeBaseID != baseID {
		return fmt.Errorf("area %s does not belong to knowledge base %s", it.AreaID, it.KnowledgeBaseID)
	}
	it.KnowledgeBaseID = baseID
	return nil
}

// ValidateItem checks the shape of an item's content.
func ValidateItem(it models.Item) error {
	if strings.TrimSpace(it.Prompt) == "" {
		return errors.New("item prompt is required")
	}
	if it.Difficulty < 0 || it.Difficulty > 5 {
		return fmt.Errorf("difficulty must be between 1 and 5, got %d", it.Difficulty)
	}
	switch it.Variant {
	case models.VariantOpen:
		return nil
	case models.VariantChoice:
		if len(it.Options) < 2 {
			return errors.New("a choice item needs at least two options")
		}
		if len(it.CorrectLabels) == 0 {
			return errors.New("a choice item needs at least one correct label")
		}
		for _, l := range it.CorrectLabels {
			if _, ok := it.OptionText(l); !ok {
				return fmt.Errorf("correct label %q is not an option", l)
			}
		}
		if len(it.CorrectLabels) > 1 && it.Selection == models.SelectSingle {
			return errors.New("a single-selection item has one correct label")
		}
		return nil
	}
	return fmt.Errorf("unknown item variant %q", it.Variant)
}

// UpdateItemDetails rewrites an item's content. Scheduling state is left alone.
func (s *Store) UpdateItemDetails(ctx context.Context, it models.Item) error {
	if err := ValidateItem(it); err != nil {
		return err
	}
	opts, labels, tags, err := encodeItemLists(it)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET prompt=?, variant=?, answer=?, explanation=?, options=?, correct_labels=?,
			selection=?, note=?, tags=?, difficulty=?, updated_at=?
		WHERE id=?`,
		it.Prompt, string(it.Variant), it.Answer, it.Explanation, opts, labels,
		string(it.Selection), it.Note, tags, it.Difficulty, s.now().UTC(), it.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, "item", it.ID)
}

// DeleteItem removes an item with its mistakes and review history.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res, "item", id)
}

// UpdateItemScheduling writes the result of a graded review.
func (s *Store) UpdateItemScheduling(ctx context.Context, id string, u models.SchedulingUpdate) error {
	reviewed := u.ReviewedAt.UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET ease_factor=?, interval=?, due_at=?, review_count=?, correct_count=?, last_reviewed=?, updated_at=?
		WHERE id=?`,
		u.Ease, u.Interval, u.DueAt.UTC(), u.ReviewCount, u.CorrectCount, reviewed, reviewed, id,
	)
	if err != nil {
		return err
	}
	return expectOne(res, "item", id)
}

func (s *Store) ItemByID(ctx context.Context, id string) (models.Item, error) {
	items, err := s.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	if err != nil {
		return models.Item{}, err
	}
	if len(items) == 0 {
		return models.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return items[0], nil
}

func (s *Store) AllItems(ctx context.Context) ([]models.Item, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at, id`)
}

func (s *Store) ItemsByKnowledgeBase(ctx context.Context, baseID string) ([]models.Item, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE knowledge_base_id = ? ORDER BY created_at, id`, baseID)
}

func (s *Store) ItemsByArea(ctx context.Context, areaID string) ([]models.Item, error) {
	return s.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE area_id = ? ORDER BY created_at, id`, areaID)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (models.Item, error) {
	var it models.Item
	var variant string
	var answer, explanation, opts, labels, selection, note, tags sql.NullString
	var last sql.NullTime
	err := row.Scan(
		&it.ID, &it.KnowledgeBaseID, &it.AreaID, &it.Prompt, &variant, &answer, &explanation,
		&opts, &labels, &selection, &note, &tags, &it.Difficulty, &it.Ease, &it.Interval,
		&it.DueAt, &it.ReviewCount, &it.CorrectCount, &last, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return it, err
	}
	it.Variant = models.Variant(variant)
	it.Answer = answer.String
	it.Explanation = explanation.String
	it.Selection = models.SelectionMode(selection.String)
	it.Note = note.String
	if last.Valid {
		t := last.Time
		it.LastReviewed = &t
	}
	if err := decodeJSON(opts, &it.Options); err != nil {
		return it, fmt.Errorf("item %s options: %w", it.ID, err)
	}
	if err := decodeJSON(labels, &it.CorrectLabels); err != nil {
		return it, fmt.Errorf("item %s correct labels: %w", it.ID, err)
	}
	if err := decodeJSON(tags, &it.Tags); err != nil {
		return it, fmt.Errorf("item %s tags: %w", it.ID, err)
	}
	return it, nil
}

func encodeItemLists(it models.Item) (opts, labels, tags sql.NullString, err error) {
	if opts, err = encodeJSON(it.Options); err != nil {
		return
	}
	if labels, err = encodeJSON(it.CorrectLabels); err != nil {
		return
	}
	tags, err = encodeJSON(it.Tags)
	return
}

// encodeJSON stores empty slices as NULL.
func encodeJSON[T any](v []T) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON[T any](s sql.NullString, dst *[]T) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}

func expectOne(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
