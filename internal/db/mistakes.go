package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/LavenderBridge/recall/internal/models"
)

const mistakeColumns = `m.id, m.item_id, m.count, m.first_mistake_at, m.last_mistake_at, m.reasons, m.resolved, m.resolved_at`

// UpsertMistake records an incorrect answer: the first one creates the
// record, later ones bump its count and append the reason.
func (s *Store) UpsertMistake(ctx context.Context, itemID, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now().UTC()
	var id string
	var reasons sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT id, reasons FROM mistakes WHERE item_id = ?`, itemID).Scan(&id, &reasons)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		list, err := encodeJSON([]string{reason})
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO mistakes (id, item_id, count, first_mistake_at, last_mistake_at, reasons, resolved)
			VALUES (?, ?, 1, ?, ?, ?, 0)`,
			uuid.NewString(), itemID, now, now, list,
		)
		if err != nil {
			return fmt.Errorf("record mistake for item %s: %w", itemID, err)
		}
	case err != nil:
		return err
	default:
		var list []string
		if err := decodeJSON(reasons, &list); err != nil {
			return err
		}
		encoded, err := encodeJSON(append(list, reason))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE mistakes SET count = count + 1, last_mistake_at = ?, reasons = ?
			WHERE id = ?`,
			now, encoded, id,
		)
		if err != nil {
			return fmt.Errorf("record mistake for item %s: %w", itemID, err)
		}
	}
	return tx.Commit()
}

// Mistakes returns the mistake records whose items fall in scope, resolved
// ones included, most recent first.
func (s *Store) Mistakes(ctx context.Context, scope models.MistakeScope) ([]models.MistakeRecord, error) {
	query := `SELECT ` + mistakeColumns + ` FROM mistakes m JOIN items i ON i.id = m.item_id`
	var args []any
	switch scope.Kind {
	case models.ScopeKnowledgeBase:
		query += ` WHERE i.knowledge_base_id = ?`
		args = append(args, scope.ID)
	case models.ScopeArea:
		query += ` WHERE i.area_id = ?`
		args = append(args, scope.ID)
	}
	query += ` ORDER BY m.last_mistake_at DESC, m.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MistakeRecord
	for rows.Next() {
		var m models.MistakeRecord
		var reasons sql.NullString
		var resolvedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Count, &m.FirstMistakeAt, &m.LastMistakeAt, &reasons, &m.Resolved, &resolvedAt); err != nil {
			return nil, err
		}
		if err := decodeJSON(reasons, &m.Reasons); err != nil {
			return nil, fmt.Errorf("mistake %s reasons: %w", m.ID, err)
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			m.ResolvedAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ResolveMistake marks the mistake of an item as mastered.
func (s *Store) ResolveMistake(ctx context.Context, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mistakes SET resolved = 1, resolved_at = ? WHERE item_id = ? AND resolved = 0`,
		s.now().UTC(), itemID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, "open mistake for item", itemID)
}

// ClearResolved deletes resolved mistakes and reports how many went.
func (s *Store) ClearResolved(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mistakes WHERE resolved = 1`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
