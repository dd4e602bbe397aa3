package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	LegacyBaseName = "Imported problems"
	legacyAreaName = "Problems"
)

// importLegacyProblems copies rows of the old single-table problem tracker
// (problems, tags, problem_tags) into a knowledge base of open items, once.
// Scheduling state carries over; the old table is left in place.
func importLegacyProblems(db *sql.DB) error {
	if !tableExists(db, "problems") {
		return nil
	}
	var done int
	if err := db.QueryRow("SELECT COUNT(*) FROM knowledge_bases WHERE name = ?", LegacyBaseName).Scan(&done); err != nil {
		return err
	}
	if done > 0 {
		return nil
	}

	tagsExpr := "''"
	if tableExists(db, "tags") && tableExists(db, "problem_tags") {
		tagsExpr = `(SELECT GROUP_CONCAT(t.name) FROM tags t JOIN problem_tags pt ON t.id = pt.tag_id WHERE pt.problem_id = p.id)`
	}
	rows, err := db.Query(`
		SELECT p.name, p.url, p.notes, p.difficulty, p.interval, p.ease_factor, p.last_reviewed, p.next_review, ` + tagsExpr + `
		FROM problems p ORDER BY p.id`)
	if err != nil {
		return err
	}

	type legacyProblem struct {
		Name, URL, Notes string
		Difficulty       int
		Interval         int
		EaseFactor       float64
		LastReviewed     sql.NullTime
		NextReview       time.Time
		Tags             []string
	}
	var problems []legacyProblem
	for rows.Next() {
		var p legacyProblem
		var url, notes, tags sql.NullString
		if err := rows.Scan(&p.Name, &url, &notes, &p.Difficulty, &p.Interval, &p.EaseFactor, &p.LastReviewed, &p.NextReview, &tags); err != nil {
			rows.Close()
			return err
		}
		p.URL, p.Notes = url.String, notes.String
		if tags.String != "" {
			p.Tags = strings.Split(tags.String, ",")
		}
		problems = append(problems, p)
	}
	if err := closeRows(rows); err != nil {
		return err
	}
	if len(problems) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	baseID, areaID := uuid.NewString(), uuid.NewString()
	if _, err := tx.Exec(`INSERT INTO knowledge_bases (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		baseID, LegacyBaseName, "Problems tracked by earlier versions of recall", now); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO areas (id, knowledge_base_id, name, created_at) VALUES (?, ?, ?, ?)`,
		areaID, baseID, legacyAreaName, now); err != nil {
		return err
	}

	for i, p := range problems {
		tags, err := encodeJSON(p.Tags)
		if err != nil {
			return err
		}
		var last any
		if p.LastReviewed.Valid && p.LastReviewed.Time.After(time.Unix(0, 0)) {
			last = p.LastReviewed.Time.UTC()
		}
		// Keep import order stable under the sequential sorter.
		created := now.Add(time.Duration(i) * time.Millisecond)
		_, err = tx.Exec(`
			INSERT INTO items (`+itemColumns+`)
			VALUES (?, ?, ?, ?, 'open', ?, '', NULL, NULL, '', ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?)`,
			uuid.NewString(), baseID, areaID, p.Name, p.URL, p.Notes, tags,
			p.Difficulty, p.EaseFactor, max(p.Interval, 1), p.NextReview.UTC(), last, created, created,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func tableExists(db *sql.DB, name string) bool {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	return err == nil && n > 0
}
