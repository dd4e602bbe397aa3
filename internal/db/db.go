package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/LavenderBridge/recall/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = models.ErrNotFound

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is the sqlite knowledge store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and brings its
// schema up to date.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("cannot create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One connection: sqlite has a single writer, and every connection to
	// :memory: would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS knowledge_bases (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS areas (
		id TEXT PRIMARY KEY,
		knowledge_base_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (knowledge_base_id, name),
		FOREIGN KEY (knowledge_base_id) REFERENCES knowledge_bases(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		knowledge_base_id TEXT NOT NULL,
		area_id TEXT NOT NULL,
		prompt TEXT NOT NULL,
		variant TEXT NOT NULL,
		answer TEXT,
		explanation TEXT,
		options TEXT,
		correct_labels TEXT,
		selection TEXT,
		note TEXT,
		tags TEXT,
		difficulty INTEGER NOT NULL DEFAULT 3,
		ease_factor REAL NOT NULL DEFAULT 2.5,
		interval INTEGER NOT NULL DEFAULT 1,
		due_at DATETIME NOT NULL,
		review_count INTEGER NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0,
		last_reviewed DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (knowledge_base_id) REFERENCES knowledge_bases(id) ON DELETE CASCADE,
		FOREIGN KEY (area_id) REFERENCES areas(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_items_area ON items(area_id);
	CREATE INDEX IF NOT EXISTS idx_items_base ON items(knowledge_base_id);

	CREATE TABLE IF NOT EXISTS mistakes (
		id TEXT PRIMARY KEY,
		item_id TEXT UNIQUE NOT NULL,
		count INTEGER NOT NULL,
		first_mistake_at DATETIME NOT NULL,
		last_mistake_at DATETIME NOT NULL,
		reasons TEXT,
		resolved INTEGER NOT NULL DEFAULT 0,
		resolved_at DATETIME,
		FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		reviewed_at DATETIME NOT NULL,
		correct INTEGER NOT NULL,
		quality INTEGER NOT NULL,
		time_spent_ms INTEGER NOT NULL DEFAULT 0,
		answer TEXT,
		variant TEXT,
		FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_item ON reviews(item_id);
	`
	if _, err := db.Exec(query); err != nil {
		return err
	}

	if err := importLegacyProblems(db); err != nil {
		return fmt.Errorf("import legacy problems: %w", err)
	}
	return nil
}

// --- knowledge bases and areas ---

// AddKnowledgeBase creates a knowledge base with a unique name.
func (s *Store) AddKnowledgeBase(ctx context.Context, name, description string) (models.KnowledgeBase, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.KnowledgeBase{}, errors.New("knowledge base name is required")
	}
	kb := models.KnowledgeBase{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge_bases (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		kb.ID, kb.Name, kb.Description, kb.CreatedAt,
	)
	if err != nil {
		return models.KnowledgeBase{}, fmt.Errorf("add knowledge base %q: %w", name, err)
	}
	return kb, nil
}

// AddArea creates an area inside an existing knowledge base.
func (s *Store) AddArea(ctx context.Context, baseID, name string) (models.Area, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Area{}, errors.New("area name is required")
	}
	if _, err := s.knowledgeBase(ctx, baseID); err != nil {
		return models.Area{}, err
	}
	a := models.Area{
		ID:              uuid.NewString(),
		KnowledgeBaseID: baseID,
		Name:            name,
		CreatedAt:       s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO areas (id, knowledge_base_id, name, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.KnowledgeBaseID, a.Name, a.CreatedAt,
	)
	if err != nil {
		return models.Area{}, fmt.Errorf("add area %q: %w", name, err)
	}
	return a, nil
}

// ListBases returns every knowledge base with its areas, by name.
func (s *Store) ListBases(ctx context.Context) ([]models.KnowledgeBase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM knowledge_bases ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var bases []models.KnowledgeBase
	for rows.Next() {
		var kb models.KnowledgeBase
		var desc sql.NullString
		if err := rows.Scan(&kb.ID, &kb.Name, &desc, &kb.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		kb.Description = desc.String
		bases = append(bases, kb)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	areas, err := s.areas(ctx, `SELECT id, knowledge_base_id, name, created_at FROM areas ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	byBase := make(map[string][]models.Area)
	for _, a := range areas {
		byBase[a.KnowledgeBaseID] = append(byBase[a.KnowledgeBaseID], a)
	}
	for i := range bases {
		bases[i].Areas = byBase[bases[i].ID]
	}
	return bases, nil
}

// ResolveBase finds a knowledge base by id or name.
func (s *Store) ResolveBase(ctx context.Context, ref string) (models.KnowledgeBase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM knowledge_bases WHERE id = ? OR name = ? LIMIT 1`, ref, ref)
	var kb models.KnowledgeBase
	var desc sql.NullString
	if err := row.Scan(&kb.ID, &kb.Name, &desc, &kb.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return kb, fmt.Errorf("knowledge base %q: %w", ref, ErrNotFound)
		}
		return kb, err
	}
	kb.Description = desc.String
	return kb, nil
}

// ResolveArea finds an area by id, or by name when the name is unique.
func (s *Store) ResolveArea(ctx context.Context, ref string) (models.Area, error) {
	areas, err := s.areas(ctx,
		`SELECT id, knowledge_base_id, name, created_at FROM areas WHERE id = ? OR name = ? ORDER BY id`, ref, ref)
	if err != nil {
		return models.Area{}, err
	}
	for _, a := range areas {
		if a.ID == ref {
			return a, nil
		}
	}
	switch len(areas) {
	case 0:
		return models.Area{}, fmt.Errorf("area %q: %w", ref, ErrNotFound)
	case 1:
		return areas[0], nil
	}
	return models.Area{}, fmt.Errorf("area name %q is ambiguous (%d matches); use the area id", ref, len(areas))
}

func (s *Store) knowledgeBase(ctx context.Context, id string) (models.KnowledgeBase, error) {
	var kb models.KnowledgeBase
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM knowledge_bases WHERE id = ?`, id,
	).Scan(&kb.ID, &kb.Name, &desc, &kb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return kb, fmt.Errorf("knowledge base %s: %w", id, ErrNotFound)
	}
	kb.Description = desc.String
	return kb, err
}

func (s *Store) areas(ctx context.Context, query string, args ...any) ([]models.Area, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Area
	for rows.Next() {
		var a models.Area
		if err := rows.Scan(&a.ID, &a.KnowledgeBaseID, &a.Name, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}
