// Package store persists the canonical bird, visit, alert, and
// summary records in SQLite. It owns identity: the similarity index
// only ever sees the integer bird ids minted here.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"hummingbird/internal/cache"
	pkgerrors "hummingbird/pkg/errors"
)

const birdCacheSize = 256

// Store manages the monitor's relational records.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	birds *cache.LRU
}

// Open connects to (or creates) the SQLite database at dbPath and
// applies the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, birds: cache.NewLRU(birdCacheSize)}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// CreateBird inserts a new bird row. Name may be empty; first and
// last seen start at now.
func (s *Store) CreateBird(ctx context.Context, name string) (*Bird, error) {
	now := time.Now().UTC()
	ts := formatTime(now)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO birds (name, first_seen, last_seen, total_visits, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, ?)`,
		name, ts, ts, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert bird: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("bird id: %w", err)
	}

	bird := &Bird{
		ID:        id,
		Name:      name,
		FirstSeen: now,
		LastSeen:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.cacheBird(bird)
	return bird, nil
}

// GetBird fetches a bird by id, serving repeat reads from the LRU.
func (s *Store) GetBird(ctx context.Context, id int64) (*Bird, error) {
	s.mu.Lock()
	if cached, ok := s.birds.Get(id); ok {
		s.mu.Unlock()
		b := *(cached.(*Bird))
		return &b, nil
	}
	s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, first_seen, last_seen, total_visits, created_at, updated_at
         FROM birds WHERE id = ?`, id)
	bird, err := scanBird(row)
	if err != nil {
		return nil, err
	}
	s.cacheBird(bird)
	b := *bird
	return &b, nil
}

// ListBirds returns all birds, most recently seen first.
func (s *Store) ListBirds(ctx context.Context) ([]*Bird, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, first_seen, last_seen, total_visits, created_at, updated_at
         FROM birds ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("list birds: %w", err)
	}
	defer rows.Close()

	var birds []*Bird
	for rows.Next() {
		bird, err := scanBird(rows)
		if err != nil {
			return nil, err
		}
		birds = append(birds, bird)
	}
	return birds, rows.Err()
}

// RenameBird updates the display name.
func (s *Store) RenameBird(ctx context.Context, id int64, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE birds SET name = ?, updated_at = ? WHERE id = ?`,
		name, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("rename bird: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrRecordNotFound
	}
	s.invalidateBird(id)
	return nil
}

// TouchBird bumps last_seen and the visit counter after an identified
// visit.
func (s *Store) TouchBird(ctx context.Context, id int64, seenAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE birds SET last_seen = ?, total_visits = total_visits + 1, updated_at = ?
         WHERE id = ?`,
		formatTime(seenAt), formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("touch bird: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrRecordNotFound
	}
	s.invalidateBird(id)
	return nil
}

// DeleteBird removes the bird row. Visits keep their rows with a
// nulled bird_id.
func (s *Store) DeleteBird(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM birds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bird: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrRecordNotFound
	}
	s.invalidateBird(id)
	return nil
}

func (s *Store) cacheBird(b *Bird) {
	s.mu.Lock()
	s.birds.Set(b.ID, b)
	s.mu.Unlock()
}

func (s *Store) invalidateBird(id int64) {
	s.mu.Lock()
	s.birds.Remove(id)
	s.mu.Unlock()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBird(row rowScanner) (*Bird, error) {
	var (
		bird       Bird
		name       sql.NullString
		firstSeen  string
		lastSeen   string
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&bird.ID, &name, &firstSeen, &lastSeen, &bird.TotalVisits, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan bird: %w", err)
	}
	bird.Name = name.String
	bird.FirstSeen = parseTime(firstSeen)
	bird.LastSeen = parseTime(lastSeen)
	bird.CreatedAt = parseTime(createdAt)
	bird.UpdatedAt = parseTime(updatedAt)
	return &bird, nil
}
