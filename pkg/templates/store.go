// Package templates provides the historical per-description template store.
// Baselines captured live from auto-drafted reports are saved here at
// reduced weight so a later study with the same description can fall back to
// them when its own capture window is missed.
package templates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Weights for stored templates. Observed captures rank below curated
// entries because auto-drafting may already have touched them.
const (
	WeightObserved = 0.5
	WeightCurated  = 1.0
)

// Template is one stored baseline.
type Template struct {
	ID          int64
	Description string
	Body        string
	Weight      float64
	CreatedAt   string
}

// Store manages the templates table in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given SQLite database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save inserts a template with an explicit weight.
func (s *Store) Save(ctx context.Context, description, body string, weight float64) error {
	if description == "" {
		return fmt.Errorf("template description is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO templates (description, body, weight) VALUES (?, ?, ?)`,
		description, body, weight)
	if err != nil {
		return fmt.Errorf("template insert: %w", err)
	}
	return nil
}

// SaveObserved persists a live-captured template at the observed weight.
func (s *Store) SaveObserved(ctx context.Context, description, body string) error {
	return s.Save(ctx, description, body, WeightObserved)
}

// Lookup returns the best stored template body for a description: highest
// weight first, newest row breaking ties.
func (s *Store) Lookup(ctx context.Context, description string) (string, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM templates WHERE description = ?
		 ORDER BY weight DESC, id DESC LIMIT 1`,
		description).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("template lookup: %w", err)
	}
	return body, true, nil
}

// Get returns the best full template row for a description.
func (s *Store) Get(ctx context.Context, description string) (Template, bool, error) {
	var t Template
	err := s.db.QueryRowContext(ctx,
		`SELECT id, description, body, weight, created_at FROM templates
		 WHERE description = ? ORDER BY weight DESC, id DESC LIMIT 1`,
		description).Scan(&t.ID, &t.Description, &t.Body, &t.Weight, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, false, nil
	}
	if err != nil {
		return Template{}, false, fmt.Errorf("template get: %w", err)
	}
	return t, true, nil
}

// List returns one row per distinct description (the best one), newest
// descriptions first.
func (s *Store) List(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, body, weight, created_at FROM templates t
		 WHERE id = (SELECT id FROM templates
		             WHERE description = t.description
		             ORDER BY weight DESC, id DESC LIMIT 1)
		 ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("template list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Description, &t.Body, &t.Weight, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}
