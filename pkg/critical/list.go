// Package critical maintains the review list of studies for which a
// critical findings note was created. Entries are append-only and removed
// when the user explicitly deals with the study.
package critical

import (
	"context"
	"database/sql"
	"fmt"
)

// Entry is one tracked critical study.
type Entry struct {
	ID          int64
	Accession   string
	PatientName string
	SiteCode    string
	Description string
	MRN         string
	CreatedAt   string
}

// List manages the critical_studies table in SQLite.
type List struct {
	db *sql.DB
}

// NewList creates a List backed by the given SQLite database.
func NewList(db *sql.DB) *List {
	return &List{db: db}
}

// Add appends an entry. Duplicate accessions are allowed at this layer; the
// engine's sticky critical flag prevents duplicate note creation upstream.
func (l *List) Add(ctx context.Context, e Entry) error {
	if e.Accession == "" {
		return fmt.Errorf("critical entry accession is empty")
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO critical_studies (accession, patient_name, site_code, description, mrn)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Accession, e.PatientName, e.SiteCode, e.Description, e.MRN)
	if err != nil {
		return fmt.Errorf("critical insert: %w", err)
	}
	return nil
}

// Untrack removes every entry for an accession (the user dealt with it).
// Returns the number of rows removed.
func (l *List) Untrack(ctx context.Context, accession string) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM critical_studies WHERE accession = ?`, accession)
	if err != nil {
		return 0, fmt.Errorf("critical untrack: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("critical untrack rows: %w", err)
	}
	return n, nil
}

// Entries returns all tracked studies, newest first.
func (l *List) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, accession, COALESCE(patient_name,''), COALESCE(site_code,''),
		        COALESCE(description,''), COALESCE(mrn,''), created_at
		 FROM critical_studies ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("critical list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Accession, &e.PatientName, &e.SiteCode,
			&e.Description, &e.MRN, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan critical entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate critical entries: %w", err)
	}
	return out, nil
}

// Has reports whether any entry exists for the accession.
func (l *List) Has(ctx context.Context, accession string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM critical_studies WHERE accession = ?`, accession).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("critical has: %w", err)
	}
	return n > 0, nil
}
