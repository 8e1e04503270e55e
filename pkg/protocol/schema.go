package protocol

// SchemaDDL defines the SQLite schema for the mosaicd runtime database.
// Tables: events, templates, critical_studies.
// Execute against a SQLite database with: db.Exec(SchemaDDL)
const SchemaDDL = `
-- Runtime event log: lifecycle transitions, action outcomes, emitter publishes
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY,
    type TEXT NOT NULL,
    source TEXT NOT NULL,
    accession TEXT,
    payload TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Historical per-description baseline templates. Live captures of auto-drafted
-- reports are stored at a lower weight than curated entries; lookup prefers
-- the highest weight, then the newest row.
CREATE TABLE IF NOT EXISTS templates (
    id INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    body TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 0.5,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS templates_description ON templates(description);

-- Critical findings review list. Rows are appended when a critical note is
-- created and removed when the user deals with the study.
CREATE TABLE IF NOT EXISTS critical_studies (
    id INTEGER PRIMARY KEY,
    accession TEXT NOT NULL,
    patient_name TEXT,
    site_code TEXT,
    description TEXT,
    mrn TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS critical_studies_accession ON critical_studies(accession);
`
