// Package scrape defines the snapshot contract with the host-application
// scraper. The scraper is a black box: every field is a best-effort read and
// may be stale or empty even when the underlying value logically exists.
// Callers must treat empty fields as "unknown this tick", never as facts.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
)

// Snapshot is one observation of the host application's visible state.
type Snapshot struct {
	Accession            string `json:"accession"`
	Description          string `json:"description"`
	TemplateName         string `json:"template_name"`
	PatientName          string `json:"patient_name"`
	PatientGender        string `json:"patient_gender"`
	MRN                  string `json:"mrn"`
	SiteCode             string `json:"site_code"`
	ClarioPriority       string `json:"clario_priority"`
	ClarioClass          string `json:"clario_class"`
	Drafted              bool   `json:"drafted"`
	ReportText           string `json:"report_text"`
	DiscardDialogVisible bool   `json:"discard_dialog_visible"`
}

// Scraper produces snapshots of the host application.
type Scraper interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// CommandRunner abstracts command execution for testability.
// Production implementation uses os/exec; tests provide a mock.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CLIScraper implements Scraper by shelling out to a configured helper
// command that prints a JSON snapshot on stdout.
type CLIScraper struct {
	runner  CommandRunner
	command []string
}

// NewCLIScraper creates a CLIScraper. command is the helper argv; it must
// have at least one element.
func NewCLIScraper(runner CommandRunner, command []string) (*CLIScraper, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("scraper command is empty")
	}
	return &CLIScraper{runner: runner, command: command}, nil
}

// Snapshot runs the helper and parses its output. Unknown JSON fields are
// ignored so the helper can evolve independently.
func (s *CLIScraper) Snapshot(ctx context.Context) (Snapshot, error) {
	out, err := s.runner.Run(ctx, s.command[0], s.command[1:]...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("scrape helper: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(out, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse scrape output: %w", err)
	}
	return snap, nil
}
