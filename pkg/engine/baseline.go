package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/erichter2018/MosaicTools-sub001/pkg/scrape"
)

// cleanTemplateMaxLen is the report length above which the live text no
// longer looks like an unmodified template: dictation or auto-processing has
// already altered it, so immediate capture is pointless.
const cleanTemplateMaxLen = 2500

// captureAttemptBudget is how many armed ticks the manager waits for an
// immediate capture before falling back to the historical template store.
// Roughly two seconds at the hunt poll rate.
const captureAttemptBudget = 4

// TemplateSource is the historical per-description template store consumed
// by the baseline manager.
type TemplateSource interface {
	// SaveObserved persists a live-captured template at reduced weight
	// (it was auto-drafted, not curated).
	SaveObserved(ctx context.Context, description, body string) error

	// Lookup returns the best stored template for a description.
	Lookup(ctx context.Context, description string) (string, bool, error)
}

// BaselineManager tries to capture an unmodified template snapshot of the
// report within a short window after a study opens, for later diff
// highlighting. One instance serves the engine; its state is scoped to the
// study it was armed for.
type BaselineManager struct {
	tracker *Tracker
	store   TemplateSource
	log     *zap.Logger

	armed    bool
	armedFor string
	attempts int
}

// NewBaselineManager creates a disarmed manager. store may be nil, in which
// case the fallback path is unavailable and misses are final.
func NewBaselineManager(tracker *Tracker, store TemplateSource, log *zap.Logger) *BaselineManager {
	return &BaselineManager{tracker: tracker, store: store, log: log}
}

// Arm starts a capture window for the given accession.
func (m *BaselineManager) Arm(accession string) {
	m.armed = true
	m.armedFor = accession
	m.attempts = 0
}

// Disarm abandons the current capture window.
func (m *BaselineManager) Disarm() {
	m.armed = false
	m.armedFor = ""
	m.attempts = 0
}

// Armed reports whether a capture window is open.
func (m *BaselineManager) Armed() bool {
	return m.armed
}

// Step evaluates one tick of the capture window. Called by the engine's
// reconciliation pass after the lifecycle step, with the same snapshot.
func (m *BaselineManager) Step(ctx context.Context, obs scrape.Snapshot) {
	if !m.armed {
		return
	}

	sess, ok := m.tracker.Current()
	if !ok || sess.Accession != m.armedFor {
		m.Disarm()
		return
	}

	text := obs.ReportText

	if obs.Drafted {
		if text != "" && m.attempts <= 1 && len(text) < cleanTemplateMaxLen {
			m.captureLive(ctx, sess, text, true)
			return
		}
		if text != "" && len(text) >= cleanTemplateMaxLen {
			// Dictation already occurred; skip ahead to the fallback path.
			m.attempts = captureAttemptBudget - 1
		}
	} else if hasImpression(text) {
		// Report is generated top-to-bottom; a non-empty impression section
		// signals the template phase is complete.
		m.captureLive(ctx, sess, text, false)
		return
	}

	m.attempts++
	if m.attempts >= captureAttemptBudget {
		m.fallback(ctx, sess)
	}
}

// captureLive stores the live text as the baseline and disarms. Drafted
// captures are also persisted to the historical store at reduced weight.
func (m *BaselineManager) captureLive(ctx context.Context, sess Session, text string, drafted bool) {
	m.tracker.SetBaseline(sess.Accession, text, false)
	m.log.Info("baseline captured",
		zap.String("accession", sess.Accession),
		zap.Int("length", len(text)),
		zap.Bool("drafted", drafted))

	if drafted && m.store != nil && sess.Description != "" {
		if err := m.store.SaveObserved(ctx, sess.Description, text); err != nil {
			m.log.Warn("persist observed template failed",
				zap.String("description", sess.Description), zap.Error(err))
		}
	}
	m.Disarm()
}

// fallback looks up a historical template by description. A fallback
// baseline is section-scoped: diff highlighting must be restricted to the
// report subset the stored template actually covers.
func (m *BaselineManager) fallback(ctx context.Context, sess Session) {
	defer m.Disarm()

	if m.store == nil || sess.Description == "" {
		m.log.Info("baseline capture window missed, no fallback available",
			zap.String("accession", sess.Accession))
		return
	}

	body, found, err := m.store.Lookup(ctx, sess.Description)
	if err != nil {
		m.log.Warn("template fallback lookup failed",
			zap.String("description", sess.Description), zap.Error(err))
		return
	}
	if !found {
		m.log.Info("no historical template for description",
			zap.String("description", sess.Description))
		return
	}

	m.tracker.SetBaseline(sess.Accession, body, true)
	m.log.Info("baseline restored from template store",
		zap.String("accession", sess.Accession),
		zap.String("description", sess.Description))
}

// hasImpression reports whether the report's impression section exists and
// has content after its header.
func hasImpression(text string) bool {
	upper := strings.ToUpper(text)
	idx := strings.Index(upper, "IMPRESSION:")
	if idx < 0 {
		return false
	}
	rest := text[idx+len("IMPRESSION:"):]
	return strings.TrimSpace(rest) != ""
}
