package engine

import (
	"sync"

	"go.uber.org/zap"
)

// Feature identifies one of the independently-triggered async insertion
// features the completion gate waits on.
type Feature string

const (
	FeatureMacros  Feature = "macros"
	FeatureAutoFix Feature = "autofix"
)

// Gate holds the trailing bulk-select action until every enabled insertion
// feature has reported completion for the current accession. "Completion"
// includes the nothing-applied case: the decision was made either way.
type Gate struct {
	mu sync.Mutex

	accession string
	eligible  bool

	macrosEnabled  bool
	autofixEnabled bool

	macrosComplete  bool
	autofixComplete bool
	finalActionSent bool

	fire func(accession string)
	log  *zap.Logger
}

// NewGate creates a Gate. fire submits the trailing action; it runs at most
// once per accession.
func NewGate(macrosEnabled, autofixEnabled bool, fire func(accession string), log *zap.Logger) *Gate {
	return &Gate{
		macrosEnabled:  macrosEnabled,
		autofixEnabled: autofixEnabled,
		fire:           fire,
		log:            log,
	}
}

// SetEnabled updates the feature toggles (config hot reload). Toggles apply
// from the next Reset; the in-flight accession keeps its arming.
func (g *Gate) SetEnabled(macros, autofix bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.macrosEnabled = macros
	g.autofixEnabled = autofix
}

// Reset re-arms the gate for a new accession. All completion state clears,
// including the fired latch.
func (g *Gate) Reset(accession string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accession = accession
	g.eligible = false
	g.macrosComplete = false
	g.autofixComplete = false
	g.finalActionSent = false
}

// SetEligible records whether the current study qualifies under the gate's
// inclusion policy (a drafted study matching the configured criteria).
// Eligibility can arrive after feature completions; the gate re-checks.
func (g *Gate) SetEligible(accession string, eligible bool) {
	g.mu.Lock()
	if g.accession != accession {
		g.mu.Unlock()
		return
	}
	g.eligible = eligible
	g.mu.Unlock()

	if eligible {
		g.check(accession)
	}
}

// MarkComplete records that a feature finished for the given accession.
// Idempotent: repeated calls for the same feature have no further effect,
// and the trailing action still fires exactly once.
func (g *Gate) MarkComplete(feature Feature, accession string) {
	g.mu.Lock()
	if g.accession != accession {
		// Stale completion from a study that is no longer current.
		g.mu.Unlock()
		return
	}
	switch feature {
	case FeatureMacros:
		g.macrosComplete = true
	case FeatureAutoFix:
		g.autofixComplete = true
	}
	g.mu.Unlock()

	g.check(accession)
}

// check fires the trailing action if every enabled feature is complete, the
// study is eligible, and the latch is clear. A gate with no enabled
// features never fires.
func (g *Gate) check(accession string) {
	g.mu.Lock()
	ready := g.accession == accession &&
		g.eligible &&
		!g.finalActionSent &&
		(g.macrosEnabled || g.autofixEnabled) &&
		(!g.macrosEnabled || g.macrosComplete) &&
		(!g.autofixEnabled || g.autofixComplete)
	if ready {
		g.finalActionSent = true
	}
	g.mu.Unlock()

	if ready {
		g.log.Info("completion gate firing", zap.String("accession", accession))
		g.fire(accession)
	}
}

// FinalActionSent reports whether the trailing action fired for the current
// accession.
func (g *Gate) FinalActionSent() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finalActionSent
}
