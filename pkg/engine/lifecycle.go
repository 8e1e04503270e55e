// Package engine implements the reconciliation core: the state poller, the
// study lifecycle tracker, the baseline capture manager, the notification
// emitter, and the completion gate. The Engine composes them with the serial
// action executor into the mosaicd runtime.
package engine

import (
	"sync"
	"time"

	"github.com/erichter2018/MosaicTools-sub001/pkg/protocol"
	"github.com/erichter2018/MosaicTools-sub001/pkg/scrape"
)

// --- Lifecycle states ---

// SessionState is the lifecycle tracker's operational state.
type SessionState string

// Lifecycle state constants.
const (
	StateNoStudy      SessionState = "no_study"
	StateStudyOpen    SessionState = "study_open"
	StatePendingClose SessionState = "pending_close" // empty accession seen, awaiting debounce
)

// DefaultDebounceTicks is the number of consecutive empty-accession ticks
// required before a closure is treated as real. Two empty ticks are a flap;
// three confirm.
const DefaultDebounceTicks = 3

// Classification of a confirmed study closure.
type Classification string

const (
	ClassSigned   Classification = protocol.EventKindSigned
	ClassUnsigned Classification = protocol.EventKindUnsigned
)

// Session is the per-study mutable state. At most one session is current.
// All mutation goes through Tracker methods; nothing outside this package
// writes these fields.
type Session struct {
	Accession          string
	Description        string
	Signed             bool
	DiscardDialogSeen  bool
	DraftedSeen        bool
	AutoProcessStarted bool
	Processed          bool
	Baseline           string
	BaselineFallback   bool
	OpenedAt           time.Time
}

// --- Events ---

// EventType identifies a lifecycle transition produced by a tick.
type EventType string

const (
	EventStudyOpened EventType = "study_opened"
	EventStudyEnded  EventType = "study_ended"
)

// Event is one lifecycle transition. The tick step function returns events
// instead of performing side effects; the engine acts on them afterwards.
type Event struct {
	Type           EventType
	Accession      string
	Classification Classification // set for EventStudyEnded
	Critical       bool           // set for EventStudyEnded
}

// --- Tracker ---

// Tracker maintains the identity of the currently open study and applies
// flap debounce. Step is the only input; it performs no I/O.
type Tracker struct {
	mu            sync.Mutex
	state         SessionState
	current       *Session
	pendingTicks  int
	debounceTicks int

	// criticalSeen is sticky for the whole process lifetime, per accession.
	// It is deliberately NOT reset when a session closes or reopens: a
	// transient blank read must not allow a duplicate critical note, and a
	// later closure of the same accession must still carry the CRITICAL
	// suffix.
	criticalSeen map[string]bool

	nowFunc func() time.Time
}

// NewTracker creates a Tracker in the NoStudy state.
func NewTracker() *Tracker {
	return &Tracker{
		state:         StateNoStudy,
		debounceTicks: DefaultDebounceTicks,
		criticalSeen:  make(map[string]bool),
		nowFunc:       time.Now,
	}
}

// Step consumes one observation and returns zero or more lifecycle events.
//
// Transition rules, given the observed accession:
//   - unchanged non-empty: no transition, flags updated from the snapshot.
//   - open -> empty: PendingClose, no event yet.
//   - pending + empty: count the tick; the debounce-th consecutive empty
//     tick confirms the closure and emits study_ended.
//   - pending + same accession: flap — cancel silently, back to open.
//   - pending + different accession: end the old study, open the new one.
//     Non-empty to non-empty transitions are trusted without debounce.
//   - no study / open + different non-empty accession: direct transition.
func (t *Tracker) Step(obs scrape.Snapshot) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	acc := obs.Accession

	switch t.state {
	case StateNoStudy:
		if acc == "" {
			return nil
		}
		return []Event{t.open(acc, obs)}

	case StateStudyOpen:
		switch {
		case acc == t.current.Accession:
			t.observe(obs)
			return nil
		case acc == "":
			t.state = StatePendingClose
			t.pendingTicks = 1
			return nil
		default:
			ended := t.endCurrent()
			return []Event{ended, t.open(acc, obs)}
		}

	case StatePendingClose:
		switch {
		case acc == "":
			t.pendingTicks++
			if t.pendingTicks >= t.debounceTicks {
				ended := t.endCurrent()
				t.state = StateNoStudy
				t.current = nil
				t.pendingTicks = 0
				return []Event{ended}
			}
			return nil
		case acc == t.current.Accession:
			// Transient flicker, not a real close. Cancel without emitting.
			t.state = StateStudyOpen
			t.pendingTicks = 0
			t.observe(obs)
			return nil
		default:
			// A different study appeared before the debounce window expired.
			ended := t.endCurrent()
			return []Event{ended, t.open(acc, obs)}
		}
	}

	return nil
}

// open starts a fresh session. All per-study flags reset except the sticky
// critical marker, which lives in criticalSeen keyed by accession.
func (t *Tracker) open(accession string, obs scrape.Snapshot) Event {
	t.current = &Session{
		Accession: accession,
		OpenedAt:  t.nowFunc(),
	}
	t.state = StateStudyOpen
	t.pendingTicks = 0
	t.observe(obs)
	return Event{Type: EventStudyOpened, Accession: accession}
}

// observe folds snapshot facts into the current session. Flags only latch
// on: a later empty or false read never clears an observed fact.
func (t *Tracker) observe(obs scrape.Snapshot) {
	s := t.current
	if obs.Description != "" {
		s.Description = obs.Description
	}
	if obs.DiscardDialogVisible {
		s.DiscardDialogSeen = true
	}
	if obs.Drafted {
		s.DraftedSeen = true
	}
}

// endCurrent classifies and builds the study_ended event for the current
// session without clearing it; callers decide the next state.
func (t *Tracker) endCurrent() Event {
	s := t.current
	return Event{
		Type:           EventStudyEnded,
		Accession:      s.Accession,
		Classification: t.classify(s),
		Critical:       t.criticalSeen[s.Accession],
	}
}

// classify applies the sign/discard tie-break. No observed discard dialog
// means the user is assumed to have signed through the host application's
// own controls; the system cannot distinguish a manual sign from a silent
// discard, and this default is the preserved business rule.
func (t *Tracker) classify(s *Session) Classification {
	switch {
	case s.Signed:
		return ClassSigned
	case s.DiscardDialogSeen:
		return ClassUnsigned
	default:
		return ClassSigned
	}
}

// --- External mutation entry points ---

// MarkSigned records that the sign action ran for the given accession.
// Ignored if that study is no longer current.
func (t *Tracker) MarkSigned(accession string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || t.current.Accession != accession {
		return false
	}
	t.current.Signed = true
	return true
}

// MarkCriticalNote records a successful critical-note creation. The marker
// survives session close for the process lifetime.
func (t *Tracker) MarkCriticalNote(accession string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.criticalSeen[accession] = true
}

// HasCritical reports whether a critical note was ever created for the
// accession in this process.
func (t *Tracker) HasCritical(accession string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.criticalSeen[accession]
}

// MarkAutoProcessStarted latches the one-shot auto-process trigger for the
// current session. Returns false if the accession is no longer current or
// auto-processing already started.
func (t *Tracker) MarkAutoProcessStarted(accession string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || t.current.Accession != accession {
		return false
	}
	if t.current.AutoProcessStarted {
		return false
	}
	t.current.AutoProcessStarted = true
	return true
}

// MarkProcessed records that the trailing gate action was sent for the
// current session.
func (t *Tracker) MarkProcessed(accession string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil && t.current.Accession == accession {
		t.current.Processed = true
	}
}

// SetBaseline stores the captured baseline on the current session.
func (t *Tracker) SetBaseline(accession, text string, fallback bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || t.current.Accession != accession {
		return false
	}
	t.current.Baseline = text
	t.current.BaselineFallback = fallback
	return true
}

// Current returns a copy of the current session, if any.
func (t *Tracker) Current() (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Session{}, false
	}
	return *t.current, true
}

// State returns the tracker's lifecycle state.
func (t *Tracker) State() SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
