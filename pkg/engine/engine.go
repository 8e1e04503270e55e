package engine

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erichter2018/MosaicTools-sub001/pkg/autofix"
	"github.com/erichter2018/MosaicTools-sub001/pkg/automation"
	"github.com/erichter2018/MosaicTools-sub001/pkg/config"
	"github.com/erichter2018/MosaicTools-sub001/pkg/critical"
	"github.com/erichter2018/MosaicTools-sub001/pkg/executor"
	"github.com/erichter2018/MosaicTools-sub001/pkg/macros"
	"github.com/erichter2018/MosaicTools-sub001/pkg/protocol"
	"github.com/erichter2018/MosaicTools-sub001/pkg/scrape"
	"github.com/erichter2018/MosaicTools-sub001/pkg/templates"
)

// Options holds the collaborators the Engine composes.
type Options struct {
	Config     *config.Config
	SocketPath string
	LegacyPath string
	DB         *sql.DB
	Scraper    scrape.Scraper
	Automator  automation.Automator
	PasteLock  *automation.PasteLock
	Macros     *macros.Inserter
	Fixer      *autofix.Fixer
	Log        *zap.Logger
}

// Engine is the reconciliation core runtime: it owns the lifecycle tracker,
// the poller, the emitter, the completion gate, the baseline manager, and
// the serial action executor, and serves the control socket.
type Engine struct {
	db      *sql.DB
	scraper scrape.Scraper
	auto    automation.Automator
	lock    *automation.PasteLock
	macros  *macros.Inserter
	fixer   *autofix.Fixer
	log     *zap.Logger

	socketPath string

	tracker   *Tracker
	baseline  *BaselineManager
	gate      *Gate
	emitter   *Emitter
	poller    *Poller
	corrector *Corrector
	exec      *executor.Executor

	criticalList  *critical.List
	templateStore *templates.Store

	cfgMu sync.Mutex
	cfg   *config.Config

	snapMu   sync.Mutex
	lastSnap scrape.Snapshot

	mu       sync.Mutex
	listener net.Listener

	nowFunc func() time.Time
}

// New creates an Engine. It does NOT bind the socket or start polling —
// call Run().
func New(opts Options) *Engine {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	e := &Engine{
		db:            opts.DB,
		scraper:       opts.Scraper,
		auto:          opts.Automator,
		lock:          opts.PasteLock,
		macros:        opts.Macros,
		fixer:         opts.Fixer,
		log:           opts.Log,
		socketPath:    opts.SocketPath,
		cfg:           cfg,
		tracker:       NewTracker(),
		corrector:     NewCorrector(),
		emitter:       NewEmitter(opts.LegacyPath, opts.Log),
		criticalList:  critical.NewList(opts.DB),
		templateStore: templates.NewStore(opts.DB),
		nowFunc:       time.Now,
	}

	var store TemplateSource
	if cfg.TemplateStoreEnabled {
		store = e.templateStore
	}
	e.baseline = NewBaselineManager(e.tracker, store, opts.Log)

	e.gate = NewGate(cfg.Gate.MacrosEnabled, cfg.Gate.AutoFixEnabled, e.fireGate, opts.Log)
	e.exec = executor.New(opts.Automator, opts.Log, e.notifyActionFailure)
	e.poller = NewPoller(cfg.PollInterval, e.reconcile, e.exec.Active, opts.Log)

	e.registerHandlers()
	return e
}

// Trigger is the sole entry point by which hotkeys, hardware buttons, UI
// buttons, and internal features enqueue work.
func (e *Engine) Trigger(kind protocol.Kind, source string) (string, error) {
	return e.exec.Submit(kind, source)
}

// Run binds the control socket and runs the executor and poller until ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, protocol.SchemaDDL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	if err := cleanStaleSocket(e.socketPath); err != nil {
		return err
	}

	ln, err := net.Listen("unix", e.socketPath)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", e.socketPath, err)
	}
	e.mu.Lock()
	e.listener = ln
	e.mu.Unlock()

	go e.acceptLoop(ctx, ln)
	go e.exec.Run(ctx)
	go e.poller.Run(ctx)

	<-ctx.Done()

	_ = ln.Close()
	e.emitter.Close()
	_ = os.Remove(e.socketPath)
	return nil
}

// ApplyConfig installs a reloaded configuration. Intervals and toggles take
// effect on the next tick; an in-flight tick is unaffected.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()

	e.gate.SetEnabled(cfg.Gate.MacrosEnabled, cfg.Gate.AutoFixEnabled)
	e.adjustRate()
	e.log.Info("configuration applied",
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Bool("highlight", cfg.HighlightEnabled))
}

func (e *Engine) config() *config.Config {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.cfg
}

// --- Reconciliation pass ---

// reconcile is one poller tick: scrape, step the lifecycle tracker, act on
// the returned events, advance the baseline window, update the gate, and
// publish the snapshot. Any scrape failure degrades to an empty snapshot —
// "unknown this tick" — and the debounce logic decides what that means.
func (e *Engine) reconcile(ctx context.Context) {
	snap, err := e.scraper.Snapshot(ctx)
	if err != nil {
		e.log.Debug("snapshot unavailable", zap.Error(err))
		snap = scrape.Snapshot{}
	}

	e.snapMu.Lock()
	e.lastSnap = snap
	e.snapMu.Unlock()

	for _, ev := range e.tracker.Step(snap) {
		e.handleLifecycleEvent(ctx, ev)
	}

	e.baseline.Step(ctx, snap)
	e.adjustRate()
	e.updateGate(snap)
	e.maybeAutoProcess()
	e.publishData(snap)
}

func (e *Engine) handleLifecycleEvent(ctx context.Context, ev Event) {
	// Any real transition invalidates pending delayed corrections.
	e.corrector.Bump()

	switch ev.Type {
	case EventStudyOpened:
		e.log.Info("study opened", zap.String("accession", ev.Accession))
		e.logEvent(ctx, "study_opened", "poller", ev.Accession, "")

		e.gate.Reset(ev.Accession)
		if e.config().HighlightEnabled {
			e.baseline.Arm(ev.Accession)
		}

	case EventStudyEnded:
		e.log.Info("study ended",
			zap.String("accession", ev.Accession),
			zap.String("classification", string(ev.Classification)),
			zap.Bool("critical", ev.Critical))
		e.logEvent(ctx, "study_ended", "poller", ev.Accession,
			fmt.Sprintf(`{"classification":%q,"critical":%t}`, ev.Classification, ev.Critical))

		e.emitter.PublishEvent(ev)
		if _, ok := e.tracker.Current(); !ok {
			e.gate.Reset("")
			e.baseline.Disarm()
		}
	}
}

// adjustRate picks the poll cadence: hunt while a baseline capture window
// is open, fast while an open study has not yet shown a draft, and normal
// steady state otherwise.
func (e *Engine) adjustRate() {
	cfg := e.config()
	switch {
	case e.baseline.Armed():
		e.poller.SetInterval(cfg.HuntInterval)
	case e.awaitingDraft():
		e.poller.SetInterval(cfg.FastInterval)
	default:
		e.poller.SetInterval(cfg.PollInterval)
	}
}

// awaitingDraft reports whether a study is open whose draft text has not
// appeared yet.
func (e *Engine) awaitingDraft() bool {
	sess, ok := e.tracker.Current()
	return ok && !sess.DraftedSeen
}

// updateGate re-evaluates the inclusion policy: a drafted study matching
// the configured criteria.
func (e *Engine) updateGate(snap scrape.Snapshot) {
	sess, ok := e.tracker.Current()
	if !ok || !sess.DraftedSeen {
		return
	}
	if descriptionMatches(e.config().Gate.Criteria, sess.Description) {
		e.gate.SetEligible(sess.Accession, true)
	}
}

func descriptionMatches(criteria []string, description string) bool {
	if len(criteria) == 0 {
		return true
	}
	desc := strings.ToLower(description)
	for _, c := range criteria {
		if c != "" && strings.Contains(desc, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

// maybeAutoProcess kicks off the insertion features exactly once per
// session, the first tick the study is known to be drafted.
func (e *Engine) maybeAutoProcess() {
	sess, ok := e.tracker.Current()
	if !ok || !sess.DraftedSeen {
		return
	}

	cfg := e.config()
	if !cfg.Gate.MacrosEnabled && !cfg.Gate.AutoFixEnabled {
		return
	}
	if !e.tracker.MarkAutoProcessStarted(sess.Accession) {
		return
	}

	if cfg.Gate.MacrosEnabled {
		if _, err := e.exec.Submit(protocol.KindInsertMacro, protocol.SourceInternal); err != nil {
			e.log.Warn("queue macro insertion failed", zap.Error(err))
		}
	}
	if cfg.Gate.AutoFixEnabled {
		if _, err := e.exec.Submit(protocol.KindAutoFix, protocol.SourceInternal); err != nil {
			e.log.Warn("queue auto-fix failed", zap.Error(err))
		}
	}
}

// publishData builds the channel-B snapshot and publishes it if changed.
func (e *Engine) publishData(snap scrape.Snapshot) {
	e.emitter.PublishData(protocol.StudyData{
		Accession:      snap.Accession,
		Description:    snap.Description,
		TemplateName:   snap.TemplateName,
		PatientName:    snap.PatientName,
		PatientGender:  snap.PatientGender,
		MRN:            snap.MRN,
		SiteCode:       snap.SiteCode,
		ClarioPriority: snap.ClarioPriority,
		ClarioClass:    snap.ClarioClass,
		Drafted:        snap.Drafted,
		HasCritical:    snap.Accession != "" && e.tracker.HasCritical(snap.Accession),
	})
}

// fireGate submits the trailing bulk-select action once both insertion
// features have completed for an eligible study.
func (e *Engine) fireGate(accession string) {
	if _, err := e.exec.Submit(protocol.KindSelectAll, protocol.SourceGate); err != nil {
		e.log.Warn("queue trailing action failed",
			zap.String("accession", accession), zap.Error(err))
		return
	}
	e.logEvent(context.Background(), "gate_fired", "gate", accession, "")
}

// --- Action handlers ---

func (e *Engine) registerHandlers() {
	e.exec.Register(protocol.KindInsertMacro, e.handleInsertMacro)
	e.exec.Register(protocol.KindAutoFix, e.handleAutoFix)
	e.exec.Register(protocol.KindCriticalNote, e.handleCriticalNote)
	e.exec.Register(protocol.KindSignReport, e.handleSignReport)
	e.exec.Register(protocol.KindDiscardReport, e.handleDiscardReport)
	e.exec.Register(protocol.KindSelectAll, e.handleSelectAll)
	e.exec.Register(protocol.KindResync, e.handleResync)
}

func (e *Engine) handleInsertMacro(ctx context.Context, req executor.Request) error {
	sess, ok := e.tracker.Current()
	if !ok {
		return fmt.Errorf("no study open")
	}

	applied, err := e.macros.Apply(ctx, sess.Description)
	if err != nil {
		return err
	}

	// Zero applied is still a decision: the gate must not wait for it.
	e.gate.MarkComplete(FeatureMacros, sess.Accession)
	e.logEvent(ctx, "macros_applied", req.Source, sess.Accession,
		fmt.Sprintf(`{"applied":%d}`, applied))
	return nil
}

func (e *Engine) handleAutoFix(ctx context.Context, req executor.Request) error {
	sess, ok := e.tracker.Current()
	if !ok {
		return fmt.Errorf("no study open")
	}

	e.snapMu.Lock()
	text := e.lastSnap.ReportText
	e.snapMu.Unlock()

	fixed, changed := e.fixer.Apply(text)
	if changed > 0 && text != "" {
		if err := e.replaceReportText(ctx, fixed); err != nil {
			return err
		}
	}

	e.gate.MarkComplete(FeatureAutoFix, sess.Accession)
	e.logEvent(ctx, "autofix_applied", req.Source, sess.Accession,
		fmt.Sprintf(`{"rules_changed":%d}`, changed))
	return nil
}

// replaceReportText selects the whole report and pastes the replacement in
// one paste-lock span.
func (e *Engine) replaceReportText(ctx context.Context, text string) error {
	keys := e.config().Keys["select_all"]
	return e.lock.Do(func() error {
		if err := e.auto.SetClipboard(ctx, text); err != nil {
			return fmt.Errorf("set clipboard: %w", err)
		}
		if err := e.auto.ActivateTarget(ctx); err != nil {
			return fmt.Errorf("activate target: %w", err)
		}
		if keys != "" {
			if err := e.auto.SendKeys(ctx, keys); err != nil {
				return fmt.Errorf("select all: %w", err)
			}
		}
		if err := e.auto.Paste(ctx); err != nil {
			return fmt.Errorf("paste: %w", err)
		}
		return nil
	})
}

func (e *Engine) handleCriticalNote(ctx context.Context, req executor.Request) error {
	sess, ok := e.tracker.Current()
	if !ok {
		return fmt.Errorf("no study open")
	}

	// The sticky flag survives session close for the process lifetime, so a
	// transient blank read of the same study cannot produce a second note.
	if e.tracker.HasCritical(sess.Accession) {
		e.logEvent(ctx, "critical_note_skipped", req.Source, sess.Accession, "")
		return nil
	}

	e.snapMu.Lock()
	snap := e.lastSnap
	e.snapMu.Unlock()

	note := formatCriticalNote(snap, e.nowFunc())
	if err := automation.PasteText(ctx, e.auto, e.lock, note); err != nil {
		return fmt.Errorf("paste critical note: %w", err)
	}

	if err := e.criticalList.Add(ctx, critical.Entry{
		Accession:   sess.Accession,
		PatientName: snap.PatientName,
		SiteCode:    snap.SiteCode,
		Description: snap.Description,
		MRN:         snap.MRN,
	}); err != nil {
		e.log.Warn("track critical study failed", zap.Error(err))
	}

	e.tracker.MarkCriticalNote(sess.Accession)
	e.logEvent(ctx, "critical_note_created", req.Source, sess.Accession, "")
	return nil
}

func formatCriticalNote(snap scrape.Snapshot, now time.Time) string {
	return fmt.Sprintf(
		"Critical findings communicated. Patient: %s (MRN %s), site %s. %s",
		snap.PatientName, snap.MRN, snap.SiteCode,
		now.Format("2006-01-02 15:04"))
}

func (e *Engine) handleSignReport(ctx context.Context, req executor.Request) error {
	sess, ok := e.tracker.Current()
	if !ok {
		return fmt.Errorf("no study open")
	}

	keys := e.config().Keys["sign"]
	if keys == "" {
		return fmt.Errorf("no sign key sequence configured")
	}
	if err := e.auto.SendKeys(ctx, keys); err != nil {
		return fmt.Errorf("send sign keys: %w", err)
	}

	e.tracker.MarkSigned(sess.Accession)
	e.logEvent(ctx, "sign_sent", req.Source, sess.Accession, "")

	// If the host application did not actually close the study, force a
	// republish after a beat so downstream consumers resync. Superseded by
	// any real transition in between.
	e.corrector.Schedule(e.config().ResyncDelay, e.emitter.ResetData)
	return nil
}

func (e *Engine) handleDiscardReport(ctx context.Context, req executor.Request) error {
	sess, ok := e.tracker.Current()
	if !ok {
		return fmt.Errorf("no study open")
	}

	keys := e.config().Keys["discard"]
	if keys == "" {
		return fmt.Errorf("no discard key sequence configured")
	}
	if err := e.auto.SendKeys(ctx, keys); err != nil {
		return fmt.Errorf("send discard keys: %w", err)
	}

	e.logEvent(ctx, "discard_sent", req.Source, sess.Accession, "")
	return nil
}

func (e *Engine) handleSelectAll(ctx context.Context, req executor.Request) error {
	sess, ok := e.tracker.Current()
	if !ok {
		return fmt.Errorf("no study open")
	}

	keys := e.config().Keys["select_all"]
	if keys == "" {
		return fmt.Errorf("no select_all key sequence configured")
	}
	if err := e.auto.SendKeys(ctx, keys); err != nil {
		return fmt.Errorf("send select-all keys: %w", err)
	}

	e.tracker.MarkProcessed(sess.Accession)
	e.logEvent(ctx, "select_all_sent", req.Source, sess.Accession, "")
	return nil
}

func (e *Engine) handleResync(ctx context.Context, req executor.Request) error {
	e.emitter.ResetData()
	e.logEvent(ctx, "resync", req.Source, "", "")
	return nil
}

// notifyActionFailure surfaces an action failure to the user path: the
// event log row is what the UI surfaces tail.
func (e *Engine) notifyActionFailure(req executor.Request, err error) {
	e.logEvent(context.Background(), "action_failed", req.Source, "",
		fmt.Sprintf(`{"kind":%q,"error":%q}`, req.Kind, err.Error()))
}

// --- Control socket ---

// acceptLoop accepts client connections.
func (e *Engine) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		go e.handleConn(ctx, conn)
	}
}

// handleConn reads line-delimited JSON control messages from a client.
// Subscribers keep the connection open; trigger/status clients typically
// disconnect after the ACK.
func (e *Engine) handleConn(ctx context.Context, conn net.Conn) {
	var subscriberID string
	defer func() {
		if subscriberID != "" {
			e.emitter.Unsubscribe(subscriberID)
		}
		_ = conn.Close()
	}()

	enc := json.NewEncoder(conn)
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		var msg protocol.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		switch msg.Type {
		case protocol.MsgTrigger:
			e.handleTrigger(enc, msg)
		case protocol.MsgSubscribe:
			subscriberID = e.handleSubscribe(enc, conn, msg)
		case protocol.MsgStatus:
			e.handleStatus(enc)
		case protocol.MsgACK:
			// Clients do not send ACKs; ignore.
		}
	}
}

func (e *Engine) handleTrigger(enc *json.Encoder, msg protocol.Message) {
	ack := protocol.ACKPayload{OK: true}
	if msg.Trigger == nil {
		ack.OK = false
		ack.Detail = "missing trigger payload"
	} else {
		id, err := e.Trigger(msg.Trigger.Kind, msg.Trigger.Source)
		if err != nil {
			ack.OK = false
			ack.Detail = err.Error()
		} else {
			ack.Detail = id
		}
	}
	_ = enc.Encode(protocol.Message{Type: protocol.MsgACK, ACK: &ack})
}

func (e *Engine) handleSubscribe(enc *json.Encoder, conn net.Conn, msg protocol.Message) string {
	id := ""
	if msg.Subscribe != nil {
		id = msg.Subscribe.ClientID
	}
	if id == "" {
		id = uuid.NewString()
	}
	e.emitter.Subscribe(id, conn)
	_ = enc.Encode(protocol.Message{
		Type: protocol.MsgACK,
		ACK:  &protocol.ACKPayload{OK: true, Detail: id},
	})
	return id
}

func (e *Engine) handleStatus(enc *json.Encoder) {
	accession := ""
	if sess, ok := e.tracker.Current(); ok {
		accession = sess.Accession
	}
	detail, _ := json.Marshal(map[string]any{
		"state":       string(e.tracker.State()),
		"accession":   accession,
		"pending":     e.exec.Pending(),
		"subscribers": e.emitter.Subscribers(),
		"interval":    e.poller.Interval().String(),
	})
	_ = enc.Encode(protocol.Message{
		Type: protocol.MsgACK,
		ACK:  &protocol.ACKPayload{OK: true, Detail: string(detail)},
	})
}

// --- Event log ---

func (e *Engine) logEvent(ctx context.Context, evType, source, accession, payload string) {
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO events (type, source, accession, payload) VALUES (?, ?, ?, ?)`,
		evType, source, accession, payload)
	if err != nil {
		e.log.Warn("event log insert failed",
			zap.String("type", evType), zap.Error(err))
	}
}
