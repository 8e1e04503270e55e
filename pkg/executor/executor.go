// Package executor implements the serial action queue. All automation runs
// on one logical thread: Submit enqueues and returns immediately, and a
// single drain goroutine runs each action to completion before the next.
// A failing action is isolated — logged, surfaced to the user — and never
// stops the queue.
package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erichter2018/MosaicTools-sub001/pkg/automation"
	"github.com/erichter2018/MosaicTools-sub001/pkg/protocol"
)

// queueCapacity bounds the pending action backlog. A full queue rejects the
// submit rather than blocking the trigger path.
const queueCapacity = 64

// Request is one queued action. Immutable once created; consumed exactly
// once by the drain loop. Requests have no identity beyond FIFO order — the
// ID exists for logging and user-facing failure messages only.
type Request struct {
	ID         string
	Kind       protocol.Kind
	Source     string
	EnqueuedAt time.Time
}

// Handler executes one action kind.
type Handler func(ctx context.Context, req Request) error

// Notifier surfaces an action failure to the user. err is never nil.
type Notifier func(req Request, err error)

// Executor drains queued actions strictly in submission order.
type Executor struct {
	auto   automation.Automator
	log    *zap.Logger
	notify Notifier

	mu       sync.Mutex
	handlers map[protocol.Kind]Handler

	queue  chan Request
	active atomic.Bool

	// nowFunc allows tests to control time.
	nowFunc func() time.Time

	// testActionDone, when set, is called after each action completes.
	testActionDone func()
}

// New creates an Executor. notify may be nil. Call Run to start draining.
func New(auto automation.Automator, log *zap.Logger, notify Notifier) *Executor {
	return &Executor{
		auto:     auto,
		log:      log,
		notify:   notify,
		handlers: make(map[protocol.Kind]Handler),
		queue:    make(chan Request, queueCapacity),
		nowFunc:  time.Now,
	}
}

// Register installs the handler for an action kind, replacing any previous
// registration.
func (e *Executor) Register(kind protocol.Kind, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[kind] = h
}

// Submit enqueues an action and returns immediately with the request ID.
// It fails if the kind is unknown or the backlog is full.
func (e *Executor) Submit(kind protocol.Kind, source string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown action kind %q", kind)
	}

	req := Request{
		ID:         uuid.NewString(),
		Kind:       kind,
		Source:     source,
		EnqueuedAt: e.nowFunc(),
	}

	select {
	case e.queue <- req:
		return req.ID, nil
	default:
		return "", fmt.Errorf("action queue full (%d pending)", queueCapacity)
	}
}

// Active reports whether an action is currently executing. The state poller
// checks this before each reconciliation pass so it never observes the host
// application mid-manipulation.
func (e *Executor) Active() bool {
	return e.active.Load()
}

// Pending returns the number of queued, not-yet-started actions.
func (e *Executor) Pending() int {
	return len(e.queue)
}

// Run drains the queue until ctx is cancelled. Queued actions that have not
// started when ctx ends are dropped.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.queue:
			e.runOne(ctx, req)
			if e.testActionDone != nil {
				e.testActionDone()
			}
		}
	}
}

// runOne executes a single action with full isolation: the automation-active
// flag is held for the duration, prior focus is restored on every exit path,
// and any error or panic is reported without aborting the drain loop.
func (e *Executor) runOne(ctx context.Context, req Request) {
	e.active.Store(true)
	defer e.active.Store(false)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("action panic: %v", r)
			e.log.Error("action panicked",
				zap.String("kind", string(req.Kind)),
				zap.String("source", req.Source),
				zap.String("request_id", req.ID),
				zap.Any("panic", r))
			e.report(req, err)
		}
	}()

	// Interactive triggers can arrive with modifier keys still held; lift
	// them before emitting any keystrokes.
	if protocol.InteractiveSource(req.Source) {
		if err := e.auto.ReleaseModifiers(ctx); err != nil {
			e.log.Warn("release modifiers failed",
				zap.String("request_id", req.ID), zap.Error(err))
		}
	}

	// Restore prior focus after the action regardless of outcome.
	token, focusErr := e.auto.SaveFocus(ctx)
	if focusErr != nil {
		e.log.Warn("save focus failed",
			zap.String("request_id", req.ID), zap.Error(focusErr))
	} else {
		defer func() {
			if err := e.auto.RestoreFocus(ctx, token); err != nil {
				e.log.Warn("restore focus failed",
					zap.String("request_id", req.ID), zap.Error(err))
			}
		}()
	}

	e.mu.Lock()
	h := e.handlers[req.Kind]
	e.mu.Unlock()

	if h == nil {
		e.report(req, fmt.Errorf("no handler registered for %s", req.Kind))
		return
	}

	if err := h(ctx, req); err != nil {
		e.log.Error("action failed",
			zap.String("kind", string(req.Kind)),
			zap.String("source", req.Source),
			zap.String("request_id", req.ID),
			zap.Error(err))
		e.report(req, err)
	}
}

func (e *Executor) report(req Request, err error) {
	if e.notify != nil {
		e.notify(req, err)
	}
}
