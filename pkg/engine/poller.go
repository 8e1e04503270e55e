package engine

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Rate selects one of the configured poll cadences.
type Rate string

// Poll rate constants. Normal is the steady-state cadence; Fast and Hunt are
// temporary rates used while actively waiting for a field to appear.
const (
	RateNormal Rate = "normal"
	RateFast   Rate = "fast"
	RateHunt   Rate = "hunt"
)

// Poller fires a reconciliation pass on a fixed interval. Each tick is
// guarded by a single-slot reentrancy latch: if a previous pass is still
// running, the new tick is dropped, not queued. A dropped tick is harmless
// because the next tick re-observes full state.
type Poller struct {
	pass func(ctx context.Context)
	skip func() bool // pass is skipped entirely while this reports true
	log  *zap.Logger

	// interval holds the desired tick interval in nanoseconds. The loop
	// goroutine applies changes itself via ticker.Reset, so an interval
	// swap can never double-fire against an in-flight tick.
	interval atomic.Int64

	inFlight atomic.Bool

	// testTickDone, when set, is called after every executed or skipped tick.
	testTickDone func()
}

// NewPoller creates a Poller. pass runs once per executed tick; skip is
// consulted first (nil means never skip).
func NewPoller(interval time.Duration, pass func(ctx context.Context), skip func() bool, log *zap.Logger) *Poller {
	p := &Poller{pass: pass, skip: skip, log: log}
	p.interval.Store(int64(interval))
	return p
}

// SetInterval changes the tick cadence at runtime. The change takes effect
// from the next tick; a tick already in flight is unaffected.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.interval.Store(int64(d))
}

// Interval returns the currently configured tick interval.
func (p *Poller) Interval() time.Duration {
	return time.Duration(p.interval.Load())
}

// Run ticks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	applied := p.Interval()
	ticker := time.NewTicker(applied)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Apply any interval change from the loop goroutine itself so a
			// swap cannot race a tick already delivered on the old cadence.
			if want := p.Interval(); want != applied {
				applied = want
				ticker.Reset(applied)
			}
			p.tick(ctx)
			if p.testTickDone != nil {
				p.testTickDone()
			}
		}
	}
}

// tick runs one guarded pass.
func (p *Poller) tick(ctx context.Context) {
	if p.skip != nil && p.skip() {
		return
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		// Previous pass still running — drop this tick.
		return
	}
	defer p.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			// A failed tick is a no-op: state carries over to the next tick.
			p.log.Error("reconciliation pass panicked", zap.Any("panic", r))
		}
	}()

	p.pass(ctx)
}
