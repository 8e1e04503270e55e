package engine //nolint:testpackage // internal white-box tests need access to unexported fields

import (
	"testing"
	"time"
)

// immediateAfterFunc runs scheduled functions synchronously when fire is
// called, instead of after a real delay.
type immediateAfterFunc struct {
	pending []func()
}

func (a *immediateAfterFunc) afterFunc(_ time.Duration, fn func()) *time.Timer {
	a.pending = append(a.pending, fn)
	return nil
}

func (a *immediateAfterFunc) fire() {
	for _, fn := range a.pending {
		fn()
	}
	a.pending = nil
}

func TestCorrector_AppliesWhenGenerationUnchanged(t *testing.T) {
	c := NewCorrector()
	af := &immediateAfterFunc{}
	c.afterFunc = af.afterFunc

	applied := false
	c.Schedule(time.Millisecond, func() { applied = true })
	af.fire()

	if !applied {
		t.Fatal("correction with current generation must apply")
	}
}

func TestCorrector_StaleGenerationIsNoop(t *testing.T) {
	c := NewCorrector()
	af := &immediateAfterFunc{}
	c.afterFunc = af.afterFunc

	applied := false
	c.Schedule(time.Millisecond, func() { applied = true })

	// A state transition happens before the delay elapses.
	c.Bump()
	af.fire()

	if applied {
		t.Fatal("stale correction must not apply")
	}
}

func TestCorrector_BumpOnlyInvalidatesEarlierSchedules(t *testing.T) {
	c := NewCorrector()
	af := &immediateAfterFunc{}
	c.afterFunc = af.afterFunc

	var before, after bool
	c.Schedule(time.Millisecond, func() { before = true })
	c.Bump()
	c.Schedule(time.Millisecond, func() { after = true })
	af.fire()

	if before {
		t.Fatal("pre-bump correction must not apply")
	}
	if !after {
		t.Fatal("post-bump correction must apply")
	}
}

func TestCorrector_RealTimerFires(t *testing.T) {
	c := NewCorrector()

	done := make(chan struct{})
	c.Schedule(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled correction never fired")
	}
}
