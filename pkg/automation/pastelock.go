package automation

import (
	"context"
	"fmt"
	"sync"
)

// PasteLock serializes clipboard+paste sequences. Two interleaved sequences
// would corrupt clipboard contents, so every writer must hold the lock for
// the full set-activate-paste span and no longer.
type PasteLock struct {
	mu sync.Mutex
}

// Do runs fn while holding the paste lock. Release is guaranteed on every
// exit path, including panics inside fn.
func (l *PasteLock) Do(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn()
}

// PasteText performs the canonical clipboard transfer under the paste lock:
// set clipboard, activate the report field, paste. The lock span covers
// exactly these three steps.
func PasteText(ctx context.Context, a Automator, lock *PasteLock, text string) error {
	return lock.Do(func() error {
		if err := a.SetClipboard(ctx, text); err != nil {
			return fmt.Errorf("set clipboard: %w", err)
		}
		if err := a.ActivateTarget(ctx); err != nil {
			return fmt.Errorf("activate target: %w", err)
		}
		if err := a.Paste(ctx); err != nil {
			return fmt.Errorf("paste: %w", err)
		}
		return nil
	})
}
