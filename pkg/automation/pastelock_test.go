package automation //nolint:testpackage // internal white-box tests need access to unexported fields

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// sequenceAutomator verifies that clipboard transfers never interleave: every
// paste must see the clipboard value set by its own sequence.
type sequenceAutomator struct {
	mu        sync.Mutex
	clipboard string
	pasted    []string
}

func (a *sequenceAutomator) ReleaseModifiers(context.Context) error { return nil }
func (a *sequenceAutomator) SendKeys(context.Context, string) error { return nil }

func (a *sequenceAutomator) SetClipboard(_ context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clipboard = text
	return nil
}

func (a *sequenceAutomator) Paste(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pasted = append(a.pasted, a.clipboard)
	return nil
}

func (a *sequenceAutomator) ActivateTarget(context.Context) error { return nil }

func (a *sequenceAutomator) SaveFocus(context.Context) (FocusToken, error) { return "", nil }

func (a *sequenceAutomator) RestoreFocus(context.Context, FocusToken) error { return nil }

func TestPasteText_TransfersClipboard(t *testing.T) {
	auto := &sequenceAutomator{}
	lock := &PasteLock{}

	if err := PasteText(context.Background(), auto, lock, "hello"); err != nil {
		t.Fatal(err)
	}
	if len(auto.pasted) != 1 || auto.pasted[0] != "hello" {
		t.Fatalf("pasted = %v", auto.pasted)
	}
}

func TestPasteText_ConcurrentSequencesDoNotInterleave(t *testing.T) {
	auto := &sequenceAutomator{}
	lock := &PasteLock{}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = PasteText(context.Background(), auto, lock, fmt.Sprintf("text-%d", n))
		}(i)
	}
	wg.Wait()

	// Every paste observed its own clipboard value.
	seen := make(map[string]bool)
	for _, p := range auto.pasted {
		if seen[p] {
			t.Fatalf("value %q pasted twice: a sequence interleaved", p)
		}
		seen[p] = true
	}
	if len(seen) != 20 {
		t.Fatalf("expected 20 distinct pastes, got %d", len(seen))
	}
}

func TestPasteLock_ReleasedOnError(t *testing.T) {
	lock := &PasteLock{}
	if err := lock.Do(func() error { return fmt.Errorf("boom") }); err == nil {
		t.Fatal("error must propagate")
	}
	// Lock must be free again.
	done := make(chan struct{})
	go func() {
		_ = lock.Do(func() error { return nil })
		close(done)
	}()
	<-done
}
