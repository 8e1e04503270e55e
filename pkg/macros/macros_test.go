package macros //nolint:testpackage // internal white-box tests need access to unexported fields

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/erichter2018/MosaicTools-sub001/pkg/automation"
)

// pasteRecorder records every text pasted through the automator.
type pasteRecorder struct {
	mu     sync.Mutex
	pasted []string
	last   string
}

func (r *pasteRecorder) ReleaseModifiers(context.Context) error { return nil }
func (r *pasteRecorder) SendKeys(context.Context, string) error { return nil }

func (r *pasteRecorder) SetClipboard(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = text
	return nil
}

func (r *pasteRecorder) Paste(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pasted = append(r.pasted, r.last)
	return nil
}

func (r *pasteRecorder) ActivateTarget(context.Context) error { return nil }

func (r *pasteRecorder) SaveFocus(context.Context) (automation.FocusToken, error) {
	return "", nil
}

func (r *pasteRecorder) RestoreFocus(context.Context, automation.FocusToken) error {
	return nil
}

func TestLoad_MissingFileYieldsEmptySet(t *testing.T) {
	set, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(set.Macros) != 0 {
		t.Fatalf("expected empty set, got %d macros", len(set.Macros))
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macros.yaml")
	content := `macros:
  - name: chest-normal
    match: ct chest
    body: "Lungs are clear."
  - name: hand-normal
    match: xr hand
    body: "No fracture."
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	set, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Macros) != 2 {
		t.Fatalf("expected 2 macros, got %d", len(set.Macros))
	}
	if set.Macros[0].Name != "chest-normal" || set.Macros[0].Body != "Lungs are clear." {
		t.Fatalf("unexpected macro: %+v", set.Macros[0])
	}
}

func TestLoad_RejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macros.yaml")
	if err := os.WriteFile(path, []byte("macros: {{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("bad YAML must error")
	}
}

func TestForDescription_CaseInsensitiveSubstring(t *testing.T) {
	set := &Set{Macros: []Macro{
		{Name: "a", Match: "CT Chest", Body: "x"},
		{Name: "b", Match: "hand", Body: "y"},
		{Name: "c", Match: "", Body: "never"},
	}}

	got := set.ForDescription("ct chest w/o contrast")
	if len(got) != 1 || got[0].Name != "a" {
		t.Fatalf("unexpected matches: %+v", got)
	}

	if len(set.ForDescription("MR BRAIN")) != 0 {
		t.Fatal("non-matching description should match nothing")
	}
}

func TestInserter_AppliesMatchingMacros(t *testing.T) {
	rec := &pasteRecorder{}
	ins := NewInserter(&Set{Macros: []Macro{
		{Name: "a", Match: "chest", Body: "body-a"},
		{Name: "b", Match: "chest", Body: "body-b"},
		{Name: "c", Match: "hand", Body: "body-c"},
	}}, rec, &automation.PasteLock{}, zap.NewNop())

	n, err := ins.Apply(context.Background(), "CT CHEST WO")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("applied = %d, want 2", n)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.pasted) != 2 || rec.pasted[0] != "body-a" || rec.pasted[1] != "body-b" {
		t.Fatalf("pasted = %v", rec.pasted)
	}
}

func TestInserter_NothingMatchedIsZeroNotError(t *testing.T) {
	ins := NewInserter(&Set{}, &pasteRecorder{}, &automation.PasteLock{}, zap.NewNop())
	n, err := ins.Apply(context.Background(), "MR BRAIN")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("applied = %d, want 0", n)
	}
}

func TestInserter_ReplaceSwapsSet(t *testing.T) {
	rec := &pasteRecorder{}
	ins := NewInserter(&Set{}, rec, &automation.PasteLock{}, zap.NewNop())

	ins.Replace(&Set{Macros: []Macro{{Name: "a", Match: "chest", Body: "new"}}})

	n, err := ins.Apply(context.Background(), "ct chest")
	if err != nil || n != 1 {
		t.Fatalf("apply after replace: n=%d err=%v", n, err)
	}
}
