// Package macros loads the user's macro/pick-list definitions and applies
// matching macro bodies to the open report. Definitions are authored in
// ~/.mosaic/macros.yaml; the engine hot-reloads the set when the file
// changes.
package macros

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/erichter2018/MosaicTools-sub001/pkg/automation"
)

// Macro is one insertable text block. Match is compared case-insensitively
// against the study description; an empty Match never matches.
type Macro struct {
	Name  string `yaml:"name"`
	Match string `yaml:"match"`
	Body  string `yaml:"body"`
}

// Set is the parsed macros file.
type Set struct {
	Macros []Macro `yaml:"macros"`
}

// Load parses a macros YAML file. A missing file is not an error: it yields
// an empty set.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is under the mosaic home dir
	if err != nil {
		if os.IsNotExist(err) {
			return &Set{}, nil
		}
		return nil, fmt.Errorf("read macros file %s: %w", path, err)
	}

	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse macros file %s: %w", path, err)
	}
	return &set, nil
}

// ForDescription returns the macros whose Match occurs in the description.
func (s *Set) ForDescription(description string) []Macro {
	desc := strings.ToLower(description)
	var out []Macro
	for _, m := range s.Macros {
		if m.Match == "" {
			continue
		}
		if strings.Contains(desc, strings.ToLower(m.Match)) {
			out = append(out, m)
		}
	}
	return out
}

// Inserter is the macro insertion feature. It pastes matching macro bodies
// into the report on the executor's action stream.
type Inserter struct {
	mu   sync.Mutex
	set  *Set
	auto automation.Automator
	lock *automation.PasteLock
	log  *zap.Logger
}

// NewInserter creates an Inserter over an initial macro set.
func NewInserter(set *Set, auto automation.Automator, lock *automation.PasteLock, log *zap.Logger) *Inserter {
	if set == nil {
		set = &Set{}
	}
	return &Inserter{set: set, auto: auto, lock: lock, log: log}
}

// Replace swaps in a reloaded macro set.
func (i *Inserter) Replace(set *Set) {
	if set == nil {
		set = &Set{}
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.set = set
}

// Apply pastes every macro matching the description. Returns the number of
// macros applied; zero with a nil error means the decision was "nothing
// matched", which still counts as feature completion for the gate.
func (i *Inserter) Apply(ctx context.Context, description string) (int, error) {
	i.mu.Lock()
	matched := i.set.ForDescription(description)
	i.mu.Unlock()

	applied := 0
	for _, m := range matched {
		if err := automation.PasteText(ctx, i.auto, i.lock, m.Body); err != nil {
			return applied, fmt.Errorf("insert macro %s: %w", m.Name, err)
		}
		applied++
		i.log.Info("macro inserted", zap.String("macro", m.Name))
	}
	return applied, nil
}
