// Package autofix applies deterministic text corrections to drafted report
// text: dictation artifacts, spacing, and user-configured substitutions.
// The fixer itself is pure; the engine handles getting the corrected text
// back into the host application.
package autofix

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Rule is one correction: every match of the pattern is replaced.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// DefaultRules covers the dictation artifacts seen in practice.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "collapse_spaces",
			Pattern: regexp.MustCompile(`[ \t]{2,}`),
			Replace: " ",
		},
		{
			Name:    "space_before_punctuation",
			Pattern: regexp.MustCompile(` +([.,;:])`),
			Replace: "$1",
		},
		{
			Name:    "doubled_period",
			Pattern: regexp.MustCompile(`\.\.+`),
			Replace: ".",
		},
	}
}

// Fixer applies an ordered rule list.
type Fixer struct {
	rules []Rule
}

// NewFixer creates a Fixer. Substitutions maps literal phrases to their
// replacements (from configuration) and is applied after the default rules.
// Keys are sorted so overlapping substitutions apply in a stable order.
func NewFixer(substitutions map[string]string) (*Fixer, error) {
	rules := DefaultRules()
	keys := make([]string, 0, len(substitutions))
	for from := range substitutions {
		if from != "" {
			keys = append(keys, from)
		}
	}
	sort.Strings(keys)
	for _, from := range keys {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(from) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("substitution %q: %w", from, err)
		}
		rules = append(rules, Rule{Name: "subst:" + from, Pattern: re, Replace: substitutions[from]})
	}
	return &Fixer{rules: rules}, nil
}

// Apply runs every rule over the text. Returns the corrected text and the
// number of rules that changed something; (text, 0) means nothing applied —
// a decision, not a failure.
func (f *Fixer) Apply(text string) (string, int) {
	changed := 0
	for _, r := range f.rules {
		out := r.Pattern.ReplaceAllString(text, r.Replace)
		if out != text {
			changed++
			text = out
		}
	}
	return strings.TrimRight(text, " \t"), changed
}
