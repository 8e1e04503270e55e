// Package automation wraps the low-level input/clipboard/focus primitives
// used to drive the host application. The primitives themselves are a black
// box: production use shells out to configured helper commands, tests supply
// fakes. Everything here is called from the executor's single action stream;
// the only cross-goroutine resource is the paste lock.
package automation

import (
	"context"
	"fmt"
	"os/exec"
)

// FocusToken is an opaque handle to a previously focused UI element,
// returned by SaveFocus and consumed by RestoreFocus.
type FocusToken string

// Automator is the set of automation verbs the executor needs.
type Automator interface {
	// ReleaseModifiers lifts any held modifier keys (cmd/ctrl/alt/shift) so
	// they cannot combine with emitted keystrokes.
	ReleaseModifiers(ctx context.Context) error

	// SendKeys emits a keystroke sequence to the host application.
	SendKeys(ctx context.Context, keys string) error

	// SetClipboard replaces the system clipboard contents.
	SetClipboard(ctx context.Context, text string) error

	// Paste issues the paste chord in the host application.
	Paste(ctx context.Context) error

	// ActivateTarget brings the host application's report field to the
	// foreground and focuses it.
	ActivateTarget(ctx context.Context) error

	// SaveFocus records the currently focused element.
	SaveFocus(ctx context.Context) (FocusToken, error)

	// RestoreFocus returns focus to a previously saved element.
	RestoreFocus(ctx context.Context, token FocusToken) error
}

// Verb names used to look up helper commands in CLIAutomator.
const (
	VerbReleaseModifiers = "release_modifiers"
	VerbSendKeys         = "send_keys"
	VerbSetClipboard     = "set_clipboard"
	VerbPaste            = "paste"
	VerbActivateTarget   = "activate_target"
	VerbSaveFocus        = "save_focus"
	VerbRestoreFocus     = "restore_focus"
)

// CLIAutomator implements Automator by shelling out to configured helper
// commands, one argv per verb. Verbs that carry a payload (send_keys,
// set_clipboard, restore_focus) receive it as the final argument.
type CLIAutomator struct {
	commands map[string][]string
}

// NewCLIAutomator creates a CLIAutomator from a verb->argv map. Missing
// verbs fail at call time, not construction time, so partial helper sets
// remain usable.
func NewCLIAutomator(commands map[string][]string) *CLIAutomator {
	return &CLIAutomator{commands: commands}
}

func (a *CLIAutomator) run(ctx context.Context, verb string, extra ...string) ([]byte, error) {
	argv, ok := a.commands[verb]
	if !ok || len(argv) == 0 {
		return nil, fmt.Errorf("no helper configured for %s", verb)
	}
	args := append(append([]string{}, argv[1:]...), extra...)
	out, err := exec.CommandContext(ctx, argv[0], args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s helper: %w", verb, err)
	}
	return out, nil
}

func (a *CLIAutomator) ReleaseModifiers(ctx context.Context) error {
	_, err := a.run(ctx, VerbReleaseModifiers)
	return err
}

func (a *CLIAutomator) SendKeys(ctx context.Context, keys string) error {
	_, err := a.run(ctx, VerbSendKeys, keys)
	return err
}

func (a *CLIAutomator) SetClipboard(ctx context.Context, text string) error {
	_, err := a.run(ctx, VerbSetClipboard, text)
	return err
}

func (a *CLIAutomator) Paste(ctx context.Context) error {
	_, err := a.run(ctx, VerbPaste)
	return err
}

func (a *CLIAutomator) ActivateTarget(ctx context.Context) error {
	_, err := a.run(ctx, VerbActivateTarget)
	return err
}

func (a *CLIAutomator) SaveFocus(ctx context.Context) (FocusToken, error) {
	out, err := a.run(ctx, VerbSaveFocus)
	if err != nil {
		return "", err
	}
	return FocusToken(out), nil
}

func (a *CLIAutomator) RestoreFocus(ctx context.Context, token FocusToken) error {
	_, err := a.run(ctx, VerbRestoreFocus, string(token))
	return err
}
