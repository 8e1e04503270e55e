package main

import (
	"context"
	"os/exec"
)

// ExecRunner runs helper commands via os/exec. It is the production
// implementation of scrape.CommandRunner.
type ExecRunner struct{}

// Run executes the command and returns its stdout.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
