package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
)

// DaemonStatusValue classifies what the PID file says about the daemon.
type DaemonStatusValue string

const (
	StatusRunning DaemonStatusValue = "running" // PID file present, process alive
	StatusStopped DaemonStatusValue = "stopped" // no PID file
	StatusStale   DaemonStatusValue = "stale"   // PID file present, process gone
)

// WritePIDFile records pid at path, replacing any previous file.
func WritePIDFile(path string, pid int) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// ReadPIDFile returns the PID recorded at path. A missing file surfaces as
// os.ErrNotExist for callers that treat it as "not running".
func ReadPIDFile(path string) (int, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from ResolvePaths, not user input
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(raw))
	pid, err := strconv.Atoi(text)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s is corrupt: %q", path, text)
	}
	return pid, nil
}

// RemovePIDFile deletes the PID file; a file already gone is not an error.
func RemovePIDFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// signalProcess delivers sig to pid. Signal 0 probes for existence without
// delivering anything.
func signalProcess(pid int, sig syscall.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}

// IsProcessAlive reports whether a process with the given PID exists.
func IsProcessAlive(pid int) bool {
	return signalProcess(pid, syscall.Signal(0)) == nil
}

// DaemonStatus resolves the PID file into a liveness verdict. pid is 0 when
// stopped.
func DaemonStatus(pidPath string) (DaemonStatusValue, int, error) {
	pid, err := ReadPIDFile(pidPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return StatusStopped, 0, nil
	case err != nil:
		return StatusStopped, 0, err
	case IsProcessAlive(pid):
		return StatusRunning, pid, nil
	default:
		return StatusStale, pid, nil
	}
}

// StopDaemon asks the recorded daemon process to shut down via SIGTERM. The
// daemon removes its own PID file on the way out.
func StopDaemon(pidPath string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := signalProcess(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}

// SetupSignalHandler derives a context that is cancelled on SIGTERM/SIGINT.
// The returned cleanup stops signal delivery and removes the PID file;
// callers defer it.
func SetupSignalHandler(parent context.Context, pidPath string) (context.Context, func()) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	cleanup := func() {
		stop()
		_ = RemovePIDFile(pidPath)
	}
	return ctx, cleanup
}
