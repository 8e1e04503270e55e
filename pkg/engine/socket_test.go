package engine //nolint:testpackage // internal white-box tests need access to unexported fields

import (
	"net"
	"os"
	"path/filepath"
	"testing"
)

func TestStaleSocketCleanup_RemovesStaleSocket(t *testing.T) {
	// A crash (SIGKILL, power loss) leaves the socket file behind with
	// nobody listening. The stand-in is a regular file: an inode that
	// stat() finds but nobody answers on.
	sockPath := shortSockPath(t, "stale")
	if err := os.WriteFile(sockPath, nil, 0o600); err != nil {
		t.Fatalf("create stale socket file: %v", err)
	}

	if err := cleanStaleSocket(sockPath); err != nil {
		t.Fatalf("cleanStaleSocket: %v", err)
	}

	if _, err := os.Stat(sockPath); !os.IsNotExist(err) {
		t.Fatal("expected stale socket file to be removed")
	}
}

func TestStaleSocketCleanup_NoFileIsNoop(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "nonexistent.sock")
	if err := cleanStaleSocket(sockPath); err != nil {
		t.Fatalf("cleanStaleSocket: %v", err)
	}
}

func TestStaleSocketCleanup_ActiveSocketReturnsError(t *testing.T) {
	sockPath := shortSockPath(t, "active")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()

	if err := cleanStaleSocket(sockPath); err == nil {
		t.Fatal("expected error for active socket, got nil")
	}

	// An active socket must never be deleted out from under its daemon.
	if _, statErr := os.Stat(sockPath); os.IsNotExist(statErr) {
		t.Fatal("active socket file should not be removed")
	}
}
