package engine //nolint:testpackage // internal white-box tests need access to unexported fields

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

// waitFor polls condition until it is true or the timeout expires.
func waitFor(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond) // short poll inside helper is OK
	}
	t.Fatalf("waitFor: condition not met within %v", timeout)
}

// testLogger returns a no-op logger for tests.
func testLogger() *zap.Logger {
	return zap.NewNop()
}
