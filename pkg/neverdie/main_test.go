package neverdie

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies a stopped Supervisor leaves no tick goroutine running.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
