package engine

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in the
// engine package. Every run's producer goroutine must exit once the
// consumer drains the stream or abandons the run.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
