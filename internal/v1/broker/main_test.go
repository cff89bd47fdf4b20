package broker

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that no test in this package leaks a goroutine — specifically the
// session read/write pumps the disconnect path is responsible for tearing down, and any
// invite deadline callback still running. A deadline timer that has not fired holds no
// goroutine, so goleak does not see it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
