// Package testing holds helpers shared by package tests.
package testing

import (
	"runtime"
	"testing"
	"time"
)

// CheckGoroutineCleanup fails the test if goroutines started after the call
// are still running when the returned func runs.
//
//	defer CheckGoroutineCleanup(t)()
func CheckGoroutineCleanup(t *testing.T) func() {
	t.Helper()
	before := runtime.NumGoroutine()

	return func() {
		t.Helper()
		// polled on the test goroutine; a checker goroutine would count itself
		deadline := time.Now().Add(5 * time.Second)
		for runtime.NumGoroutine() > before {
			if time.Now().After(deadline) {
				t.Errorf("goroutines leaked: %d running, %d before", runtime.NumGoroutine(), before)
				DumpGoroutines(t)
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// DumpGoroutines writes every goroutine stack to the test log.
func DumpGoroutines(t *testing.T) {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	t.Logf("Goroutine stack traces (%d goroutines):\n%s", runtime.NumGoroutine(), buf[:n])
}
