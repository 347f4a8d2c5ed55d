// -----------------------------------------------------------------------
// Crash protection - panic recovery helpers shared across worker goroutines
// -----------------------------------------------------------------------

package common

import "runtime"

// GetStackTrace returns the current goroutine's stack trace, used by
// panic-recovery defers in the scheduler tick loop and worker pools so a
// single misbehaving job cannot take the process down (§5, §9).
func GetStackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
