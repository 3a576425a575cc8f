// Package runner executes external toolchain binaries with bounded
// timeouts, caller cancellation, and output capture.
//
// The Runner interface is the seam the rest of the pipeline is tested
// through: orchestration code runs against a deterministic fake while the
// Exec implementation owns the real process lifecycle, including the
// guarantee that a timed-out or cancelled invocation never leaves a live
// process behind.
package runner
