// Package worker is the job intake and orchestration layer.
//
// A job moves through received -> validating -> probing -> executing and
// ends in succeeded, partially_succeeded (split only), or failed. The
// workspace opened at intake is released on every exit path via defer,
// after the optional output consumer has run. Nothing here retries: a
// failed toolchain invocation is surfaced to the caller, who owns the
// retry decision.
package worker
