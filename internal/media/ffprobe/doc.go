// Package ffprobe drives the external media prober and decodes its JSON
// output into media.Info.
//
// Probe failures are classified into four reasons: not-found, unreadable,
// toolchain-error (non-zero prober exit, stderr preserved verbatim), and
// malformed-metadata (undecodable output or an empty stream list).
package ffprobe
