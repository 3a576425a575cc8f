// Package splitter extracts audio segments from a source file.
//
// Segments are independent units of work: every segment is validated
// against the probed source duration before any subprocess runs, invalid
// and failed segments are aggregated per index, and the surviving outputs
// always preserve request order no matter how the bounded worker pool
// schedules them.
package splitter
