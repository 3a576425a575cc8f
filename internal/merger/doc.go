// Package merger concatenates video segments into a single output.
//
// Unlike splitting, merging is all-or-nothing: every input is probed up
// front, strategy compatibility is checked before any subprocess runs, and
// a single failure voids the whole job. The concat manifest and output
// live in the job workspace, so nothing partial outlives a failed merge.
package merger
