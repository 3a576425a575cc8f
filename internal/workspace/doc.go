// Package workspace provides job-scoped temporary directories.
//
// Each job exclusively owns one Handle whose directory name embeds the job
// id plus a random suffix. Release is idempotent and is meant to be wired
// to a defer at job intake so the directory disappears on every exit path.
package workspace
