// Package media defines the probed-metadata types shared by the split and
// merge pipelines.
package media
