// Package main hosts the splice CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into worker
// jobs (audio splitting and video merging), media probing, dependency health
// checks, and configuration scaffolding. It centralizes configuration
// resolution and structured logging setup so subcommands can focus on user
// experience instead of wiring.
package main
