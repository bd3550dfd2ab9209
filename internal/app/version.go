// Package app carries build metadata injected with -ldflags.
package app

var (
	Version     = "dev"
	BuildCommit = "unknown"
)
