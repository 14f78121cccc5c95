// Package version exposes build metadata for posture-monitor and posture-watch.
//
// Version, Commit and BuildTime are injected at build time via -ldflags.
package version
