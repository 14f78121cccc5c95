// Package daemon implements the posture-monitor process.
//
// It loads the settings, acquires the landmark source, runs the sampling
// session and fans every fired alert out to the configured sinks: the log,
// gRPC watchers, the desktop notifier, the journal and the remote publishers.
package daemon
