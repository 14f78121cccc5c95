// Package watch implements the posture-watch command: it follows the alert
// stream of a running posture-monitor and reconnects when the stream breaks.
package watch
