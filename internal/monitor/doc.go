// Package monitor implements the posture sampling loop.
//
// A Session acquires a video stream and a landmark detector once, then on
// every tick pulls a frame, classifies it and feeds the verdict to the
// debounce machine, invoking alert sinks synchronously when it fires.
// All debounce state lives on the loop goroutine; tearing the session down
// is done by cancelling the context passed to Run.
package monitor
