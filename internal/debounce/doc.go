// Package debounce turns a stream of per-frame posture verdicts into
// de-bounced, cooldown-limited alert decisions.
//
// Step and Miss are pure transition functions over State; Machine is a thin
// stateful wrapper for the single-threaded sampling loop. Time is always
// passed in, so the machine runs unchanged against a simulated clock.
package debounce
