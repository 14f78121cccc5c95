// Package classifier maps a detected pose to a bad-posture verdict.
//
// Strategies are interchangeable and chosen at construction time by name.
// A strategy reports ok=false when no verdict is possible (missing pose,
// zero-length vectors, non-finite coordinates); callers treat that as a tick
// without classification rather than as good or bad posture.
package classifier
