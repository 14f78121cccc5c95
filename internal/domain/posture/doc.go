// Package posture contains core domain types for posture monitoring.
//
// It defines Keypoint and Pose (one detected body per frame), Frame (a video
// frame with its detection results), Classification (one per-frame verdict)
// and Alert (the de-bounced, rate-limited event handed to sinks).
package posture
