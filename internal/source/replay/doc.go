// Package replay plays back recorded landmark sessions.
//
// A recording is a YAML file listing frames with their detected poses.
// The Player serves both as the video stream and as the landmark detector
// of a monitoring session, which makes the daemon usable without a camera
// and lets scenarios be reproduced exactly.
package replay
