// Package common holds helpers shared by several services.
//
// It provides a gRPC client for the posture monitor with call timeouts,
// host detection used to tag published alerts, and a single-instance guard
// so only one monitor at a time owns the camera.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
