// Package config defines the posture alarm settings and provides helpers
// to load, validate and save them in YAML format.
//
// Thresholds are expressed in milliseconds; Validate fills defaults
// (20s bad threshold, 90s cooldown) only for absent fields, so 0 is kept.
package config
