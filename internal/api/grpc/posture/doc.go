// Package posture exposes the monitoring session over gRPC.
//
// The service is declared by hand on top of protobuf well-known types, so
// no generated code is needed: GetStatus returns a Struct with session
// counters and WatchAlerts streams one Struct per fired alert.
package posture
