// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// The monitor session, the gRPC transport and every alert publisher take
// a context and extract the logger from it, so each alert can be traced
// through the fan-out with the session scope attached.
package logger
