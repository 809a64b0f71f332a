// Package logger wraps zap for the node binaries:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and the WithLevel core option,
//   - leveled helpers that take a context (Infof, WarnKV, ...).
//
// Components receive a context carrying a named logger so each log line
// says which part of the node produced it.
package logger
