// Package logger wraps zap with a process-wide sugared logger.
//
// Services never hold a logger directly: they take a context and use the
// package helpers (InfoKV, ErrorKV, ...), which pull a scoped logger out of it.
// Scopes are added with WithName and WithKV, so every line written while an
// inbound event is processed carries that event's correlation key.
package logger
