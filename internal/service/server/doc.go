// Package server assembles and runs the alarm-dispatch bot process: the
// webhook HTTP server, the optional gRPC health server and the scheduled
// token refresh, all stopped together when the run context is canceled.
package server
