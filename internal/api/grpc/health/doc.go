// Package health exposes the standard gRPC health-checking service.
//
// The overall status follows the process lifecycle; the "alarm-dispatch"
// service reports SERVING only while the bot holds dispatch credentials, so
// orchestrators can tell a running but logged-out bot from a ready one.
package health
