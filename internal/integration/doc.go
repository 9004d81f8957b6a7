// Package integration runs the assembled bot against fake dispatch and
// Messenger endpoints.
package integration
