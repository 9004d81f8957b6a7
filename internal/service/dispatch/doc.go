// Package dispatch is the HTTP client of the emergency-dispatch alarm API.
//
// It creates alarms, moves them to a new location and cancels them. Every
// call needs the bearer credential of the auth Manager; failures of any kind
// come back as ErrUnauthenticated or ErrRequestFailed.
package dispatch
