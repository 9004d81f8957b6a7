// Package dialogue turns inbound chat events into alarm actions and replies.
//
// Text is matched against a closed keyword vocabulary (see Command). Each
// event is handled under its sender's session lock: alarm calls complete
// before the session changes, and a failed call leaves the session as it was
// so the user can simply repeat the command.
package dialogue
