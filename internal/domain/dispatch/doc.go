// Package dispatch contains the core domain types of an emergency request.
//
// A conversation collects ServiceKinds, turns them into an alarm once a
// location is known, and keeps following that alarm until it is canceled.
// ConversationState is the per-sender record of that progress; TokenPair is
// the process-wide OAuth credential used to talk to the dispatch service.
package dispatch
