// Package session keeps ConversationState records keyed by correlation key.
//
// The MemoryStore serializes work per key: two events of one sender never
// interleave, while events of different senders proceed in parallel.
package session
