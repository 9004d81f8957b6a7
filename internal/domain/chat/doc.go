// Package chat defines what enters and leaves a conversation: inbound events
// received from the messaging platform and the response descriptors handed to
// the notification sink for rendering.
package chat
