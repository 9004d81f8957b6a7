// Package webhook is the HTTP face of the bot.
//
// It answers the Messenger subscription handshake, turns webhook deliveries
// into chat events, and completes the dispatch OAuth login on the callback
// route. Event processing happens in the background: deliveries are
// acknowledged as soon as they are parsed.
package webhook
