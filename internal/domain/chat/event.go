package chat

import (
	"time"

	"github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
)

// EventKind tells which variant an InboundEvent carries.
type EventKind int

// Inbound event variants.
const (
	// KindText is a typed message or a quick-reply tap.
	KindText EventKind = iota + 1
	// KindLocation is a shared location attachment.
	KindLocation
	// KindPostback is a button or get-started postback.
	KindPostback
)

// String returns the variant name for logs.
func (k EventKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindLocation:
		return "location"
	case KindPostback:
		return "postback"
	default:
		return "unknown"
	}
}

// InboundEvent is one message or postback from a sender.
// Only the field matching Kind is meaningful.
type InboundEvent struct {
	CorrelationKey string
	Kind           EventKind
	Text           string
	Location       dispatch.Location
	Payload        string
	ReceivedAt     time.Time
}

// NewText builds a text event.
func NewText(key, text string) InboundEvent {
	return InboundEvent{CorrelationKey: key, Kind: KindText, Text: text, ReceivedAt: time.Now()}
}

// NewLocation builds a location event.
func NewLocation(key string, lat, lng float64) InboundEvent {
	return InboundEvent{
		CorrelationKey: key,
		Kind:           KindLocation,
		Location:       dispatch.Location{Latitude: lat, Longitude: lng},
		ReceivedAt:     time.Now(),
	}
}

// NewPostback builds a postback event.
func NewPostback(key, payload string) InboundEvent {
	return InboundEvent{CorrelationKey: key, Kind: KindPostback, Payload: payload, ReceivedAt: time.Now()}
}
