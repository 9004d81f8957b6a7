package webhook

import "github.com/oshokin/alarm-dispatch/internal/domain/chat"

// objectPage marks deliveries from a page subscription.
const objectPage = "page"

type deliveryBody struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	Messaging []messaging `json:"messaging"`
}

type messaging struct {
	Sender   party            `json:"sender"`
	Message  *incomingMessage `json:"message,omitempty"`
	Postback *postback        `json:"postback,omitempty"`
}

type party struct {
	ID string `json:"id"`
}

type incomingMessage struct {
	Text        string       `json:"text"`
	QuickReply  *quickReply  `json:"quick_reply,omitempty"`
	Attachments []attachment `json:"attachments"`
}

type quickReply struct {
	Payload string `json:"payload"`
}

type postback struct {
	Payload string `json:"payload"`
}

type attachment struct {
	Type    string            `json:"type"`
	Payload attachmentPayload `json:"payload"`
}

type attachmentPayload struct {
	Coordinates *coordinates `json:"coordinates,omitempty"`
}

type coordinates struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// events flattens a delivery into chat events; items without a usable
// message or postback are skipped.
func (b *deliveryBody) events() []chat.InboundEvent {
	var events []chat.InboundEvent

	for _, e := range b.Entry {
		for _, m := range e.Messaging {
			if event, ok := m.event(); ok {
				events = append(events, event)
			}
		}
	}

	return events
}

func (m *messaging) event() (chat.InboundEvent, bool) {
	key := m.Sender.ID
	if key == "" {
		return chat.InboundEvent{}, false
	}

	switch {
	case m.Postback != nil:
		return chat.NewPostback(key, m.Postback.Payload), true
	case m.Message == nil:
		return chat.InboundEvent{}, false
	case m.Message.QuickReply != nil && m.Message.QuickReply.Payload != "":
		return chat.NewText(key, m.Message.QuickReply.Payload), true
	case m.Message.Text != "":
		return chat.NewText(key, m.Message.Text), true
	}

	for _, a := range m.Message.Attachments {
		if a.Payload.Coordinates != nil {
			return chat.NewLocation(key, a.Payload.Coordinates.Lat, a.Payload.Coordinates.Long), true
		}
	}

	return chat.InboundEvent{}, false
}
