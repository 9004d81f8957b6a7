package chat

// Response is a renderable reply. It is one of PlainText, QuickReplyPrompt
// or LoginPrompt.
type Response interface {
	response()
}

// PlainText is a plain message.
type PlainText struct {
	Body string
}

// QuickReplyKind selects how a quick reply is rendered.
type QuickReplyKind int

// Quick reply variants.
const (
	// QuickReplyText is a titled button sending Payload back.
	QuickReplyText QuickReplyKind = iota + 1
	// QuickReplyLocation asks the platform to share the user's location.
	QuickReplyLocation
	// QuickReplyPhoneNumber offers the user's phone number.
	QuickReplyPhoneNumber
)

// QuickReply is one option under a prompt.
type QuickReply struct {
	Kind    QuickReplyKind
	Title   string
	Payload string
}

// QuickReplyPrompt is a message with tap-to-answer options.
type QuickReplyPrompt struct {
	Body    string
	Options []QuickReply
}

// LoginPrompt asks the user to authorize the bot at AuthorizeURL.
type LoginPrompt struct {
	Body         string
	AuthorizeURL string
}

func (PlainText) response()        {}
func (QuickReplyPrompt) response() {}
func (LoginPrompt) response()      {}
