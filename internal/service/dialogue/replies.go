package dialogue

import (
	"fmt"

	"github.com/oshokin/alarm-dispatch/internal/domain/chat"
	domain "github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
)

// Reply texts.
const (
	textInfo = "I connect you with emergency dispatch. Type \"help\" to ask for police, fire " +
		"or medical services, \"login\" to connect your dispatch account, " +
		"\"cancel\" to call off an alarm."
	textHelp            = "What kind of help do you need?"
	textLogin           = "Log in to the dispatch service so we can send help on your behalf."
	textWelcome         = "Hello! If you need help, log in below and then share your location."
	textLoginRequired   = "You need to log in to the dispatch service before we can send help."
	textShareLocation   = "Share your location so we can send help."
	textShareNewPlace   = "Share your new location to update your alarm."
	textAlarmRunning    = "Your alarm is already active. Share your location to update it, or type \"cancel\"."
	textAlarmCreated    = "Location received. We are sending %s. If you want, share your phone number and we will contact you that way."
	textCreateFailed    = "We could not reach emergency dispatch. Please share your location again."
	textLocationUpdated = "Location updated. Help is on the way."
	textUpdateFailed    = "We could not update your location. Please share it again."
	textCanceled        = "Your alarm has been canceled."
	textNothingToCancel = "There is nothing to cancel."
	textCancelFailed    = "We could not cancel your alarm. Please try again."
	textOkayCanceled    = "Glad you're okay. Your alarm has been canceled."
	textOkay            = "Glad to hear you're okay."
	textThanks          = "Thanks!"
	textSorry           = "Sorry about that. Try sending another."
	textEcho            = "You sent the message: \"%s\""
	textInternalError   = "Something went wrong. Please try again."
)

// serviceOptions are the quick replies for choosing services.
//
//nolint:gochecknoglobals // Read-only option list.
var serviceOptions = []struct {
	kind  domain.ServiceKind
	reply chat.QuickReply
}{
	{domain.Police, chat.QuickReply{Kind: chat.QuickReplyText, Title: "Police", Payload: payloadPolice}},
	{domain.Fire, chat.QuickReply{Kind: chat.QuickReplyText, Title: "Fire", Payload: payloadFire}},
	{domain.Medical, chat.QuickReply{Kind: chat.QuickReplyText, Title: "Medical", Payload: payloadMedical}},
}

//nolint:gochecknoglobals // Read-only option values.
var (
	okayOption     = chat.QuickReply{Kind: chat.QuickReplyText, Title: "I'm okay", Payload: payloadOkay}
	locationOption = chat.QuickReply{Kind: chat.QuickReplyLocation}
	phoneOption    = chat.QuickReply{Kind: chat.QuickReplyPhoneNumber}
)

func plain(body string) chat.Response {
	return chat.PlainText{Body: body}
}

// helpPrompt offers every service plus "I'm okay".
func helpPrompt() chat.Response {
	options := make([]chat.QuickReply, 0, len(serviceOptions)+1)
	for _, o := range serviceOptions {
		options = append(options, o.reply)
	}

	return chat.QuickReplyPrompt{
		Body:    textHelp,
		Options: append(options, okayOption),
	}
}

// selectedPrompt asks for a location and offers the services not chosen yet.
func selectedPrompt(kind domain.ServiceKind, pending domain.ServiceSet) chat.Response {
	options := []chat.QuickReply{locationOption}

	for _, o := range serviceOptions {
		if !pending.Has(o.kind) {
			options = append(options, o.reply)
		}
	}

	return chat.QuickReplyPrompt{
		Body:    fmt.Sprintf("%s selected (%s). Share your location to send help, or add another service.", kind, pending),
		Options: options,
	}
}

func locationPrompt(body string) chat.Response {
	return chat.QuickReplyPrompt{
		Body:    body,
		Options: []chat.QuickReply{locationOption},
	}
}

func alarmCreatedPrompt(services domain.ServiceSet) chat.Response {
	return chat.QuickReplyPrompt{
		Body:    fmt.Sprintf(textAlarmCreated, services),
		Options: []chat.QuickReply{phoneOption},
	}
}
