package dialogue

import (
	"strings"

	domain "github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
)

// Command is a recognized text command.
type Command int

// Text commands. CommandUnknown covers everything outside the vocabulary.
const (
	CommandUnknown Command = iota
	CommandInfo
	CommandHelp
	CommandPolice
	CommandFire
	CommandMedical
	CommandLogin
	CommandLocation
	CommandCancel
	CommandOkay
)

// Postback is a recognized postback payload.
type Postback int

// Postback payloads. PostbackUnknown covers everything else.
const (
	PostbackUnknown Postback = iota
	PostbackGetStarted
	PostbackYes
	PostbackNo
)

// Quick reply payloads sent back by the options this package offers.
const (
	payloadPolice       = "police"
	payloadFire         = "fire"
	payloadMedical      = "medical"
	payloadOkay         = "i'm okay"
	payloadNoHelpWanted = "no_help_wanted"
)

//nolint:gochecknoglobals // Read-only lookup tables.
var (
	commands = map[string]Command{
		"info":              CommandInfo,
		"help":              CommandHelp,
		payloadPolice:       CommandPolice,
		payloadFire:         CommandFire,
		payloadMedical:      CommandMedical,
		"login":             CommandLogin,
		"location":          CommandLocation,
		"cancel":            CommandCancel,
		payloadOkay:         CommandOkay,
		"i’m okay":          CommandOkay,
		payloadNoHelpWanted: CommandOkay,
	}

	postbacks = map[string]Postback{
		"get_started": PostbackGetStarted,
		"yes":         PostbackYes,
		"no":          PostbackNo,
	}
)

// ParseCommand matches the whole text, ignoring case and surrounding spaces.
func ParseCommand(text string) Command {
	return commands[strings.ToLower(strings.TrimSpace(text))]
}

// ParsePostback matches a postback payload exactly.
func ParsePostback(payload string) Postback {
	return postbacks[payload]
}

// ServiceKind returns the service a command selects.
func (c Command) ServiceKind() (domain.ServiceKind, bool) {
	switch c {
	case CommandPolice:
		return domain.Police, true
	case CommandFire:
		return domain.Fire, true
	case CommandMedical:
		return domain.Medical, true
	default:
		return 0, false
	}
}

// String returns the command name for logs.
func (c Command) String() string {
	switch c {
	case CommandInfo:
		return "info"
	case CommandHelp:
		return "help"
	case CommandPolice:
		return "police"
	case CommandFire:
		return "fire"
	case CommandMedical:
		return "medical"
	case CommandLogin:
		return "login"
	case CommandLocation:
		return "location"
	case CommandCancel:
		return "cancel"
	case CommandOkay:
		return "okay"
	default:
		return "unknown"
	}
}
