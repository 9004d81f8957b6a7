package dialogue

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/alarm-dispatch/internal/domain/chat"
	domain "github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
	"github.com/oshokin/alarm-dispatch/internal/logger"
	"github.com/oshokin/alarm-dispatch/internal/repository/session"
	"github.com/oshokin/alarm-dispatch/internal/service/dispatch"
)

// AlarmService is the subset of the dispatch client the engine drives.
type AlarmService interface {
	Create(ctx context.Context, services domain.ServiceSet, loc domain.Location) (string, error)
	UpdateLocation(ctx context.Context, alarmID string, loc domain.Location) error
	Cancel(ctx context.Context, alarmID string) error
}

// Authorizer builds the dispatch login address for an OAuth state value.
type Authorizer interface {
	AuthorizeURL(state string) string
}

// NonceIssuer binds a fresh OAuth state value to a correlation key.
type NonceIssuer interface {
	Issue(key string) string
}

// Engine is the conversation state machine.
type Engine struct {
	sessions   session.Store
	alarms     AlarmService
	authorizer Authorizer
	nonces     NonceIssuer
}

// NewEngine wires the engine to its collaborators.
func NewEngine(sessions session.Store, alarms AlarmService, authorizer Authorizer, nonces NonceIssuer) *Engine {
	return &Engine{
		sessions:   sessions,
		alarms:     alarms,
		authorizer: authorizer,
		nonces:     nonces,
	}
}

// Handle processes one event for its sender and returns the reply.
func (e *Engine) Handle(ctx context.Context, event chat.InboundEvent) chat.Response {
	ctx = logger.WithKV(ctx, "correlation_key", event.CorrelationKey)

	var response chat.Response

	state, err := e.sessions.Update(ctx, event.CorrelationKey, func(state *domain.ConversationState) error {
		response = e.transition(ctx, state, event)

		return nil
	})
	if err != nil {
		logger.ErrorKV(ctx, "Session update failed", "error", err)

		return plain(textInternalError)
	}

	logger.DebugKV(ctx, "Event handled", "kind", event.Kind.String(), "phase", state.Phase().String())

	return response
}

// transition mutates state for event and returns the reply.
func (e *Engine) transition(ctx context.Context, state *domain.ConversationState, event chat.InboundEvent) chat.Response {
	switch event.Kind {
	case chat.KindText:
		return e.onText(ctx, state, event.Text)
	case chat.KindLocation:
		return e.onLocation(ctx, state, event.Location)
	case chat.KindPostback:
		return e.onPostback(state, event.Payload)
	default:
		logger.WarnKV(ctx, "Unsupported event kind", "kind", event.Kind.String())

		return plain(textInternalError)
	}
}

func (e *Engine) onText(ctx context.Context, state *domain.ConversationState, text string) chat.Response {
	command := ParseCommand(text)

	switch command {
	case CommandInfo:
		return plain(textInfo)
	case CommandHelp:
		return helpPrompt()
	case CommandPolice, CommandFire, CommandMedical:
		kind, _ := command.ServiceKind()

		return e.selectService(state, kind)
	case CommandLogin:
		return e.loginPrompt(state, textLogin)
	case CommandLocation:
		if state.HasActiveAlarm() {
			return locationPrompt(textShareNewPlace)
		}

		if state.PendingServices.Len() == 0 {
			state.SelectService(domain.Police)
		}

		return locationPrompt(textShareLocation)
	case CommandCancel:
		return e.cancel(ctx, state, textCanceled, textNothingToCancel)
	case CommandOkay:
		return e.cancel(ctx, state, textOkayCanceled, textOkay)
	case CommandUnknown:
		return plain(fmt.Sprintf(textEcho, text))
	default:
		return plain(fmt.Sprintf(textEcho, text))
	}
}

func (e *Engine) selectService(state *domain.ConversationState, kind domain.ServiceKind) chat.Response {
	if state.HasActiveAlarm() {
		return locationPrompt(textAlarmRunning)
	}

	state.SelectService(kind)

	return selectedPrompt(kind, state.PendingServices)
}

// cancel calls off the active alarm, or just resets when there is none.
func (e *Engine) cancel(ctx context.Context, state *domain.ConversationState, done, idle string) chat.Response {
	if !state.HasActiveAlarm() {
		state.Reset()

		return plain(idle)
	}

	if err := e.alarms.Cancel(ctx, state.ActiveAlarmID); err != nil {
		logger.ErrorKV(ctx, "Alarm cancel failed", "alarm_id", state.ActiveAlarmID, "error", err)

		return e.failure(state, err, textCancelFailed)
	}

	state.Reset()

	return plain(done)
}

func (e *Engine) onLocation(ctx context.Context, state *domain.ConversationState, loc domain.Location) chat.Response {
	if state.HasActiveAlarm() {
		if err := e.alarms.UpdateLocation(ctx, state.ActiveAlarmID, loc); err != nil {
			logger.ErrorKV(ctx, "Alarm location update failed", "alarm_id", state.ActiveAlarmID, "error", err)

			return e.failure(state, err, textUpdateFailed)
		}

		state.LocationUpdated(loc)

		return plain(textLocationUpdated)
	}

	// A bare location is a police request.
	if state.PendingServices.Len() == 0 {
		state.SelectService(domain.Police)
	}

	services := state.PendingServices.Clone()

	alarmID, err := e.alarms.Create(ctx, services, loc)
	if err != nil {
		logger.ErrorKV(ctx, "Alarm create failed", "services", services.String(), "error", err)

		return e.failure(state, err, textCreateFailed)
	}

	state.AlarmCreated(alarmID, loc)

	return alarmCreatedPrompt(services)
}

func (e *Engine) onPostback(state *domain.ConversationState, payload string) chat.Response {
	switch ParsePostback(payload) {
	case PostbackGetStarted:
		return e.loginPrompt(state, textWelcome)
	case PostbackYes:
		return plain(textThanks)
	case PostbackNo:
		return plain(textSorry)
	case PostbackUnknown:
		return plain(fmt.Sprintf(textEcho, payload))
	default:
		return plain(fmt.Sprintf(textEcho, payload))
	}
}

func (e *Engine) loginPrompt(state *domain.ConversationState, body string) chat.Response {
	return chat.LoginPrompt{
		Body:         body,
		AuthorizeURL: e.authorizer.AuthorizeURL(e.nonces.Issue(state.CorrelationKey)),
	}
}

// failure turns a dispatch error into a reply; missing credentials get a login prompt.
func (e *Engine) failure(state *domain.ConversationState, err error, text string) chat.Response {
	if errors.Is(err, dispatch.ErrUnauthenticated) {
		return e.loginPrompt(state, textLoginRequired)
	}

	return plain(text)
}
