package dispatch

import "time"

// AccuracyRadius is the fixed accuracy sent with every reported location.
const AccuracyRadius = 5

// Location is a point shared by the user.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Phase is the derived stage of a conversation.
type Phase int

// Conversation phases.
const (
	// Idle has no selected services and no alarm.
	Idle Phase = iota
	// Selecting has at least one selected service and no alarm.
	Selecting
	// AlarmActive has an alarm in flight.
	AlarmActive
)

// String returns the phase name for logs.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case AlarmActive:
		return "alarm_active"
	default:
		return "unknown"
	}
}

// ConversationState is the mutable record of one conversation.
//
// ActiveAlarmID is non-empty exactly while a created alarm has not been
// canceled. PendingServices is emptied when an alarm is created from it and
// when an alarm is canceled.
type ConversationState struct {
	// CorrelationKey identifies the sender.
	CorrelationKey string
	// PendingServices are the services chosen for the next alarm.
	PendingServices ServiceSet
	// ActiveAlarmID is the dispatch alarm in flight, empty if none.
	ActiveAlarmID string
	// LastLocation is the most recent location reported to dispatch.
	LastLocation *Location
	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time
}

// NewConversationState returns an idle state for key.
func NewConversationState(key string) *ConversationState {
	return &ConversationState{
		CorrelationKey:  key,
		PendingServices: NewServiceSet(),
	}
}

// Phase derives the conversation phase from the fields.
func (s *ConversationState) Phase() Phase {
	switch {
	case s.ActiveAlarmID != "":
		return AlarmActive
	case s.PendingServices.Len() > 0:
		return Selecting
	default:
		return Idle
	}
}

// HasActiveAlarm reports whether an alarm is in flight.
func (s *ConversationState) HasActiveAlarm() bool {
	return s.ActiveAlarmID != ""
}

// SelectService adds k to the pending services.
func (s *ConversationState) SelectService(k ServiceKind) {
	if s.PendingServices == nil {
		s.PendingServices = NewServiceSet()
	}

	s.PendingServices.Add(k)
	s.UpdatedAt = time.Now()
}

// AlarmCreated consumes the pending services into the alarm id.
func (s *ConversationState) AlarmCreated(alarmID string, loc Location) {
	s.ActiveAlarmID = alarmID
	s.PendingServices = NewServiceSet()
	s.LastLocation = &loc
	s.UpdatedAt = time.Now()
}

// LocationUpdated records a location accepted by dispatch.
func (s *ConversationState) LocationUpdated(loc Location) {
	s.LastLocation = &loc
	s.UpdatedAt = time.Now()
}

// Reset returns the conversation to Idle.
func (s *ConversationState) Reset() {
	s.ActiveAlarmID = ""
	s.PendingServices = NewServiceSet()
	s.LastLocation = nil
	s.UpdatedAt = time.Now()
}

// Clone returns a deep copy of the state to avoid leaking internal references.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.PendingServices = s.PendingServices.Clone()

	if s.LastLocation != nil {
		loc := *s.LastLocation
		cloned.LastLocation = &loc
	}

	return &cloned
}
