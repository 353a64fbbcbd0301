package session

import "quiz-session-service/internal/domain"

// EventKind identifies a signal emitted by the controller.
type EventKind string

const (
	EventPhaseChanged       EventKind = "phaseChanged"
	EventTick               EventKind = "tick"
	EventWarning            EventKind = "warning"
	EventNavigationBlocked  EventKind = "navigationBlocked"
	EventNavigationReleased EventKind = "navigationReleased"
	EventSessionCompleted   EventKind = "sessionCompleted"
	EventSessionError       EventKind = "sessionError"
)

// Event is a signal delivered to presentation-layer subscribers.
type Event struct {
	Kind      EventKind            `json:"kind"`
	Phase     domain.Phase         `json:"phase,omitempty"`
	Remaining int                  `json:"remaining,omitempty"`
	Target    string               `json:"target,omitempty"`
	Message   string               `json:"message,omitempty"`
	Result    *domain.ResultRecord `json:"result,omitempty"`
}
