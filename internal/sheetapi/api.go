// Package sheetapi is the wire protocol of the spreadsheet storage proxy:
// a single HTTP endpoint dispatching on an `action` parameter, JSON payloads,
// and every response delivered with HTTP 200 — errors travel inside the body
// as {"error": ...}, never as status codes. The client side implements
// store.Store, so the rest of the application cannot tell it apart from the
// embedded store.
package sheetapi

import (
	"fmt"

	"eventleader/internal/model"
)

type Action string

const (
	ActionGetEvent         Action = "getEvent"
	ActionGetAdminEvents   Action = "getAdminEvents"
	ActionCreateEvent      Action = "createEvent"
	ActionUpdateEvent      Action = "updateEvent"
	ActionDeleteEvent      Action = "deleteEvent"
	ActionRegisterAdmin    Action = "registerAdmin"
	ActionGetAdmin         Action = "getAdmin"
	ActionAddParticipant   Action = "addParticipant"
	ActionGetParticipants  Action = "getParticipants"
	ActionSetScore         Action = "setScore"
	ActionSetScoreR2       Action = "setScoreR2"
	ActionGetLeaderboard   Action = "getLeaderboard"
	ActionGetLeaderboardR2 Action = "getLeaderboardR2"
	ActionResetEvent       Action = "resetEvent"
)

// Error is the in-body error of the protocol.
type Error struct {
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote store: %v", e.Message)
}

var _ error = (*Error)(nil)

type successBody struct {
	Success bool `json:"success"`
}

type codePayload struct {
	Code string `json:"code"`
}

type phonePayload struct {
	Phone string `json:"phone"`
}

// registerAdminPayload carries no timestamp: the serving store stamps
// registration time itself.
type registerAdminPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type scorePayload struct {
	TeamName  string  `json:"teamName"`
	EventCode string  `json:"eventCode"`
	Score     float64 `json:"score"`
}

type eventPayload = model.Event

type participantPayload = model.Participant
