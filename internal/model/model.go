package model

import (
	"time"

	"eventleader/internal/util/timeutil"
)

// Round selects one of the two scoring phases of an event.
type Round int

const (
	Round1 Round = 1
	Round2 Round = 2
)

func (r Round) String() string {
	switch r {
	case Round1:
		return "round1"
	case Round2:
		return "round2"
	default:
		return "?"
	}
}

// Round2Mode is how the second round is scored. An empty mode means round 2
// has never been configured for the event.
type Round2Mode string

const (
	Round2None       Round2Mode = ""
	Round2Qualifier  Round2Mode = "qualifier"
	Round2Cumulative Round2Mode = "cumulative"
)

// StringList is stored as JSON text in a single column (or a single
// spreadsheet cell on the sheet backend).
type StringList []string

type Admin struct {
	ID        uint            `gorm:"primaryKey" json:"id,omitempty"`
	Phone     string          `gorm:"uniqueIndex" json:"phone"`
	Name      string          `json:"name"`
	CreatedAt timeutil.Millis `gorm:"autoCreateTime:false" json:"createdAt"`
}

type Event struct {
	ID         uint            `gorm:"primaryKey" json:"id,omitempty"`
	Code       string          `gorm:"uniqueIndex" json:"code"`
	Name       string          `json:"name"`
	AdminPhone string          `gorm:"index" json:"adminPhone"`
	CreatedAt  timeutil.Millis `gorm:"autoCreateTime:false" json:"createdAt"`
	IsActive   bool            `json:"isActive"`

	WinnersCount      int              `json:"winnersCount"`
	WinnersDeclaredAt *timeutil.Millis `json:"winnersDeclaredAt"`

	Round2Mode              Round2Mode       `json:"round2Mode"`
	Round2TopN              int              `json:"round2TopN"`
	Round2Active            bool             `json:"round2Active"`
	Round2WinnersCount      int              `json:"round2WinnersCount"`
	Round2WinnersDeclaredAt *timeutil.Millis `json:"round2WinnersDeclaredAt"`
	Round2Teams             StringList       `gorm:"serializer:json" json:"round2Teams"`
}

// NewEvent returns an event in its initial state: active, no winners, all
// round-2 fields at their zero defaults.
func NewEvent(name, code, adminPhone string, now timeutil.Millis) *Event {
	return &Event{
		Code:        code,
		Name:        name,
		AdminPhone:  adminPhone,
		CreatedAt:   now,
		IsActive:    true,
		Round2Teams: StringList{},
	}
}

// DeclaredAt returns the timestamp driving the auto-reset countdown. The
// round-2 declaration takes precedence over round 1 when both are set.
func (e *Event) DeclaredAt() *timeutil.Millis {
	if e.Round2WinnersDeclaredAt != nil {
		return e.Round2WinnersDeclaredAt
	}
	return e.WinnersDeclaredAt
}

// Expired reports whether the event has outlived its reset delay. Events with
// no winners declared never expire.
func (e *Event) Expired(now timeutil.Millis, delay time.Duration) bool {
	declared := e.DeclaredAt()
	if declared == nil {
		return false
	}
	return now.Sub(*declared) >= delay
}

type Participant struct {
	ID        uint            `gorm:"primaryKey" json:"id,omitempty"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	TeamName  string          `gorm:"uniqueIndex:uidx_participants_team_event" json:"teamName"`
	EventCode string          `gorm:"index;uniqueIndex:uidx_participants_team_event" json:"eventCode"`
	JoinedAt  timeutil.Millis `json:"joinedAt"`
}

type ScoreEntry struct {
	ID        uint            `gorm:"primaryKey" json:"id,omitempty"`
	TeamName  string          `gorm:"uniqueIndex:uidx_scores_team_event" json:"teamName"`
	EventCode string          `gorm:"index;uniqueIndex:uidx_scores_team_event" json:"eventCode"`
	Score     float64         `json:"score"`
	UpdatedAt timeutil.Millis `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

func (ScoreEntry) TableName() string { return "scores" }

// ScoreEntryR2 mirrors ScoreEntry in a separate table, so that both rounds
// keep their own (teamName, eventCode) uniqueness.
type ScoreEntryR2 struct {
	ID        uint            `gorm:"primaryKey" json:"id,omitempty"`
	TeamName  string          `gorm:"uniqueIndex:uidx_scores_r2_team_event" json:"teamName"`
	EventCode string          `gorm:"index;uniqueIndex:uidx_scores_r2_team_event" json:"eventCode"`
	Score     float64         `json:"score"`
	UpdatedAt timeutil.Millis `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

func (ScoreEntryR2) TableName() string { return "scores_r2" }

func (s ScoreEntryR2) AsEntry() ScoreEntry {
	return ScoreEntry{
		ID:        s.ID,
		TeamName:  s.TeamName,
		EventCode: s.EventCode,
		Score:     s.Score,
		UpdatedAt: s.UpdatedAt,
	}
}
