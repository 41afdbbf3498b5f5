// Package store defines the contract both storage backends satisfy: the local
// embedded sqlite store and the remote spreadsheet proxy. Everything above
// this interface is oblivious to which backend is active.
package store

import (
	"context"
	"errors"

	"eventleader/internal/model"
)

var (
	// ErrEventCodeTaken is returned on an attempt to create an event whose
	// code already exists.
	ErrEventCodeTaken = errors.New("event code already taken")
	// ErrTeamTaken is returned on an attempt to register a second
	// participant under the same team name within one event.
	ErrTeamTaken = errors.New("team already registered for this event")
)

// Store is the uniform CRUD surface over the five collections (admins,
// events, participants and the two score tables).
//
// Lookups by natural key return (nil, nil) when no record exists; a non-nil
// error always means the operation itself failed. UpdateEvent replaces the
// full record, there are no partial-update semantics. DeleteEventByCode
// cascades to participants and both score tables; the local backend does this
// atomically, the sheet backend step by step with no rollback.
type Store interface {
	// RegisterAdmin is idempotent: a known phone returns the existing admin.
	RegisterAdmin(ctx context.Context, name, phone string) (*model.Admin, error)
	GetAdminByPhone(ctx context.Context, phone string) (*model.Admin, error)

	CreateEvent(ctx context.Context, ev *model.Event) error
	GetEventByCode(ctx context.Context, code string) (*model.Event, error)
	GetEventsByAdmin(ctx context.Context, adminPhone string) ([]model.Event, error)
	UpdateEvent(ctx context.Context, ev *model.Event) error
	DeleteEventByCode(ctx context.Context, code string) error

	AddParticipant(ctx context.Context, p *model.Participant) error
	GetParticipantsByEvent(ctx context.Context, eventCode string) ([]model.Participant, error)

	// SetScore upserts the score row for (teamName, eventCode) in the given
	// round, stamping it with the current time (last write wins).
	SetScore(ctx context.Context, round model.Round, teamName, eventCode string, score float64) error
	// GetLeaderboard returns the round's score rows for the event, highest
	// score first, ties broken by earliest update and then team name.
	GetLeaderboard(ctx context.Context, round model.Round, eventCode string) ([]model.ScoreEntry, error)

	Close()
}
