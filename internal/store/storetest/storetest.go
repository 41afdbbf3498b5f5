// Package storetest provides an in-memory Store for tests that need storage
// without a database file. It honors the same constraints as the real
// backends: natural-key uniqueness, (nil, nil) for absent records, cascade
// delete and the leaderboard sort order.
package storetest

import (
	"context"
	"fmt"
	"sync"

	"eventleader/internal/model"
	"eventleader/internal/standings"
	"eventleader/internal/store"
	"eventleader/internal/util/timeutil"
)

type MemStore struct {
	// Now substitutes the clock used to stamp score updates.
	Now func() timeutil.Millis

	mu           sync.Mutex
	admins       []model.Admin
	events       []model.Event
	participants []model.Participant
	scores       []model.ScoreEntry
	scoresR2     []model.ScoreEntry
	nextID       uint
}

var _ store.Store = (*MemStore)(nil)

func New() *MemStore {
	return &MemStore{Now: timeutil.NowMillis}
}

func (m *MemStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *MemStore) RegisterAdmin(ctx context.Context, name, phone string) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.admins {
		if m.admins[i].Phone == phone {
			a := m.admins[i]
			return &a, nil
		}
	}
	a := model.Admin{ID: m.id(), Name: name, Phone: phone, CreatedAt: m.Now()}
	m.admins = append(m.admins, a)
	return &a, nil
}

func (m *MemStore) GetAdminByPhone(ctx context.Context, phone string) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.admins {
		if m.admins[i].Phone == phone {
			a := m.admins[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (m *MemStore) CreateEvent(ctx context.Context, ev *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].Code == ev.Code {
			return store.ErrEventCodeTaken
		}
	}
	ev.ID = m.id()
	m.events = append(m.events, *ev)
	return nil
}

func (m *MemStore) GetEventByCode(ctx context.Context, code string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].Code == code {
			ev := m.events[i]
			return &ev, nil
		}
	}
	return nil, nil
}

func (m *MemStore) GetEventsByAdmin(ctx context.Context, adminPhone string) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Event
	for i := range m.events {
		if m.events[i].AdminPhone == adminPhone {
			res = append(res, m.events[i])
		}
	}
	return res, nil
}

func (m *MemStore) UpdateEvent(ctx context.Context, ev *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].Code == ev.Code {
			m.events[i] = *ev
			return nil
		}
	}
	return fmt.Errorf("event %q not found", ev.Code)
}

func (m *MemStore) DeleteEventByCode(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = filter(m.events, func(e model.Event) bool { return e.Code != code })
	m.participants = filter(m.participants, func(p model.Participant) bool { return p.EventCode != code })
	m.scores = filter(m.scores, func(s model.ScoreEntry) bool { return s.EventCode != code })
	m.scoresR2 = filter(m.scoresR2, func(s model.ScoreEntry) bool { return s.EventCode != code })
	return nil
}

func (m *MemStore) AddParticipant(ctx context.Context, p *model.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.participants {
		if m.participants[i].EventCode == p.EventCode && m.participants[i].TeamName == p.TeamName {
			return store.ErrTeamTaken
		}
	}
	p.ID = m.id()
	m.participants = append(m.participants, *p)
	return nil
}

func (m *MemStore) GetParticipantsByEvent(ctx context.Context, eventCode string) ([]model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Participant
	for i := range m.participants {
		if m.participants[i].EventCode == eventCode {
			res = append(res, m.participants[i])
		}
	}
	return res, nil
}

func (m *MemStore) SetScore(ctx context.Context, round model.Round, teamName, eventCode string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := &m.scores
	if round == model.Round2 {
		rows = &m.scoresR2
	}
	for i := range *rows {
		if (*rows)[i].EventCode == eventCode && (*rows)[i].TeamName == teamName {
			(*rows)[i].Score = score
			(*rows)[i].UpdatedAt = m.Now()
			return nil
		}
	}
	*rows = append(*rows, model.ScoreEntry{
		ID:        m.id(),
		TeamName:  teamName,
		EventCode: eventCode,
		Score:     score,
		UpdatedAt: m.Now(),
	})
	return nil
}

func (m *MemStore) GetLeaderboard(ctx context.Context, round model.Round, eventCode string) ([]model.ScoreEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.scores
	if round == model.Round2 {
		rows = m.scoresR2
	}
	var res []model.ScoreEntry
	for i := range rows {
		if rows[i].EventCode == eventCode {
			res = append(res, rows[i])
		}
	}
	standings.SortEntries(res)
	return res, nil
}

func (m *MemStore) Close() {}

func filter[T any](s []T, keep func(T) bool) []T {
	res := s[:0]
	for _, v := range s {
		if keep(v) {
			res = append(res, v)
		}
	}
	return res
}
