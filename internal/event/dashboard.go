package event

import (
	"context"
	"fmt"
	"sort"

	"eventleader/internal/model"
	"eventleader/internal/standings"
)

// Dashboard is the admin's full view of one event.
type Dashboard struct {
	Event        *model.Event            `json:"event"`
	Participants []model.Participant     `json:"participants"`
	Round1       []standings.Entry       `json:"round1"`
	Round2       []standings.MergedEntry `json:"round2,omitempty"`

	// ResetInMs is the time left until auto-reset, nil before any winner
	// declaration.
	ResetInMs *int64 `json:"resetInMs,omitempty"`
}

// View is the participant-facing slice of a dashboard: no phone numbers, team
// rosters keyed by team name.
type View struct {
	Event     *model.Event            `json:"event"`
	Round1    []standings.Entry       `json:"round1"`
	Round2    []standings.MergedEntry `json:"round2,omitempty"`
	Teams     map[string][]string     `json:"teams"`
	ResetInMs *int64                  `json:"resetInMs,omitempty"`
}

// AdminDashboard assembles the event, its participants and both leaderboards.
// Returns (nil, nil) when the event does not exist or has been reset.
func (m *Manager) AdminDashboard(ctx context.Context, code string) (*Dashboard, error) {
	ev, err := m.LoadEvent(ctx, code)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, nil
	}
	participants, err := m.st.GetParticipantsByEvent(ctx, ev.Code)
	if err != nil {
		return nil, fmt.Errorf("get participants: %w", err)
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinedAt < participants[j].JoinedAt
	})
	r1, r2, err := m.leaderboards(ctx, ev)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Event:        ev,
		Participants: participants,
		Round1:       r1,
		Round2:       r2,
		ResetInMs:    m.resetIn(ev),
	}, nil
}

// ParticipantView is AdminDashboard minus personal data.
func (m *Manager) ParticipantView(ctx context.Context, code string) (*View, error) {
	ev, err := m.LoadEvent(ctx, code)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, nil
	}
	participants, err := m.st.GetParticipantsByEvent(ctx, ev.Code)
	if err != nil {
		return nil, fmt.Errorf("get participants: %w", err)
	}
	teams := make(map[string][]string, len(participants))
	for _, p := range participants {
		teams[p.TeamName] = append(teams[p.TeamName], p.Name)
	}
	r1, r2, err := m.leaderboards(ctx, ev)
	if err != nil {
		return nil, err
	}
	return &View{
		Event:     ev,
		Round1:    r1,
		Round2:    r2,
		Teams:     teams,
		ResetInMs: m.resetIn(ev),
	}, nil
}

func (m *Manager) leaderboards(ctx context.Context, ev *model.Event) ([]standings.Entry, []standings.MergedEntry, error) {
	entries, err := m.st.GetLeaderboard(ctx, model.Round1, ev.Code)
	if err != nil {
		return nil, nil, fmt.Errorf("get leaderboard: %w", err)
	}
	winnersCount := 0
	if ev.WinnersDeclaredAt != nil {
		winnersCount = ev.WinnersCount
	}
	r1 := standings.Rank(entries, winnersCount)

	var r2 []standings.MergedEntry
	if ev.Round2Active {
		entriesR2, err := m.st.GetLeaderboard(ctx, model.Round2, ev.Code)
		if err != nil {
			return nil, nil, fmt.Errorf("get round 2 leaderboard: %w", err)
		}
		r2 = standings.Merge(ev, entries, entriesR2)
	}
	return r1, r2, nil
}

func (m *Manager) resetIn(ev *model.Event) *int64 {
	declared := ev.DeclaredAt()
	if declared == nil {
		return nil
	}
	left := m.o.ResetDelay - m.now().Sub(*declared)
	ms := max(left.Milliseconds(), 0)
	return &ms
}
