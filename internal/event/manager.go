// Package event is the application core: the event lifecycle, registration
// and the rules guarding score writes and winner declarations. It sits on top
// of store.Store and never touches a concrete backend.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"eventleader/internal/model"
	"eventleader/internal/store"
	"eventleader/internal/util/slogx"
	"eventleader/internal/util/timeutil"
)

type Options struct {
	// ResetDelay is how long an event survives after winners are declared.
	// Expiry is lazy: an expired event is removed the next time anything
	// reads it.
	ResetDelay time.Duration `toml:"reset-delay"`

	// CodeLen is the length of generated event codes.
	CodeLen int `toml:"code-len"`
}

func (o *Options) FillDefaults() {
	if o.ResetDelay == 0 {
		o.ResetDelay = 8 * time.Hour
	}
	if o.CodeLen == 0 {
		o.CodeLen = 6
	}
}

// Manager runs every event operation against a store. It holds no state of
// its own: reads go read-modify-write through the store, so concurrent
// mutations of one event are last-write-wins.
type Manager struct {
	o   Options
	st  store.Store
	log *slog.Logger
	now func() timeutil.Millis
}

func NewManager(log *slog.Logger, st store.Store, o Options) *Manager {
	o.FillDefaults()
	return &Manager{
		o:   o,
		st:  st,
		log: log,
		now: timeutil.NowMillis,
	}
}

// Login registers the admin on first contact and is a no-op lookup on every
// later one.
func (m *Manager) Login(ctx context.Context, name, phone string) (*model.Admin, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, Validation("name and phone must not be empty")
	}
	admin, err := m.st.RegisterAdmin(ctx, name, phone)
	if err != nil {
		return nil, fmt.Errorf("register admin: %w", err)
	}
	return admin, nil
}

// IsCodeUnique reports whether no event currently uses the code. Expired
// events still count as taken until something reads and resets them.
func (m *Manager) IsCodeUnique(ctx context.Context, code string) (bool, error) {
	ev, err := m.st.GetEventByCode(ctx, normalizeCode(code))
	if err != nil {
		return false, fmt.Errorf("get event: %w", err)
	}
	return ev == nil, nil
}

// CreateEvent creates an event in its initial state. An empty code asks for a
// generated one; a supplied code must be of the configured shape and unused.
func (m *Manager) CreateEvent(ctx context.Context, adminPhone, name, code string) (*model.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validation("event name must not be empty")
	}
	code = normalizeCode(code)
	if code == "" {
		var err error
		code, err = m.pickCode(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		if !validCode(code, m.o.CodeLen) {
			return nil, Validation(fmt.Sprintf("event code must be %v uppercase letters or digits", m.o.CodeLen))
		}
		unique, err := m.IsCodeUnique(ctx, code)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, store.ErrEventCodeTaken
		}
	}
	ev := model.NewEvent(name, code, adminPhone, m.now())
	if err := m.st.CreateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	m.log.Info("event created",
		slog.String("code", ev.Code),
		slog.String("admin", ev.AdminPhone),
	)
	return ev, nil
}

func (m *Manager) pickCode(ctx context.Context) (string, error) {
	const maxAttempts = 16
	for range maxAttempts {
		code := GenerateCode(m.o.CodeLen)
		unique, err := m.IsCodeUnique(ctx, code)
		if err != nil {
			return "", err
		}
		if unique {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique event code")
}

// LoadEvent fetches an event, applying lazy expiry: an event past its reset
// delay is deleted with all its data, and the caller sees (nil, nil) as if it
// never existed.
func (m *Manager) LoadEvent(ctx context.Context, code string) (*model.Event, error) {
	code = normalizeCode(code)
	ev, err := m.st.GetEventByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if ev == nil {
		return nil, nil
	}
	if ev.Expired(m.now(), m.o.ResetDelay) {
		m.log.Info("resetting expired event", slog.String("code", ev.Code))
		if err := m.st.DeleteEventByCode(ctx, ev.Code); err != nil {
			return nil, fmt.Errorf("reset expired event: %w", err)
		}
		return nil, nil
	}
	return ev, nil
}

func (m *Manager) loadActive(ctx context.Context, code string) (*model.Event, error) {
	ev, err := m.LoadEvent(ctx, code)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	return ev, nil
}

// ListAdminEvents returns the admin's live events, newest first. Expired ones
// are reset along the way.
func (m *Manager) ListAdminEvents(ctx context.Context, adminPhone string) ([]model.Event, error) {
	events, err := m.st.GetEventsByAdmin(ctx, adminPhone)
	if err != nil {
		return nil, fmt.Errorf("get admin events: %w", err)
	}
	now := m.now()
	res := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Expired(now, m.o.ResetDelay) {
			m.log.Info("resetting expired event", slog.String("code", ev.Code))
			if err := m.st.DeleteEventByCode(ctx, ev.Code); err != nil {
				m.log.Error("could not reset expired event",
					slog.String("code", ev.Code), slogx.Err(err))
			}
			continue
		}
		res = append(res, ev)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt > res[j].CreatedAt
	})
	return res, nil
}

// Join registers a participant into an active event. One phone may join an
// event once; team names are unique within the event.
func (m *Manager) Join(ctx context.Context, code, name, phone, teamName string) (*model.Participant, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	teamName = strings.TrimSpace(teamName)
	if name == "" || phone == "" || teamName == "" {
		return nil, Validation("name, phone and team name must not be empty")
	}
	ev, err := m.loadActive(ctx, code)
	if err != nil {
		return nil, err
	}
	if !ev.IsActive {
		return nil, ErrEventNotFound
	}
	participants, err := m.st.GetParticipantsByEvent(ctx, ev.Code)
	if err != nil {
		return nil, fmt.Errorf("get participants: %w", err)
	}
	for _, p := range participants {
		if p.Phone == phone {
			return nil, ErrAlreadyJoined
		}
		if p.TeamName == teamName {
			return nil, store.ErrTeamTaken
		}
	}
	p := &model.Participant{
		Name:      name,
		Phone:     phone,
		TeamName:  teamName,
		EventCode: ev.Code,
		JoinedAt:  m.now(),
	}
	if err := m.st.AddParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}
	m.log.Info("participant joined",
		slog.String("code", ev.Code),
		slog.String("team", p.TeamName),
	)
	return p, nil
}

func validScore(score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return Validation("score must be a non-negative number")
	}
	return nil
}

// SetScore records a round-1 score for a team. Writes are rejected once
// round-1 winners have been declared.
func (m *Manager) SetScore(ctx context.Context, code, teamName string, score float64) error {
	if err := validScore(score); err != nil {
		return err
	}
	ev, err := m.loadActive(ctx, code)
	if err != nil {
		return err
	}
	if ev.WinnersDeclaredAt != nil {
		return ErrScoresLocked
	}
	participants, err := m.st.GetParticipantsByEvent(ctx, ev.Code)
	if err != nil {
		return fmt.Errorf("get participants: %w", err)
	}
	if !hasTeam(participants, teamName) {
		return Validation("unknown team for this event")
	}
	if err := m.st.SetScore(ctx, model.Round1, teamName, ev.Code, score); err != nil {
		return fmt.Errorf("set score: %w", err)
	}
	return nil
}

// SetScoreR2 records a round-2 score for a qualified team. Writes are
// rejected before round 2 starts and after round-2 winners are declared.
func (m *Manager) SetScoreR2(ctx context.Context, code, teamName string, score float64) error {
	if err := validScore(score); err != nil {
		return err
	}
	ev, err := m.loadActive(ctx, code)
	if err != nil {
		return err
	}
	if !ev.Round2Active {
		return ErrRound2NotActive
	}
	if ev.Round2WinnersDeclaredAt != nil {
		return ErrScoresLockedR2
	}
	if !contains(ev.Round2Teams, teamName) {
		return Validation("team did not qualify for round 2")
	}
	if err := m.st.SetScore(ctx, model.Round2, teamName, ev.Code, score); err != nil {
		return fmt.Errorf("set round 2 score: %w", err)
	}
	return nil
}

// DeclareWinners freezes round 1: the top count teams become winners, scores
// lock, and the reset countdown starts. The declaration is irreversible.
func (m *Manager) DeclareWinners(ctx context.Context, code string, count int) (*model.Event, error) {
	if count < 1 {
		return nil, Validation("winners count must be at least 1")
	}
	ev, err := m.loadActive(ctx, code)
	if err != nil {
		return nil, err
	}
	if ev.WinnersDeclaredAt != nil {
		return nil, ErrWinnersAlreadyDeclared
	}
	entries, err := m.st.GetLeaderboard(ctx, model.Round1, ev.Code)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoScores
	}
	now := m.now()
	ev.WinnersCount = count
	ev.WinnersDeclaredAt = &now
	if err := m.st.UpdateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	m.log.Info("round 1 winners declared",
		slog.String("code", ev.Code),
		slog.Int("count", count),
	)
	return ev, nil
}

// StartQualifierRound2 opens round 2 for the current top topN teams; round 2
// is then scored from scratch. Calling it again reseeds the qualifier from
// the current round-1 standings, discarding the previous configuration.
func (m *Manager) StartQualifierRound2(ctx context.Context, code string, topN int) (*model.Event, error) {
	if topN < 1 {
		return nil, Validation("top N must be at least 1")
	}
	ev, err := m.loadActive(ctx, code)
	if err != nil {
		return nil, err
	}
	if ev.WinnersDeclaredAt == nil {
		return nil, ErrRound1NotFinished
	}
	entries, err := m.st.GetLeaderboard(ctx, model.Round1, ev.Code)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoScores
	}
	n := min(topN, len(entries))
	teams := make(model.StringList, 0, n)
	for _, e := range entries[:n] {
		teams = append(teams, e.TeamName)
	}
	m.configureRound2(ev, model.Round2Qualifier, topN, teams)
	if err := m.st.UpdateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	m.log.Info("qualifier round 2 started",
		slog.String("code", ev.Code),
		slog.Int("teams", len(teams)),
	)
	return ev, nil
}

// StartCumulativeRound2 opens round 2 for every team of the event; final
// scores add round 2 on top of round 1.
func (m *Manager) StartCumulativeRound2(ctx context.Context, code string) (*model.Event, error) {
	ev, err := m.loadActive(ctx, code)
	if err != nil {
		return nil, err
	}
	if ev.WinnersDeclaredAt == nil {
		return nil, ErrRound1NotFinished
	}
	participants, err := m.st.GetParticipantsByEvent(ctx, ev.Code)
	if err != nil {
		return nil, fmt.Errorf("get participants: %w", err)
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	seen := make(map[string]struct{}, len(participants))
	teams := make(model.StringList, 0, len(participants))
	for _, p := range participants {
		if _, ok := seen[p.TeamName]; ok {
			continue
		}
		seen[p.TeamName] = struct{}{}
		teams = append(teams, p.TeamName)
	}
	m.configureRound2(ev, model.Round2Cumulative, 0, teams)
	if err := m.st.UpdateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	m.log.Info("cumulative round 2 started",
		slog.String("code", ev.Code),
		slog.Int("teams", len(teams)),
	)
	return ev, nil
}

// configureRound2 resets all round-2 state for a fresh start, so a restart
// never inherits winners from a previous configuration. Round-2 score rows
// from the previous run are kept but invisible for teams no longer qualified.
func (m *Manager) configureRound2(ev *model.Event, mode model.Round2Mode, topN int, teams model.StringList) {
	ev.Round2Mode = mode
	ev.Round2TopN = topN
	ev.Round2Active = true
	ev.Round2WinnersCount = 0
	ev.Round2WinnersDeclaredAt = nil
	ev.Round2Teams = teams
}

// DeclareWinnersR2 freezes round 2 and restarts the reset countdown from now.
func (m *Manager) DeclareWinnersR2(ctx context.Context, code string, count int) (*model.Event, error) {
	if count < 1 {
		return nil, Validation("winners count must be at least 1")
	}
	ev, err := m.loadActive(ctx, code)
	if err != nil {
		return nil, err
	}
	if !ev.Round2Active {
		return nil, ErrRound2NotActive
	}
	if ev.Round2WinnersDeclaredAt != nil {
		return nil, ErrWinnersAlreadyDeclared
	}
	entries, err := m.st.GetLeaderboard(ctx, model.Round2, ev.Code)
	if err != nil {
		return nil, fmt.Errorf("get round 2 leaderboard: %w", err)
	}
	if !anyQualifiedScore(ev, entries) {
		return nil, ErrNoRound2Scores
	}
	now := m.now()
	ev.Round2WinnersCount = count
	ev.Round2WinnersDeclaredAt = &now
	if err := m.st.UpdateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	m.log.Info("round 2 winners declared",
		slog.String("code", ev.Code),
		slog.Int("count", count),
	)
	return ev, nil
}

// DeleteEvent removes the event with all its participants and scores.
func (m *Manager) DeleteEvent(ctx context.Context, code string) error {
	ev, err := m.loadActive(ctx, code)
	if err != nil {
		return err
	}
	if err := m.st.DeleteEventByCode(ctx, ev.Code); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	m.log.Info("event deleted", slog.String("code", ev.Code))
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func hasTeam(participants []model.Participant, teamName string) bool {
	for _, p := range participants {
		if p.TeamName == teamName {
			return true
		}
	}
	return false
}

func contains(list model.StringList, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// anyQualifiedScore ignores stale rows left by a reconfigured round 2.
func anyQualifiedScore(ev *model.Event, entries []model.ScoreEntry) bool {
	for _, e := range entries {
		if contains(ev.Round2Teams, e.TeamName) {
			return true
		}
	}
	return false
}
