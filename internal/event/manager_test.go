package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventleader/internal/model"
	"eventleader/internal/store"
	"eventleader/internal/store/storetest"
	"eventleader/internal/util/slogx"
	"eventleader/internal/util/timeutil"
)

type fixture struct {
	st  *storetest.MemStore
	mgr *Manager
	now timeutil.Millis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:  storetest.New(),
		now: timeutil.Millis(1_000_000),
	}
	f.st.Now = func() timeutil.Millis { return f.now }
	f.mgr = NewManager(slogx.DiscardLogger(), f.st, Options{})
	f.mgr.now = func() timeutil.Millis { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) createEvent(t *testing.T, code string) *model.Event {
	t.Helper()
	ev, err := f.mgr.CreateEvent(context.Background(), "+100", "Test Event", code)
	require.NoError(t, err)
	return ev
}

func (f *fixture) join(t *testing.T, code, team, phone string) {
	t.Helper()
	_, err := f.mgr.Join(context.Background(), code, "Player "+team, phone, team)
	require.NoError(t, err)
}

func (f *fixture) score(t *testing.T, code, team string, score float64) {
	t.Helper()
	require.NoError(t, f.mgr.SetScore(context.Background(), code, team, score))
}

func TestCreateEventDefaults(t *testing.T) {
	f := newFixture(t)
	ev := f.createEvent(t, "")
	assert.Len(t, ev.Code, 6)
	assert.True(t, ev.IsActive)
	assert.Nil(t, ev.WinnersDeclaredAt)
	assert.Equal(t, model.Round2None, ev.Round2Mode)
	assert.Equal(t, f.now, ev.CreatedAt)
}

func TestCreateEventCodeRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev := f.createEvent(t, "abc123")
	assert.Equal(t, "ABC123", ev.Code, "codes are normalized to upper case")

	_, err := f.mgr.CreateEvent(ctx, "+100", "Another", "ABC123")
	assert.ErrorIs(t, err, store.ErrEventCodeTaken)

	_, err = f.mgr.CreateEvent(ctx, "+100", "Another", "TOOLONG1")
	assert.True(t, IsValidation(err))

	_, err = f.mgr.CreateEvent(ctx, "+100", "", "")
	assert.True(t, IsValidation(err))

	unique, err := f.mgr.IsCodeUnique(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, unique)
	unique, err = f.mgr.IsCodeUnique(ctx, "ZZZZZZ")
	require.NoError(t, err)
	assert.True(t, unique)
}

func TestJoinRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t, "EVT001")

	f.join(t, ev.Code, "Alpha", "+1")

	_, err := f.mgr.Join(ctx, ev.Code, "Someone", "+1", "Beta")
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	_, err = f.mgr.Join(ctx, ev.Code, "Someone", "+2", "Alpha")
	assert.ErrorIs(t, err, store.ErrTeamTaken)

	_, err = f.mgr.Join(ctx, "NOSUCH", "Someone", "+3", "Gamma")
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = f.mgr.Join(ctx, ev.Code, "", "+3", "Gamma")
	assert.True(t, IsValidation(err))
}

func TestScoreValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t, "EVT001")
	f.join(t, ev.Code, "Alpha", "+1")

	assert.True(t, IsValidation(f.mgr.SetScore(ctx, ev.Code, "Alpha", -1)))
	assert.True(t, IsValidation(f.mgr.SetScore(ctx, ev.Code, "Nobody", 10)))
	require.NoError(t, f.mgr.SetScore(ctx, ev.Code, "Alpha", 10))

	// Overwriting is allowed until winners are declared.
	require.NoError(t, f.mgr.SetScore(ctx, ev.Code, "Alpha", 20))
	lb, err := f.st.GetLeaderboard(ctx, model.Round1, ev.Code)
	require.NoError(t, err)
	require.Len(t, lb, 1)
	assert.Equal(t, 20.0, lb[0].Score)
}

func TestDeclareWinnersLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t, "EVT001")
	f.join(t, ev.Code, "Alpha", "+1")
	f.join(t, ev.Code, "Beta", "+2")

	_, err := f.mgr.DeclareWinners(ctx, ev.Code, 1)
	assert.ErrorIs(t, err, ErrNoScores)

	f.score(t, ev.Code, "Alpha", 10)
	f.score(t, ev.Code, "Beta", 20)

	_, err = f.mgr.DeclareWinners(ctx, ev.Code, 0)
	assert.True(t, IsValidation(err))

	res, err := f.mgr.DeclareWinners(ctx, ev.Code, 1)
	require.NoError(t, err)
	require.NotNil(t, res.WinnersDeclaredAt)
	assert.Equal(t, 1, res.WinnersCount)

	// Declaration is irreversible and locks round-1 scores.
	_, err = f.mgr.DeclareWinners(ctx, ev.Code, 2)
	assert.ErrorIs(t, err, ErrWinnersAlreadyDeclared)
	assert.ErrorIs(t, f.mgr.SetScore(ctx, ev.Code, "Alpha", 99), ErrScoresLocked)
}

func TestQualifierRound2(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t, "EVT001")
	for i, team := range []string{"Alpha", "Beta", "Gamma"} {
		f.join(t, ev.Code, team, "+"+team)
		f.score(t, ev.Code, team, float64(10*(i+1)))
	}

	_, err := f.mgr.StartQualifierRound2(ctx, ev.Code, 2)
	assert.ErrorIs(t, err, ErrRound1NotFinished)

	_, err = f.mgr.DeclareWinners(ctx, ev.Code, 1)
	require.NoError(t, err)

	res, err := f.mgr.StartQualifierRound2(ctx, ev.Code, 2)
	require.NoError(t, err)
	assert.True(t, res.Round2Active)
	assert.Equal(t, model.Round2Qualifier, res.Round2Mode)
	assert.Equal(t, model.StringList{"Gamma", "Beta"}, res.Round2Teams)

	assert.True(t, IsValidation(f.mgr.SetScoreR2(ctx, ev.Code, "Alpha", 5)))
	require.NoError(t, f.mgr.SetScoreR2(ctx, ev.Code, "Gamma", 5))

	// Starting again reseeds from the current standings and clears the
	// previous configuration.
	res, err = f.mgr.StartQualifierRound2(ctx, ev.Code, 3)
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"Gamma", "Beta", "Alpha"}, res.Round2Teams)
	assert.Nil(t, res.Round2WinnersDeclaredAt)
}

func TestCumulativeRound2(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t, "EVT001")

	f.join(t, ev.Code, "Alpha", "+1")
	f.join(t, ev.Code, "Beta", "+2")
	f.score(t, ev.Code, "Alpha", 40)
	f.score(t, ev.Code, "Beta", 50)
	_, err := f.mgr.DeclareWinners(ctx, ev.Code, 1)
	require.NoError(t, err)

	res, err := f.mgr.StartCumulativeRound2(ctx, ev.Code)
	require.NoError(t, err)
	assert.Equal(t, model.Round2Cumulative, res.Round2Mode)
	assert.Equal(t, model.StringList{"Alpha", "Beta"}, res.Round2Teams)

	require.NoError(t, f.mgr.SetScoreR2(ctx, ev.Code, "Alpha", 20))

	_, err = f.mgr.DeclareWinnersR2(ctx, ev.Code, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, f.mgr.SetScoreR2(ctx, ev.Code, "Beta", 1), ErrScoresLockedR2)

	d, err := f.mgr.AdminDashboard(ctx, ev.Code)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Len(t, d.Round2, 2)
	assert.Equal(t, "Alpha", d.Round2[0].TeamName)
	require.NotNil(t, d.Round2[0].Final)
	assert.Equal(t, 60.0, *d.Round2[0].Final)
	assert.True(t, d.Round2[0].Winner)
	assert.Nil(t, d.Round2[1].Final)
}

func TestDeclareWinnersR2RequiresQualifiedScores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t, "EVT001")
	f.join(t, ev.Code, "Alpha", "+1")
	f.score(t, ev.Code, "Alpha", 10)
	_, err := f.mgr.DeclareWinners(ctx, ev.Code, 1)
	require.NoError(t, err)

	_, err = f.mgr.DeclareWinnersR2(ctx, ev.Code, 1)
	assert.ErrorIs(t, err, ErrRound2NotActive)

	_, err = f.mgr.StartCumulativeRound2(ctx, ev.Code)
	require.NoError(t, err)
	_, err = f.mgr.DeclareWinnersR2(ctx, ev.Code, 1)
	assert.ErrorIs(t, err, ErrNoRound2Scores)
}

func TestLazyAutoReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t, "EVT001")
	f.join(t, ev.Code, "Alpha", "+1")
	f.score(t, ev.Code, "Alpha", 10)
	_, err := f.mgr.DeclareWinners(ctx, ev.Code, 1)
	require.NoError(t, err)

	f.advance(8*time.Hour - time.Second)
	got, err := f.mgr.LoadEvent(ctx, ev.Code)
	require.NoError(t, err)
	assert.NotNil(t, got, "event must survive until the full delay elapses")

	f.advance(2 * time.Second)
	got, err = f.mgr.LoadEvent(ctx, ev.Code)
	require.NoError(t, err)
	assert.Nil(t, got)

	// The cascade removed the dependent data too, so the code is free again.
	participants, err := f.st.GetParticipantsByEvent(ctx, ev.Code)
	require.NoError(t, err)
	assert.Empty(t, participants)
	unique, err := f.mgr.IsCodeUnique(ctx, ev.Code)
	require.NoError(t, err)
	assert.True(t, unique)
}

func TestAutoResetCountdownRestartsOnRound2Declaration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t, "EVT001")
	f.join(t, ev.Code, "Alpha", "+1")
	f.score(t, ev.Code, "Alpha", 10)
	_, err := f.mgr.DeclareWinners(ctx, ev.Code, 1)
	require.NoError(t, err)

	f.advance(7 * time.Hour)
	_, err = f.mgr.StartCumulativeRound2(ctx, ev.Code)
	require.NoError(t, err)
	require.NoError(t, f.mgr.SetScoreR2(ctx, ev.Code, "Alpha", 5))
	_, err = f.mgr.DeclareWinnersR2(ctx, ev.Code, 1)
	require.NoError(t, err)

	// 2h past the round-1 declaration, but round 2 restarted the countdown.
	f.advance(2 * time.Hour)
	got, err := f.mgr.LoadEvent(ctx, ev.Code)
	require.NoError(t, err)
	assert.NotNil(t, got)

	f.advance(7 * time.Hour)
	got, err = f.mgr.LoadEvent(ctx, ev.Code)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListAdminEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createEvent(t, "EVT001")
	f.advance(time.Minute)
	second := f.createEvent(t, "EVT002")

	events, err := f.mgr.ListAdminEvents(ctx, "+100")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, second.Code, events[0].Code, "newest first")
	assert.Equal(t, first.Code, events[1].Code)

	events, err = f.mgr.ListAdminEvents(ctx, "+999")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t, "EVT001")
	f.join(t, ev.Code, "Alpha", "+1")
	f.score(t, ev.Code, "Alpha", 10)

	require.NoError(t, f.mgr.DeleteEvent(ctx, ev.Code))
	assert.ErrorIs(t, f.mgr.DeleteEvent(ctx, ev.Code), ErrEventNotFound)

	got, err := f.mgr.LoadEvent(ctx, ev.Code)
	require.NoError(t, err)
	assert.Nil(t, got)
	lb, err := f.st.GetLeaderboard(ctx, model.Round1, ev.Code)
	require.NoError(t, err)
	assert.Empty(t, lb)
}

func TestLoginIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a1, err := f.mgr.Login(ctx, "Ann", "+100")
	require.NoError(t, err)
	a2, err := f.mgr.Login(ctx, "Other Name", "+100")
	require.NoError(t, err)
	assert.Equal(t, a1.ID, a2.ID)
	assert.Equal(t, "Ann", a2.Name, "first registration wins")

	_, err = f.mgr.Login(ctx, "", "+100")
	assert.True(t, IsValidation(err))
}

// Event mutations are full-record read-modify-write with no lock around the
// event: when two writers interleave, the later write silently replaces the
// earlier one, stale fields included. This is the accepted concurrency model
// of the store contract, not a bug.
func TestConcurrentEventUpdateLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t, "EVT001")

	first, err := f.st.GetEventByCode(ctx, ev.Code)
	require.NoError(t, err)
	second, err := f.st.GetEventByCode(ctx, ev.Code)
	require.NoError(t, err)

	first.Name = "Renamed"
	require.NoError(t, f.st.UpdateEvent(ctx, first))

	second.WinnersCount = 3
	require.NoError(t, f.st.UpdateEvent(ctx, second))

	got, err := f.mgr.LoadEvent(ctx, ev.Code)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.WinnersCount)
	// The rename is gone: the second writer saved the stale name it read
	// before the first writer committed.
	assert.Equal(t, "Test Event", got.Name)
}

func TestGenerateCode(t *testing.T) {
	for range 100 {
		code := GenerateCode(6)
		assert.True(t, validCode(code, 6), "bad code %q", code)
	}
}
