package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventleader/internal/model"
	"eventleader/internal/store"
	"eventleader/internal/util/slogx"
	"eventleader/internal/util/timeutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(slogx.DiscardLogger(), Options{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestRegisterAdminIdempotent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	a1, err := d.RegisterAdmin(ctx, "Ann", "+100")
	require.NoError(t, err)
	a2, err := d.RegisterAdmin(ctx, "Other", "+100")
	require.NoError(t, err)
	assert.Equal(t, a1.ID, a2.ID)
	assert.Equal(t, "Ann", a2.Name)

	missing, err := d.GetAdminByPhone(ctx, "+999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEventCRUD(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	declared := timeutil.Millis(5000)
	ev := model.NewEvent("Hackathon", "EVT001", "+100", 1000)
	ev.Round2Teams = model.StringList{"Alpha", "Beta"}
	ev.WinnersDeclaredAt = &declared
	require.NoError(t, d.CreateEvent(ctx, ev))

	err := d.CreateEvent(ctx, model.NewEvent("Clone", "EVT001", "+200", 2000))
	assert.ErrorIs(t, err, store.ErrEventCodeTaken)

	got, err := d.GetEventByCode(ctx, "EVT001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Hackathon", got.Name)
	assert.Equal(t, timeutil.Millis(1000), got.CreatedAt)
	assert.Equal(t, model.StringList{"Alpha", "Beta"}, got.Round2Teams)
	require.NotNil(t, got.WinnersDeclaredAt)
	assert.Equal(t, declared, *got.WinnersDeclaredAt)

	got.Name = "Renamed"
	got.Round2WinnersDeclaredAt = &declared
	require.NoError(t, d.UpdateEvent(ctx, got))
	got, err = d.GetEventByCode(ctx, "EVT001")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	require.NotNil(t, got.Round2WinnersDeclaredAt)

	missing, err := d.GetEventByCode(ctx, "NOSUCH")
	require.NoError(t, err)
	assert.Nil(t, missing)

	events, err := d.GetEventsByAdmin(ctx, "+100")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestParticipantUniqueness(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.AddParticipant(ctx, &model.Participant{
		Name: "Ann", Phone: "+1", TeamName: "Alpha", EventCode: "EVT001", JoinedAt: 10,
	}))
	err := d.AddParticipant(ctx, &model.Participant{
		Name: "Bob", Phone: "+2", TeamName: "Alpha", EventCode: "EVT001", JoinedAt: 20,
	})
	assert.ErrorIs(t, err, store.ErrTeamTaken)

	require.NoError(t, d.AddParticipant(ctx, &model.Participant{
		Name: "Bob", Phone: "+2", TeamName: "Alpha", EventCode: "EVT002", JoinedAt: 20,
	}))

	participants, err := d.GetParticipantsByEvent(ctx, "EVT001")
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "Ann", participants[0].Name)
}

func TestScoresPerRound(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	now := timeutil.Millis(0)
	d.now = func() timeutil.Millis { now++; return now }

	require.NoError(t, d.SetScore(ctx, model.Round1, "Alpha", "EVT001", 10))
	require.NoError(t, d.SetScore(ctx, model.Round1, "Beta", "EVT001", 30))
	require.NoError(t, d.SetScore(ctx, model.Round1, "Gamma", "EVT001", 30))
	require.NoError(t, d.SetScore(ctx, model.Round1, "Alpha", "EVT001", 50))
	require.NoError(t, d.SetScore(ctx, model.Round2, "Alpha", "EVT001", 7))

	lb, err := d.GetLeaderboard(ctx, model.Round1, "EVT001")
	require.NoError(t, err)
	require.Len(t, lb, 3)
	assert.Equal(t, "Alpha", lb[0].TeamName)
	assert.Equal(t, 50.0, lb[0].Score)
	// Equal scores settle by update time: Beta wrote before Gamma.
	assert.Equal(t, "Beta", lb[1].TeamName)
	assert.Equal(t, "Gamma", lb[2].TeamName)

	lb, err = d.GetLeaderboard(ctx, model.Round2, "EVT001")
	require.NoError(t, err)
	require.Len(t, lb, 1)
	assert.Equal(t, 7.0, lb[0].Score)
}

func TestDeleteEventCascades(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.CreateEvent(ctx, model.NewEvent("One", "EVT001", "+100", 1)))
	require.NoError(t, d.CreateEvent(ctx, model.NewEvent("Two", "EVT002", "+100", 2)))
	require.NoError(t, d.AddParticipant(ctx, &model.Participant{
		Name: "Ann", Phone: "+1", TeamName: "Alpha", EventCode: "EVT001",
	}))
	require.NoError(t, d.SetScore(ctx, model.Round1, "Alpha", "EVT001", 10))
	require.NoError(t, d.SetScore(ctx, model.Round2, "Alpha", "EVT001", 20))

	require.NoError(t, d.DeleteEventByCode(ctx, "EVT001"))

	ev, err := d.GetEventByCode(ctx, "EVT001")
	require.NoError(t, err)
	assert.Nil(t, ev)
	participants, err := d.GetParticipantsByEvent(ctx, "EVT001")
	require.NoError(t, err)
	assert.Empty(t, participants)
	for _, round := range []model.Round{model.Round1, model.Round2} {
		lb, err := d.GetLeaderboard(ctx, round, "EVT001")
		require.NoError(t, err)
		assert.Empty(t, lb)
	}

	other, err := d.GetEventByCode(ctx, "EVT002")
	require.NoError(t, err)
	assert.NotNil(t, other)
}
