package event_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventleader/internal/event"
	"eventleader/internal/model"
	"eventleader/internal/sheetapi"
	"eventleader/internal/sheetdb"
	"eventleader/internal/store"
	"eventleader/internal/util/slogx"
)

// The full remote stack in-process: manager -> HTTP client -> proxy server
// -> workbook. The lifecycle must behave exactly as it does on the embedded
// backend; the orchestration layer cannot tell the two apart.
func newRemoteManager(t *testing.T) *event.Manager {
	t.Helper()
	db, err := sheetdb.New(slogx.DiscardLogger(), sheetdb.Options{
		Path: filepath.Join(t.TempDir(), "test.xlsx"),
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	mux := http.NewServeMux()
	sheetapi.Handle(slogx.DiscardLogger(), mux, "/", db)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := sheetapi.NewClient(srv.URL, srv.Client())
	return event.NewManager(slogx.DiscardLogger(), client, event.Options{})
}

func TestRemoteBackendLifecycle(t *testing.T) {
	mgr := newRemoteManager(t)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "Ann", "+100")
	require.NoError(t, err)

	ev, err := mgr.CreateEvent(ctx, "+100", "Hackathon", "EVT001")
	require.NoError(t, err)

	_, err = mgr.CreateEvent(ctx, "+100", "Clone", "EVT001")
	assert.ErrorIs(t, err, store.ErrEventCodeTaken)

	_, err = mgr.Join(ctx, ev.Code, "Ann", "+1", "Alpha")
	require.NoError(t, err)
	_, err = mgr.Join(ctx, ev.Code, "Bob", "+2", "Beta")
	require.NoError(t, err)
	_, err = mgr.Join(ctx, ev.Code, "Carl", "+3", "Alpha")
	assert.ErrorIs(t, err, store.ErrTeamTaken)
	_, err = mgr.Join(ctx, ev.Code, "Ann Again", "+1", "Gamma")
	assert.ErrorIs(t, err, event.ErrAlreadyJoined)

	require.NoError(t, mgr.SetScore(ctx, ev.Code, "Alpha", 10))
	require.NoError(t, mgr.SetScore(ctx, ev.Code, "Beta", 20))

	_, err = mgr.DeclareWinners(ctx, ev.Code, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, mgr.SetScore(ctx, ev.Code, "Alpha", 99), event.ErrScoresLocked)

	res, err := mgr.StartQualifierRound2(ctx, ev.Code, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"Beta"}, res.Round2Teams)
	require.NoError(t, mgr.SetScoreR2(ctx, ev.Code, "Beta", 5))
	_, err = mgr.DeclareWinnersR2(ctx, ev.Code, 1)
	require.NoError(t, err)

	d, err := mgr.AdminDashboard(ctx, ev.Code)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Len(t, d.Round1, 2)
	assert.True(t, d.Round1[0].Winner)
	require.Len(t, d.Round2, 1)
	assert.True(t, d.Round2[0].Winner)
	assert.Len(t, d.Participants, 2)
	assert.NotNil(t, d.ResetInMs)

	require.NoError(t, mgr.DeleteEvent(ctx, ev.Code))
	got, err := mgr.LoadEvent(ctx, ev.Code)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRemoteBackendDashboardTimestamps(t *testing.T) {
	mgr := newRemoteManager(t)
	ctx := context.Background()

	ev, err := mgr.CreateEvent(ctx, "+100", "Hackathon", "EVT001")
	require.NoError(t, err)
	_, err = mgr.Join(ctx, ev.Code, "Ann", "+1", "Alpha")
	require.NoError(t, err)
	require.NoError(t, mgr.SetScore(ctx, ev.Code, "Alpha", 10))
	_, err = mgr.DeclareWinners(ctx, ev.Code, 1)
	require.NoError(t, err)

	// The declaration timestamp survives the flat-text encoding, so the
	// reset countdown computed on re-read stays near the full delay.
	got, err := mgr.LoadEvent(ctx, ev.Code)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.WinnersDeclaredAt)
	d, err := mgr.AdminDashboard(ctx, ev.Code)
	require.NoError(t, err)
	require.NotNil(t, d.ResetInMs)
	left := time.Duration(*d.ResetInMs) * time.Millisecond
	assert.Greater(t, left, 7*time.Hour)
	assert.LessOrEqual(t, left, 8*time.Hour)
}
