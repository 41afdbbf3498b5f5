package webapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventleader/internal/event"
	"eventleader/internal/model"
	"eventleader/internal/store/storetest"
	"eventleader/internal/util/slogx"
)

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
	hc  *http.Client
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	st := storetest.New()
	mgr := event.NewManager(slogx.DiscardLogger(), st, event.Options{})
	mux := http.NewServeMux()
	_ = New(slogx.DiscardLogger(), mux, mgr, sessions.NewCookieStore([]byte("test-key")), Options{
		AdminPassword: "hunter2",
		JoinRateBurst: 1000,
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testAPI{t: t, srv: srv, hc: &http.Client{Jar: jar}}
}

func (a *testAPI) do(method, path string, body any) (*http.Response, []byte) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	rsp, err := a.hc.Do(req)
	require.NoError(a.t, err)
	defer rsp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(rsp.Body)
	require.NoError(a.t, err)
	return rsp, buf.Bytes()
}

func (a *testAPI) login(phone string) {
	a.t.Helper()
	rsp, _ := a.do("POST", "/api/admin/login", map[string]string{
		"name": "Admin", "phone": phone, "password": "hunter2",
	})
	require.Equal(a.t, http.StatusOK, rsp.StatusCode)
}

func TestLoginPassword(t *testing.T) {
	a := newTestAPI(t)

	rsp, _ := a.do("POST", "/api/admin/login", map[string]string{
		"name": "Admin", "phone": "+100", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rsp.StatusCode)

	rsp, _ = a.do("GET", "/api/admin/events", nil)
	assert.Equal(t, http.StatusUnauthorized, rsp.StatusCode)

	a.login("+100")
	rsp, _ = a.do("GET", "/api/admin/events", nil)
	assert.Equal(t, http.StatusOK, rsp.StatusCode)

	rsp, _ = a.do("POST", "/api/admin/logout", nil)
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	rsp, _ = a.do("GET", "/api/admin/events", nil)
	assert.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
}

func TestEventFlow(t *testing.T) {
	a := newTestAPI(t)
	a.login("+100")

	rsp, body := a.do("POST", "/api/admin/events", map[string]string{"name": "Hackathon", "code": "evt001"})
	require.Equal(t, http.StatusCreated, rsp.StatusCode)
	var ev model.Event
	require.NoError(t, json.Unmarshal(body, &ev))
	assert.Equal(t, "EVT001", ev.Code)

	rsp, _ = a.do("POST", "/api/admin/events", map[string]string{"name": "Clone", "code": "EVT001"})
	assert.Equal(t, http.StatusConflict, rsp.StatusCode)

	for i, team := range []string{"Alpha", "Beta"} {
		rsp, _ = a.do("POST", "/api/events/EVT001/join", map[string]string{
			"name": team + " captain", "phone": fmt.Sprintf("+%v", i+1), "teamName": team,
		})
		require.Equal(t, http.StatusCreated, rsp.StatusCode)
	}
	rsp, _ = a.do("POST", "/api/events/EVT001/join", map[string]string{
		"name": "Late", "phone": "+3", "teamName": "Alpha",
	})
	assert.Equal(t, http.StatusConflict, rsp.StatusCode)

	for team, score := range map[string]float64{"Alpha": 10, "Beta": 20} {
		rsp, _ = a.do("POST", "/api/admin/events/EVT001/scores", scoreRequest{TeamName: team, Score: score})
		require.Equal(t, http.StatusOK, rsp.StatusCode)
	}
	rsp, _ = a.do("POST", "/api/admin/events/EVT001/scores", scoreRequest{TeamName: "Alpha", Score: -1})
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	rsp, _ = a.do("POST", "/api/admin/events/EVT001/winners", map[string]int{"count": 1})
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	rsp, _ = a.do("POST", "/api/admin/events/EVT001/winners", map[string]int{"count": 1})
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	var view struct {
		Round1 []struct {
			TeamName string `json:"teamName"`
			Winner   bool   `json:"winner"`
		} `json:"round1"`
		ResetInMs *int64 `json:"resetInMs"`
	}
	rsp, body = a.do("GET", "/api/events/EVT001/leaderboard", nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	require.Len(t, view.Round1, 2)
	assert.Equal(t, "Beta", view.Round1[0].TeamName)
	assert.True(t, view.Round1[0].Winner)
	assert.False(t, view.Round1[1].Winner)
	require.NotNil(t, view.ResetInMs)

	rsp, _ = a.do("POST", "/api/admin/events/EVT001/round2/qualifier", map[string]int{"topN": 1})
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	rsp, _ = a.do("POST", "/api/admin/events/EVT001/scores2", scoreRequest{TeamName: "Beta", Score: 5})
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	rsp, _ = a.do("POST", "/api/admin/events/EVT001/round2/winners", map[string]int{"count": 1})
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	rsp, _ = a.do("DELETE", "/api/admin/events/EVT001", nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	rsp, _ = a.do("GET", "/api/events/EVT001", nil)
	assert.Equal(t, http.StatusNotFound, rsp.StatusCode)
}

func TestEventOwnership(t *testing.T) {
	a := newTestAPI(t)
	a.login("+100")
	rsp, _ := a.do("POST", "/api/admin/events", map[string]string{"name": "Mine", "code": "EVT001"})
	require.Equal(t, http.StatusCreated, rsp.StatusCode)

	// A different admin on the same server must not control the event.
	b := &testAPI{t: t, srv: a.srv}
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	b.hc = &http.Client{Jar: jar}
	b.login("+200")

	rsp, _ = b.do("GET", "/api/admin/events/EVT001", nil)
	assert.Equal(t, http.StatusForbidden, rsp.StatusCode)
	rsp, _ = b.do("DELETE", "/api/admin/events/EVT001", nil)
	assert.Equal(t, http.StatusForbidden, rsp.StatusCode)

	// The public view stays open to everyone.
	rsp, _ = b.do("GET", "/api/events/EVT001", nil)
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
}

func TestJoinRateLimit(t *testing.T) {
	st := storetest.New()
	mgr := event.NewManager(slogx.DiscardLogger(), st, event.Options{})
	mux := http.NewServeMux()
	_ = New(slogx.DiscardLogger(), mux, mgr, sessions.NewCookieStore([]byte("test-key")), Options{
		AdminPassword: "hunter2",
		JoinRateBurst: 2,
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	statuses := make(map[int]int)
	for range 5 {
		rsp, err := http.Post(srv.URL+"/api/events/NOSUCH/join", "application/json",
			bytes.NewReader([]byte(`{"name":"a","phone":"+1","teamName":"t"}`)))
		require.NoError(t, err)
		rsp.Body.Close()
		statuses[rsp.StatusCode]++
	}
	assert.Positive(t, statuses[http.StatusTooManyRequests])
}
