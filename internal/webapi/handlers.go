package webapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"eventleader/internal/event"
	"eventleader/internal/model"
	"eventleader/internal/standings"
	"eventleader/internal/store"
	"eventleader/internal/util/slogx"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// fail maps application errors onto status codes: conflicts and validation
// failures are the client's problem, everything else is ours and stays vague.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, event.ErrEventNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrEventCodeTaken),
		errors.Is(err, store.ErrTeamTaken),
		errors.Is(err, event.ErrAlreadyJoined):
		writeError(w, http.StatusConflict, err.Error())
	case event.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed", slogx.Err(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) adminPhone(r *http.Request) (string, bool) {
	sess, err := s.sessions.Get(r, sessionName)
	if err != nil {
		return "", false
	}
	phone, ok := sess.Values["phone"].(string)
	return phone, ok && phone != ""
}

func (s *Server) requireAdmin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.adminPhone(r); !ok {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		h(w, r)
	}
}

// loadOwned resolves the {code} path element against the session's admin.
// A mismatched owner gets 403 rather than 404: the code is public anyway.
func (s *Server) loadOwned(w http.ResponseWriter, r *http.Request) (*model.Event, bool) {
	phone, _ := s.adminPhone(r)
	ev, err := s.mgr.LoadEvent(r.Context(), r.PathValue("code"))
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	if ev == nil {
		writeError(w, http.StatusNotFound, event.ErrEventNotFound.Error())
		return nil, false
	}
	if ev.AdminPhone != phone {
		writeError(w, http.StatusForbidden, "event belongs to another admin")
		return nil, false
	}
	return ev, true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if s.o.AdminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.o.AdminPassword)) != 1 {
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	}
	admin, err := s.mgr.Login(r.Context(), req.Name, req.Phone)
	if err != nil {
		s.fail(w, err)
		return
	}
	sess, _ := s.sessions.Get(r, sessionName)
	sess.Values["phone"] = admin.Phone
	sess.Values["name"] = admin.Name
	sess.Options.MaxAge = int(s.o.SessionMaxAge.Seconds())
	sess.Options.HttpOnly = true
	sess.Options.SameSite = http.SameSiteLaxMode
	if err := sess.Save(r, w); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.sessions.Get(r, sessionName)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	phone, _ := s.adminPhone(r)
	events, err := s.mgr.ListAdminEvents(r.Context(), phone)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	phone, _ := s.adminPhone(r)
	ev, err := s.mgr.CreateEvent(r.Context(), phone, req.Name, req.Code)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	d, err := s.mgr.AdminDashboard(r.Context(), ev.Code)
	if err != nil {
		s.fail(w, err)
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, event.ErrEventNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	if err := s.mgr.DeleteEvent(r.Context(), ev.Code); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleCodeCheck(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code parameter required")
		return
	}
	unique, err := s.mgr.IsCodeUnique(r.Context(), code)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Code   string `json:"code"`
		Unique bool   `json:"unique"`
	}{Code: code, Unique: unique})
}

type scoreRequest struct {
	TeamName string  `json:"teamName"`
	Score    float64 `json:"score"`
}

func (s *Server) handleSetScore(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if err := s.mgr.SetScore(r.Context(), ev.Code, req.TeamName, req.Score); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleSetScoreR2(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if err := s.mgr.SetScoreR2(r.Context(), ev.Code, req.TeamName, req.Score); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleDeclareWinners(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	var req struct {
		Count int `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	res, err := s.mgr.DeclareWinners(r.Context(), ev.Code, req.Count)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStartQualifier(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	var req struct {
		TopN int `json:"topN"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	res, err := s.mgr.StartQualifierRound2(r.Context(), ev.Code, req.TopN)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStartCumulative(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	res, err := s.mgr.StartCumulativeRound2(r.Context(), ev.Code)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeclareWinnersR2(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	var req struct {
		Count int `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	res, err := s.mgr.DeclareWinnersR2(r.Context(), ev.Code, req.Count)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		TeamName string `json:"teamName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	p, err := s.mgr.Join(r.Context(), r.PathValue("code"), req.Name, req.Phone, req.TeamName)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleParticipantView(w http.ResponseWriter, r *http.Request) {
	v, err := s.mgr.ParticipantView(r.Context(), r.PathValue("code"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, event.ErrEventNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	v, err := s.mgr.ParticipantView(r.Context(), r.PathValue("code"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, event.ErrEventNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Round1    []standings.Entry       `json:"round1"`
		Round2    []standings.MergedEntry `json:"round2,omitempty"`
		ResetInMs *int64                  `json:"resetInMs,omitempty"`
	}{Round1: v.Round1, Round2: v.Round2, ResetInMs: v.ResetInMs})
}
