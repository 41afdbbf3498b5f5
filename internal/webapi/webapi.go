// Package webapi is the JSON surface of the server: admin login and event
// control under /api/admin, participant join and leaderboard polling under
// /api/events. Unlike the legacy sheet proxy protocol it uses conventional
// HTTP status codes.
package webapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"eventleader/internal/event"
)

type Options struct {
	// AdminPassword is the shared secret gating admin login.
	AdminPassword string `toml:"admin-password"`

	// SessionMaxAge bounds the admin cookie lifetime.
	SessionMaxAge time.Duration `toml:"session-max-age"`

	// JoinRateInterval and JoinRateBurst shape the per-IP limit on join and
	// score posts.
	JoinRateInterval time.Duration `toml:"join-rate-interval"`
	JoinRateBurst    int           `toml:"join-rate-burst"`
}

func (o *Options) FillDefaults() {
	if o.SessionMaxAge == 0 {
		o.SessionMaxAge = 24 * time.Hour
	}
	if o.JoinRateInterval == 0 {
		o.JoinRateInterval = time.Second
	}
	if o.JoinRateBurst == 0 {
		o.JoinRateBurst = 5
	}
}

const sessionName = "eventleader-admin"

type Server struct {
	o        Options
	log      *slog.Logger
	mgr      *event.Manager
	sessions sessions.Store
	limiter  *ipLimiter
}

// New wires the API onto mux. The session store comes from the caller: a
// gormstore on the embedded backend, a plain cookie store on the remote one.
func New(log *slog.Logger, mux *http.ServeMux, mgr *event.Manager, st sessions.Store, o Options) *Server {
	o.FillDefaults()
	s := &Server{
		o:        o,
		log:      log,
		mgr:      mgr,
		sessions: st,
		limiter:  newIPLimiter(o.JoinRateInterval, o.JoinRateBurst),
	}
	s.register(mux)
	return s
}

func (s *Server) register(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.Handler { return s.wrap(s.requireAdmin(h)) }
	open := func(h http.HandlerFunc) http.Handler { return s.wrap(h) }
	limited := func(h http.HandlerFunc) http.Handler { return s.wrap(s.rateLimit(h)) }

	mux.Handle("POST /api/admin/login", open(s.handleLogin))
	mux.Handle("POST /api/admin/logout", open(s.handleLogout))
	mux.Handle("GET /api/admin/events", admin(s.handleListEvents))
	mux.Handle("POST /api/admin/events", admin(s.handleCreateEvent))
	mux.Handle("GET /api/admin/events/{code}", admin(s.handleDashboard))
	mux.Handle("DELETE /api/admin/events/{code}", admin(s.handleDeleteEvent))
	mux.Handle("GET /api/admin/code-check", admin(s.handleCodeCheck))
	mux.Handle("POST /api/admin/events/{code}/scores", admin(s.handleSetScore))
	mux.Handle("POST /api/admin/events/{code}/scores2", admin(s.handleSetScoreR2))
	mux.Handle("POST /api/admin/events/{code}/winners", admin(s.handleDeclareWinners))
	mux.Handle("POST /api/admin/events/{code}/round2/qualifier", admin(s.handleStartQualifier))
	mux.Handle("POST /api/admin/events/{code}/round2/cumulative", admin(s.handleStartCumulative))
	mux.Handle("POST /api/admin/events/{code}/round2/winners", admin(s.handleDeclareWinnersR2))

	mux.Handle("POST /api/events/{code}/join", limited(s.handleJoin))
	mux.Handle("GET /api/events/{code}", open(s.handleParticipantView))
	mux.Handle("GET /api/events/{code}/leaderboard", open(s.handleLeaderboard))

	// Join deep link, the target of printed QR codes.
	mux.Handle("GET /join/{code}", open(s.handleJoinLink))
}

func (s *Server) handleJoinLink(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/?join="+r.PathValue("code"), http.StatusFound)
}
