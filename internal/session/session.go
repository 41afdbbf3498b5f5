// Package session runs the background pollers of a client session: periodic
// leaderboard refreshes and the expiry sweep. Close stops every goroutine and
// waits for them, so a closed session leaves nothing running.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"eventleader/internal/util/slogx"
)

type Session struct {
	log    *slog.Logger
	gctx   context.Context
	cancel func()
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func New(log *slog.Logger) *Session {
	gctx, cancel := context.WithCancel(context.Background())
	return &Session{
		log:    log,
		gctx:   gctx,
		cancel: cancel,
	}
}

// Go starts a poller that calls fn every interval until the session closes.
// fn runs once immediately. A failing fn is logged and retried on the next
// tick, it never stops the poller.
func (s *Session) Go(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log := s.log.With(slog.String("poller", name))
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := fn(s.gctx); err != nil && s.gctx.Err() == nil {
				log.Warn("poll failed", slogx.Err(err))
			}
			select {
			case <-ticker.C:
			case <-s.gctx.Done():
				return
			}
		}
	}()
}

// Close cancels all pollers and waits until every one has returned. It is
// idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}
