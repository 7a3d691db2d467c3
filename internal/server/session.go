package server

import (
	"context"
	"sync"
	"time"

	"github.com/evalify/evalify-sub003/internal/importer"
	"github.com/evalify/evalify-sub003/internal/report"
)

// Session is a validated import waiting for confirmation.
type Session struct {
	Import  *importer.Import
	Report  *report.Report
	expires time.Time
}

// Sessions holds validated imports until they are committed, abandoned or
// expire. Dropping a session has no side effects.
type Sessions struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]*Session
}

// NewSessions creates an empty store whose entries live for ttl.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{ttl: ttl, now: time.Now, items: make(map[string]*Session)}
}

// Put stores a validated import under its id.
func (s *Sessions) Put(imp *importer.Import, rep *report.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[imp.ID] = &Session{Import: imp, Report: rep, expires: s.now().Add(s.ttl)}
}

// Get returns the live session for id.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if !s.now().Before(sess.expires) {
		delete(s.items, id)
		return nil, false
	}
	return sess, true
}

// Delete drops the session for id and reports whether it existed.
func (s *Sessions) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	delete(s.items, id)
	return ok
}

// Len returns the number of stored sessions, expired ones included.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep drops every expired session and returns how many were dropped.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.items {
		if !now.Before(sess.expires) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
