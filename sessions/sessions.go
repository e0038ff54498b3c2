// Package sessions implements the short request/response exchanges the
// configuration wizards run on top of the inbound message stream:
// prompt the actor, then wait for their next message in the same
// channel. Each prompt consumes exactly one reply; a timeout cancels
// the operation with no mutation.
package sessions

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionActive is returned when the actor already has a pending
// prompt in that channel.
var ErrSessionActive = errors.New("sessions: a session is already active for this user and channel")

type key struct {
	userID    string
	channelID string
}

// Manager tracks pending prompts. Entries are removed when resolved,
// cancelled or timed out, so no listener outlives its exchange.
type Manager struct {
	mu      sync.Mutex
	waiting map[key]*Session
}

func NewManager() *Manager {
	return &Manager{waiting: make(map[key]*Session)}
}

// Session is one pending reply slot.
type Session struct {
	m     *Manager
	key   key
	reply chan string
}

// Expect registers a reply slot for the actor in the channel. Callers
// register before sending the prompt so an immediate reply cannot slip
// past, and must Cancel or Wait the session out.
func (m *Manager) Expect(userID, channelID string) (*Session, error) {
	k := key{userID: userID, channelID: channelID}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.waiting[k]; ok {
		return nil, ErrSessionActive
	}
	s := &Session{m: m, key: k, reply: make(chan string, 1)}
	m.waiting[k] = s
	return s, nil
}

// HandleMessage routes an inbound message to a pending session, if one
// matches the author and channel. It reports whether the message was
// consumed; consumed messages should not reach any other handler.
func (m *Manager) HandleMessage(userID, channelID, content string) bool {
	k := key{userID: userID, channelID: channelID}
	m.mu.Lock()
	s, ok := m.waiting[k]
	if ok {
		delete(m.waiting, k)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.reply <- content
	return true
}

// Wait blocks for the reply or the timeout. On timeout the session is
// removed and ok is false; the caller reports the operation cancelled.
func (s *Session) Wait(timeout time.Duration) (string, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case content := <-s.reply:
		return content, true
	case <-t.C:
		s.Cancel()
		// a reply may have raced the timer; it is discarded either way
		return "", false
	}
}

// Cancel removes the session if it is still pending.
func (s *Session) Cancel() {
	s.m.mu.Lock()
	if cur, ok := s.m.waiting[s.key]; ok && cur == s {
		delete(s.m.waiting, s.key)
	}
	s.m.mu.Unlock()
}
