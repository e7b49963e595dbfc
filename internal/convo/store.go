// Package convo holds per-session conversation history and compresses it
// into a token-budgeted context block for prompt assembly.
package convo

import (
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// DefaultMaxTurns bounds how many of the most recent turns are kept
// verbatim per session when no limit is configured.
const DefaultMaxTurns = 5

// SessionStore is an in-memory map of session id to conversation turns.
// Sessions are created lazily on first append. Stored history is trimmed
// to twice the verbatim turn limit so the compressor still has older
// turns to summarize into the topics prefix.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string][]models.Turn
	maxTurns int
}

// NewSessionStore returns an empty store keeping up to 2*maxTurns turns
// per session.
func NewSessionStore(maxTurns int) *SessionStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &SessionStore{
		sessions: make(map[string][]models.Turn),
		maxTurns: maxTurns,
	}
}

// Append records one completed exchange for the session, creating the
// session if it does not exist yet.
func (s *SessionStore) Append(sessionID string, turn models.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.sessions[sessionID], turn)
	if limit := 2 * s.maxTurns; len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	s.sessions[sessionID] = turns
}

// Get returns a copy of the session's history, oldest first. An unknown
// session id yields an empty slice.
func (s *SessionStore) Get(sessionID string) []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.sessions[sessionID]
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear removes the session and reports whether it existed.
func (s *SessionStore) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
