// Package session keeps short-lived per-session conversation history in
// memory. Sessions are a continuity optimization: they expire on idle and do
// not survive restarts.
package session

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

// Speaker tags one side of a turn.
const (
	SpeakerUser      = "user"
	SpeakerAssistant = "assistant"
)

// Turn is one utterance in a session's history.
type Turn struct {
	Speaker string
	Text    string
}

// Line renders a turn the way the orchestrator prompt expects it.
func (t Turn) Line() string {
	if t.Speaker == SpeakerAssistant {
		return "Assistant: " + t.Text
	}
	return "User: " + t.Text
}

type state struct {
	turns      []Turn
	lastAccess time.Time
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*state
}

// Store is a lock-striped session table with idle-time expiry. The clock is
// injected so expiry is deterministic under test. Shards keep unrelated
// sessions from contending and let the sweep lock one stripe at a time.
type Store struct {
	shards [shardCount]*shard
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a store with the given idle TTL. A nil clock defaults to
// time.Now.
func NewStore(ttl time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{ttl: ttl, now: now}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*state)}
	}
	return s
}

func (s *Store) shardFor(id string) *shard {
	return s.shards[xxhash.Sum64String(id)%shardCount]
}

// History returns a snapshot of the session's turns, creating an empty
// session on first use and refreshing its last-access time.
func (s *Store) History(id string) []Turn {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sessions[id]
	if !ok {
		st = &state{}
		sh.sessions[id] = st
	}
	st.lastAccess = s.now()

	out := make([]Turn, len(st.turns))
	copy(out, st.turns)
	return out
}

// Touch refreshes the session's last-access time, creating it if absent.
func (s *Store) Touch(id string) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sessions[id]
	if !ok {
		st = &state{}
		sh.sessions[id] = st
	}
	st.lastAccess = s.now()
}

// Append adds a turn to the session's history, creating the session if
// needed. Appends for a given session are serialized by the shard lock so
// overlapping requests cannot interleave turn ordering.
func (s *Store) Append(id, speaker, text string) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sessions[id]
	if !ok {
		st = &state{}
		sh.sessions[id] = st
	}
	st.turns = append(st.turns, Turn{Speaker: speaker, Text: text})
	st.lastAccess = s.now()
}

// SweepExpired removes every session idle longer than the TTL. It locks one
// shard at a time so unrelated sessions stay readable during the sweep.
func (s *Store) SweepExpired() {
	cutoff := s.now().Add(-s.ttl)
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, st := range sh.sessions {
			if st.lastAccess.Before(cutoff) {
				delete(sh.sessions, id)
			}
		}
		sh.mu.Unlock()
	}
}

// Contains reports whether the session currently exists, without creating it.
func (s *Store) Contains(id string) bool {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	_, ok := sh.sessions[id]
	return ok
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
