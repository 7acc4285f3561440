// Package server tracks live chat sessions in a registry keyed by connection
// id, enforcing nickname uniqueness and answering room membership queries.
package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultRoom is the room every session starts in and the room an empty
// /join argument resolves to.
const DefaultRoom = "general"

var (
	// ErrNameTaken indicates a rename collision with another live session.
	ErrNameTaken = errors.New("nickname already taken")
	// ErrNameEmpty indicates a rename to an empty or all-whitespace nickname.
	ErrNameEmpty = errors.New("nickname is empty")
)

// registry is the session table. It is owned exclusively by the hub goroutine:
// every read and mutation happens on that goroutine, so the registry itself
// needs no locking. Callers outside the hub must go through hub events.
type registry struct {
	sessions map[string]*Session // connection id -> session
	guestSeq int                 // monotonic, never reused
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[string]*Session),
	}
}

// register inserts a session, assigning the next guest nickname and the
// default room. The guest counter only ever advances, even across disconnects.
func (r *registry) register(s *Session) {
	s.nickname = fmt.Sprintf("guest%d", r.guestSeq)
	r.guestSeq++
	s.room = DefaultRoom
	r.sessions[s.id] = s
}

// rename changes the session's nickname after validating it. Comparison is
// case-insensitive against every other live session; the stored nickname keeps
// the caller's casing (trimmed). On failure the session is left unchanged.
func (r *registry) rename(s *Session, newName string) error {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return ErrNameEmpty
	}

	normalized := strings.ToLower(trimmed)
	for _, other := range r.sessions {
		if other != s && strings.ToLower(other.nickname) == normalized {
			return ErrNameTaken
		}
	}

	s.nickname = trimmed
	return nil
}

// remove deletes the session's entry and reports whether it was present.
// Removing an absent session is a no-op, so callers can reap the same session
// from several code paths without duplicate departure announcements.
func (r *registry) remove(s *Session) bool {
	if _, ok := r.sessions[s.id]; !ok {
		return false
	}
	delete(r.sessions, s.id)
	return true
}

// findByNickname returns the live session with the given nickname,
// case-insensitively, or nil if none matches.
func (r *registry) findByNickname(name string) *Session {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, s := range r.sessions {
		if strings.ToLower(s.nickname) == normalized {
			return s
		}
	}
	return nil
}

// snapshot returns a point-in-time copy of all live sessions so the caller can
// iterate while the registry is mutated (removing a faulty session mid-broadcast).
func (r *registry) snapshot() []*Session {
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// roomSnapshot returns the sessions currently in the given room.
func (r *registry) roomSnapshot(room string) []*Session {
	var sessions []*Session
	for _, s := range r.sessions {
		if s.room == room {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

// nicknames returns every live nickname, sorted for stable listing output.
func (r *registry) nicknames() []string {
	names := make([]string, 0, len(r.sessions))
	for _, s := range r.sessions {
		names = append(names, s.nickname)
	}
	sort.Strings(names)
	return names
}

// roomNicknames returns the nicknames of the sessions in one room, sorted.
func (r *registry) roomNicknames(room string) []string {
	var names []string
	for _, s := range r.sessions {
		if s.room == room {
			names = append(names, s.nickname)
		}
	}
	sort.Strings(names)
	return names
}

// roomNames returns the distinct room names across all live sessions, sorted.
func (r *registry) roomNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, s := range r.sessions {
		if _, ok := seen[s.room]; ok {
			continue
		}
		seen[s.room] = struct{}{}
		names = append(names, s.room)
	}
	sort.Strings(names)
	return names
}

func (r *registry) count() int {
	return len(r.sessions)
}
