package core

import (
	"sort"
	"sync"

	"github.com/waldemarhermann/netchat/internal/proto"
)

// Registry is the shared table of live authenticated sessions, keyed by
// username. A single mutex serializes every read-for-a-decision and every
// mutation so that "is this user online" and "add this user" form one atomic
// step.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under a username. Returns false if the username
// already has a live session; at most one session per username may exist.
func (r *Registry) Add(username string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, online := r.sessions[username]; online {
		return false
	}
	r.sessions[username] = s
	return true
}

// Remove drops the session from the registry. Removal matches on session
// identity: a stale entry from a newer login under the same name is left
// untouched. Returns true if an entry was removed.
func (r *Registry) Remove(s *Session) bool {
	username := s.Username()
	if username == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[username]; ok && current == s {
		delete(r.sessions, username)
		return true
	}
	return false
}

// Lookup returns the live session for a username, if any.
func (r *Registry) Lookup(username string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[username]
	return s, ok
}

// IsOnline reports whether a username has a live session.
func (r *Registry) IsOnline(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[username]
	return ok
}

// OnlineUsernames returns the current membership, sorted.
func (r *Registry) OnlineUsernames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onlineLocked()
}

func (r *Registry) onlineLocked() []string {
	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Broadcast sends a frame to every live session. A failed send to one peer
// does not abort delivery to the others, and delivery happens outside the
// registry lock so a slow peer only stalls its own frames.
func (r *Registry) Broadcast(msg proto.Message) {
	for _, s := range r.liveSessions() {
		_ = s.Send(msg)
	}
}

// BroadcastSnapshot builds the combined userlist payload from the given
// all-users list plus the current membership and delivers it to every live
// session. The payload and target set are captured under one lock, so no
// concurrent add or remove can tear the online sublist; the sends themselves
// run unlocked and never block registry mutation.
func (r *Registry) BroadcastSnapshot(allUsers []string) {
	r.mu.Lock()
	msg := proto.Message{
		Type: proto.TypeUserList,
		From: proto.ServerName,
		Text: proto.UserListPayload(allUsers, r.onlineLocked()),
	}
	targets := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		targets = append(targets, s)
	}
	r.mu.Unlock()

	for _, s := range targets {
		_ = s.Send(msg)
	}
}

func (r *Registry) liveSessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
