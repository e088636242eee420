package core

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/waldemarhermann/netchat/internal/proto"
)

// Session is the server-side state of one live connection. It is created on
// accept, gains a username on successful login, and dies with the connection.
// Send may be called from any goroutine: another session's message command
// pushes frames here while the owning read loop blocks on the socket.
type Session struct {
	// ID identifies the connection in logs before a username is bound.
	ID string

	writeMu sync.Mutex
	enc     *json.Encoder

	mu       sync.RWMutex
	username string
}

// NewSession wraps a connection's write side. Each encoded frame ends with a
// newline, which is the protocol's frame delimiter.
func NewSession(id string, w io.Writer) *Session {
	return &Session{
		ID:  id,
		enc: json.NewEncoder(w),
	}
}

// Send writes one frame to the peer. Safe for concurrent use.
func (s *Session) Send(msg proto.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.enc.Encode(msg)
}

// SendError sends a server error frame addressed to this session's user.
func (s *Session) SendError(text string) error {
	return s.Send(proto.Error(s.Username(), text))
}

// Username returns the authenticated username, or "" before login.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// SetUsername binds an authenticated identity to the session.
func (s *Session) SetUsername(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
}
