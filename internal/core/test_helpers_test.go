package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/waldemarhermann/netchat/internal/auth"
	"github.com/waldemarhermann/netchat/internal/proto"
	"github.com/waldemarhermann/netchat/internal/store"
	"github.com/waldemarhermann/netchat/internal/store/sqlite"
)

// frameBuffer records the frames a session writes. Safe for concurrent writes
// so broadcasts from other goroutines can land while a test runs.
type frameBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *frameBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// frames decodes everything written so far.
func (b *frameBuffer) frames(t *testing.T) []proto.Message {
	t.Helper()

	b.mu.Lock()
	data := append([]byte(nil), b.buf.Bytes()...)
	b.mu.Unlock()

	var out []proto.Message
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var msg proto.Message
		if err := dec.Decode(&msg); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		out = append(out, msg)
	}
	return out
}

// lastFrame returns the most recent frame of the given type, failing the test
// if none was written.
func (b *frameBuffer) lastFrame(t *testing.T, frameType string) proto.Message {
	t.Helper()

	frames := b.frames(t)
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Type == frameType {
			return frames[i]
		}
	}
	t.Fatalf("no %q frame recorded, got %+v", frameType, frames)
	return proto.Message{}
}

func newTestSession() (*Session, *frameBuffer) {
	buf := &frameBuffer{}
	return NewSession("test-conn", buf), buf
}

// failingWriter rejects every write, standing in for a dead peer.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

// blockingWriter stands in for a peer whose TCP send buffer is full: the
// first write parks until release is closed.
type blockingWriter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingWriter() *blockingWriter {
	return &blockingWriter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() { close(w.started) })
	<-w.release
	return len(p), nil
}

// failingMessageStore rejects every operation, standing in for a broken
// persistence layer.
type failingMessageStore struct{}

func (failingMessageStore) AddMessage(context.Context, string, string, string) error {
	return errors.New("disk full")
}

func (failingMessageStore) Conversation(context.Context, string, string) ([]store.Message, error) {
	return nil, errors.New("disk full")
}

// failingUserStore fails every query, standing in for an unreachable
// credential store.
type failingUserStore struct{}

func (failingUserStore) AddUser(context.Context, string, string, string) error {
	return errors.New("store down")
}

func (failingUserStore) UserExists(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}

func (failingUserStore) EmailExists(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}

func (failingUserStore) PasswordHash(context.Context, string) (string, error) {
	return "", errors.New("store down")
}

func (failingUserStore) ListUsernames(context.Context) ([]string, error) {
	return nil, errors.New("store down")
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *Registry) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	registry := NewRegistry()
	notifier := NewNotifier(st, registry, &logger)
	dispatcher := NewDispatcher(registry, notifier, auth.NewService(st), st, &logger)
	return dispatcher, registry
}
