package tcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"

	"github.com/rs/zerolog"

	"github.com/waldemarhermann/netchat/internal/core"
	"github.com/waldemarhermann/netchat/internal/proto"
	"github.com/waldemarhermann/netchat/internal/utils"
)

// maxFrameSize bounds a single protocol line.
const maxFrameSize = 1 << 20

// Server accepts TCP connections and runs one connection handler goroutine per
// peer. It does no application logic itself; frames go to the dispatcher.
type Server struct {
	addr       string
	dispatcher *core.Dispatcher
	registry   *core.Registry
	notifier   *core.Notifier
	log        *zerolog.Logger

	listener net.Listener
}

// NewServer builds a server listening on addr once Listen is called.
func NewServer(addr string, dispatcher *core.Dispatcher, registry *core.Registry, notifier *core.Notifier, logger *zerolog.Logger) *Server {
	return &Server{
		addr:       addr,
		dispatcher: dispatcher,
		registry:   registry,
		notifier:   notifier,
		log:        logger,
	}
}

// Listen binds the port. A bind failure is fatal to startup.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return nil
}

// Addr returns the bound address. Only valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve runs the accept loop until the context is canceled or the listener
// fails. Per-connection errors never stop the loop.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn owns one connection's lifecycle: welcome, read loop, teardown.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	sess := core.NewSession(utils.NewID(), conn)
	s.log.Info().Str("conn_id", sess.ID).Str("remote", conn.RemoteAddr().String()).Msg("client connected")

	// Teardown runs exactly once, however the read loop exits: drop the
	// session from the registry, close the socket, tell the survivors.
	defer func() {
		s.registry.Remove(sess)
		_ = conn.Close()
		s.notifier.BroadcastUserList(ctx)
		s.log.Info().Str("conn_id", sess.ID).Str("user", sess.Username()).Msg("client disconnected")
	}()

	_ = sess.Send(proto.Info("", "welcome to netchat"))

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req proto.Message
		if err := json.Unmarshal(line, &req); err != nil || req.Type == "" {
			_ = sess.SendError("invalid message format")
			continue
		}

		s.dispatcher.Dispatch(ctx, req, sess)
	}

	if err := scanner.Err(); err != nil {
		s.log.Warn().Err(err).Str("conn_id", sess.ID).Str("user", sess.Username()).Msg("read loop ended")
	}
}
