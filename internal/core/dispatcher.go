package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/waldemarhermann/netchat/internal/auth"
	"github.com/waldemarhermann/netchat/internal/proto"
	"github.com/waldemarhermann/netchat/internal/store"
)

type handlerFunc func(ctx context.Context, req proto.Message, sess *Session)

// Dispatcher resolves a request's type tag to one of the fixed command
// handlers. Handlers report results by writing frames to the issuing session
// and by mutating the registry; they never close the transport themselves.
type Dispatcher struct {
	registry *Registry
	notifier *Notifier
	auth     *auth.Service
	messages store.MessageStore
	log      *zerolog.Logger

	handlers map[string]handlerFunc
}

// NewDispatcher builds the dispatcher with the closed command table.
func NewDispatcher(registry *Registry, notifier *Notifier, authSvc *auth.Service, messages store.MessageStore, logger *zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		notifier: notifier,
		auth:     authSvc,
		messages: messages,
		log:      logger,
	}
	d.handlers = map[string]handlerFunc{
		proto.TypeRegister:       d.handleRegister,
		proto.TypeLogin:          d.handleLogin,
		proto.TypeMessage:        d.handleMessage,
		proto.TypeHistoryRequest: d.handleHistory,
		proto.TypeExit:           d.handleExit,
	}
	return d
}

// Dispatch routes one request to its command handler. Unrecognized types get a
// single error frame; the connection stays up.
func (d *Dispatcher) Dispatch(ctx context.Context, req proto.Message, sess *Session) {
	handler, ok := d.handlers[req.Type]
	if !ok {
		_ = sess.SendError("unknown command: " + req.Type)
		return
	}
	handler(ctx, req, sess)
}

// handleRegister creates an account. It does not authenticate the connection;
// the client follows up with a login.
func (d *Dispatcher) handleRegister(ctx context.Context, req proto.Message, sess *Session) {
	email, password, err := proto.SplitRegisterPayload(req.Text)
	if err != nil {
		_ = sess.SendError("malformed registration payload")
		return
	}

	if err := d.auth.Register(ctx, req.From, email, password); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUsername),
			errors.Is(err, store.ErrDuplicateEmail),
			errors.Is(err, auth.ErrInvalidRegistration):
			_ = sess.SendError(err.Error())
		default:
			d.log.Error().Err(err).Str("user", req.From).Msg("registration failed")
			_ = sess.SendError("registration failed")
		}
		return
	}

	d.log.Info().Str("user", req.From).Msg("user registered")
	_ = sess.Send(proto.Info(req.From, "registration succeeded"))
}

// handleLogin verifies credentials and binds the username to this session.
// The registry insert is the atomic check-then-act that keeps the
// one-session-per-username invariant under concurrent logins.
func (d *Dispatcher) handleLogin(ctx context.Context, req proto.Message, sess *Session) {
	username := req.From

	if err := d.auth.Login(ctx, username, req.Text); err != nil {
		switch {
		case errors.Is(err, auth.ErrUnknownUser), errors.Is(err, auth.ErrBadCredential):
			_ = sess.SendError(err.Error())
		default:
			d.log.Error().Err(err).Str("user", username).Msg("login failed")
			_ = sess.SendError("login failed")
		}
		return
	}

	if !d.registry.Add(username, sess) {
		_ = sess.SendError("user already logged in")
		return
	}
	sess.SetUsername(username)

	d.log.Info().Str("user", username).Str("conn_id", sess.ID).Msg("user logged in")
	_ = sess.Send(proto.Info(username, "login succeeded"))
	d.notifier.BroadcastUserList(ctx)
}

// handleMessage persists the message, then best-effort pushes it to the
// recipient's live session. Durability precedes delivery; the sender is always
// acked, whether or not the recipient was online.
func (d *Dispatcher) handleMessage(ctx context.Context, req proto.Message, sess *Session) {
	if err := d.messages.AddMessage(ctx, req.From, req.To, req.Text); err != nil {
		// Preserved behavior: routing proceeds even when persistence failed.
		d.log.Error().Err(err).Str("from", req.From).Str("to", req.To).Msg("persist message")
	}

	if recipient, online := d.registry.Lookup(req.To); online {
		_ = recipient.Send(proto.Message{
			Type: proto.TypeMessage,
			From: req.From,
			To:   req.To,
			Text: req.Text,
		})
	}

	_ = sess.Send(proto.Info(req.From, "message sent"))
}

// handleHistory replies with the full conversation between the requester and
// the named partner, oldest first, addressed to the requester only.
func (d *Dispatcher) handleHistory(ctx context.Context, req proto.Message, sess *Session) {
	msgs, err := d.messages.Conversation(ctx, req.From, req.To)
	if err != nil {
		d.log.Error().Err(err).Str("from", req.From).Str("to", req.To).Msg("load conversation")
		_ = sess.SendError("history unavailable")
		return
	}

	entries := make([]string, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, m.Sender+": "+m.Text)
	}

	_ = sess.Send(proto.Message{
		Type: proto.TypeHistoryResponse,
		From: proto.ServerName,
		To:   req.From,
		Text: proto.JoinHistory(entries),
	})
}

// handleExit logs the user out: registry removal, a final ack, and the
// snapshot broadcast. The transport stays open so the read loop can observe
// end-of-stream; physical closure belongs to the connection handler's
// teardown.
func (d *Dispatcher) handleExit(ctx context.Context, req proto.Message, sess *Session) {
	d.registry.Remove(sess)
	_ = sess.Send(proto.Info(req.From, "connection closing"))
	d.notifier.BroadcastUserList(ctx)
}
