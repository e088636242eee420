package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/waldemarhermann/netchat/internal/store"
)

// Notifier pushes the userlist snapshot to every live session after a
// registry membership change (login success, exit, teardown).
type Notifier struct {
	users    store.UserStore
	registry *Registry
	log      *zerolog.Logger
}

// NewNotifier creates a notifier over the given user store and registry.
func NewNotifier(users store.UserStore, registry *Registry, logger *zerolog.Logger) *Notifier {
	return &Notifier{users: users, registry: registry, log: logger}
}

// BroadcastUserList fetches all registered usernames and broadcasts the
// combined snapshot. A store failure degrades to an empty all-users list
// rather than suppressing the membership update.
func (n *Notifier) BroadcastUserList(ctx context.Context) {
	allUsers, err := n.users.ListUsernames(ctx)
	if err != nil {
		n.log.Error().Err(err).Msg("list registered users for snapshot")
		allUsers = nil
	}
	n.registry.BroadcastSnapshot(allUsers)
}
