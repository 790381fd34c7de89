// Package notify delivers quota notifications: a local "limit restored" notice
// for the signed-in user and a remote "limit reached" escalation that the
// backend fans out to administrators.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"translator/internal/models"
)

// LocalNotifier shows a notification to the user on this device.
type LocalNotifier interface {
	Notify(ctx context.Context, n models.LocalNotification) error
}

// RemoteSender delivers an escalation to the backend.
type RemoteSender interface {
	Escalate(ctx context.Context, payload models.Escalation) error
}

// Dispatcher routes quota notifications to the local notifier and, when
// configured, the remote sender.
type Dispatcher struct {
	local  LocalNotifier
	remote RemoteSender
}

// NewDispatcher creates a dispatcher. A nil remote disables escalations.
func NewDispatcher(local LocalNotifier, remote RemoteSender) *Dispatcher {
	return &Dispatcher{local: local, remote: remote}
}

func (d *Dispatcher) NotifyLocal(ctx context.Context, n models.LocalNotification) error {
	return d.local.Notify(ctx, n)
}

// NotifyRemote sends an escalation. Administrators are the only audience the
// backend can reach.
func (d *Dispatcher) NotifyRemote(ctx context.Context, audience string, payload models.Escalation) error {
	if audience != models.AudienceAdmins {
		return fmt.Errorf("unsupported audience: %s", audience)
	}
	if d.remote == nil {
		slog.DebugContext(ctx, "Remote notifications disabled, dropping escalation", "user_id", payload.UserID)
		return nil
	}
	return d.remote.Escalate(ctx, payload)
}
