package notify

import (
	"context"
	"errors"
	"testing"
	"translator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLocal struct {
	got []models.LocalNotification
	err error
}

func (r *recordingLocal) Notify(ctx context.Context, n models.LocalNotification) error {
	r.got = append(r.got, n)
	return r.err
}

type recordingRemote struct {
	got []models.Escalation
	err error
}

func (r *recordingRemote) Escalate(ctx context.Context, payload models.Escalation) error {
	r.got = append(r.got, payload)
	return r.err
}

func TestDispatcher_NotifyLocal(t *testing.T) {
	local := &recordingLocal{}
	d := NewDispatcher(local, nil)

	n := models.LocalNotification{Title: "t", Body: "b"}
	require.NoError(t, d.NotifyLocal(context.Background(), n))
	assert.Equal(t, []models.LocalNotification{n}, local.got)

	local.err = errors.New("inbox unavailable")
	assert.Error(t, d.NotifyLocal(context.Background(), n))
}

func TestDispatcher_NotifyRemote(t *testing.T) {
	payload := models.Escalation{UserID: "u-1", UserName: "Ana"}

	t.Run("admins", func(t *testing.T) {
		remote := &recordingRemote{}
		d := NewDispatcher(&recordingLocal{}, remote)

		require.NoError(t, d.NotifyRemote(context.Background(), models.AudienceAdmins, payload))
		assert.Equal(t, []models.Escalation{payload}, remote.got)
	})

	t.Run("other audience", func(t *testing.T) {
		remote := &recordingRemote{}
		d := NewDispatcher(&recordingLocal{}, remote)

		assert.Error(t, d.NotifyRemote(context.Background(), "everyone", payload))
		assert.Empty(t, remote.got)
	})

	t.Run("disabled", func(t *testing.T) {
		d := NewDispatcher(&recordingLocal{}, nil)
		assert.NoError(t, d.NotifyRemote(context.Background(), models.AudienceAdmins, payload))
	})

	t.Run("failure propagates", func(t *testing.T) {
		d := NewDispatcher(&recordingLocal{}, &recordingRemote{err: errors.New("502")})
		assert.Error(t, d.NotifyRemote(context.Background(), models.AudienceAdmins, payload))
	})
}
