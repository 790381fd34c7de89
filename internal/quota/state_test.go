package quota

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateWindowArithmetic(t *testing.T) {
	s := newWindow(epoch, testWindow)

	assert.Equal(t, epoch.Add(testWindow), s.ResetAt)
	assert.False(t, s.stale(epoch))
	assert.False(t, s.stale(epoch.Add(testWindow-time.Nanosecond)))
	assert.True(t, s.stale(epoch.Add(testWindow)), "the reset instant belongs to the next window")

	s.UsedCount = 9
	assert.Equal(t, 0, s.remaining(7))
	assert.True(t, s.exhausted(7))

	s.UsedCount = 6
	assert.Equal(t, 1, s.remaining(7))
	assert.False(t, s.exhausted(7))
}

func TestEncodeState_Layout(t *testing.T) {
	raw, err := encodeState(State{
		UsedCount:       3,
		WindowStartedAt: epoch,
		ResetAt:         epoch.Add(testWindow),
		EscalationSent:  true,
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	assert.Equal(t, "1.0.0", fields["schema"])
	assert.Equal(t, float64(3), fields["used_count"])
	assert.Equal(t, "2026-03-01T12:00:00Z", fields["window_started_at"])
	assert.Equal(t, "2026-03-01T12:00:30Z", fields["reset_at"])
	assert.Equal(t, true, fields["escalation_sent"])
}

func TestDecodeState(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    State
		wantErr bool
	}{
		{
			name: "current schema",
			raw:  `{"schema":"1.0.0","used_count":4,"window_started_at":"2026-03-01T12:00:00Z","reset_at":"2026-03-01T12:00:30Z","escalation_sent":false}`,
			want: State{UsedCount: 4, WindowStartedAt: epoch, ResetAt: epoch.Add(testWindow)},
		},
		{
			name: "compatible minor schema",
			raw:  `{"schema":"1.4.0","used_count":7,"window_started_at":"2026-03-01T12:00:00Z","escalation_sent":true}`,
			want: State{UsedCount: 7, WindowStartedAt: epoch, ResetAt: epoch.Add(testWindow), EscalationSent: true},
		},
		{
			name: "drifted reset time is recomputed",
			raw:  `{"schema":"1.0.0","used_count":1,"window_started_at":"2026-03-01T12:00:00Z","reset_at":"2026-03-02T00:00:00Z"}`,
			want: State{UsedCount: 1, WindowStartedAt: epoch, ResetAt: epoch.Add(testWindow)},
		},
		{name: "not json", raw: `{garbage`, wantErr: true},
		{name: "missing schema", raw: `{"used_count":1,"window_started_at":"2026-03-01T12:00:00Z"}`, wantErr: true},
		{name: "incompatible schema", raw: `{"schema":"2.0.0","used_count":1,"window_started_at":"2026-03-01T12:00:00Z"}`, wantErr: true},
		{name: "negative count", raw: `{"schema":"1.0.0","used_count":-1,"window_started_at":"2026-03-01T12:00:00Z"}`, wantErr: true},
		{name: "missing window start", raw: `{"schema":"1.0.0","used_count":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeState(tt.raw, testWindow)
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidRecord)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeState_RoundTripAcrossWindowChange(t *testing.T) {
	raw, err := encodeState(newWindow(epoch, testWindow))
	require.NoError(t, err)

	got, err := decodeState(raw, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Minute), got.ResetAt)
}
