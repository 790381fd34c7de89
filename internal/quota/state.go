package quota

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// State is the usage record for the current window. It is replaced wholesale
// on every rollover; only UsedCount and EscalationSent change within a window.
type State struct {
	UsedCount       int
	WindowStartedAt time.Time
	ResetAt         time.Time
	EscalationSent  bool
}

func newWindow(now time.Time, window time.Duration) State {
	return State{
		WindowStartedAt: now,
		ResetAt:         now.Add(window),
	}
}

// stale reports whether the window has expired at now.
func (s State) stale(now time.Time) bool {
	return !now.Before(s.ResetAt)
}

func (s State) remaining(limit int) int {
	return max(0, limit-s.UsedCount)
}

func (s State) exhausted(limit int) bool {
	return s.UsedCount >= limit
}

// recordSchema is written with every persisted record. Readers accept any
// record whose schema satisfies schemaConstraint.
const recordSchema = "1.0.0"

var schemaConstraint = mustConstraint("^1")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

type record struct {
	Schema          string    `json:"schema"`
	UsedCount       int       `json:"used_count"`
	WindowStartedAt time.Time `json:"window_started_at"`
	ResetAt         time.Time `json:"reset_at"`
	EscalationSent  bool      `json:"escalation_sent"`
}

var errInvalidRecord = errors.New("invalid quota record")

func encodeState(s State) (string, error) {
	data, err := json.Marshal(record{
		Schema:          recordSchema,
		UsedCount:       s.UsedCount,
		WindowStartedAt: s.WindowStartedAt.UTC(),
		ResetAt:         s.ResetAt.UTC(),
		EscalationSent:  s.EscalationSent,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode quota state: %w", err)
	}
	return string(data), nil
}

// decodeState parses a persisted record. ResetAt is always recomputed from
// WindowStartedAt so a stored value can never drift from the window length.
func decodeState(raw string, window time.Duration) (State, error) {
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return State{}, fmt.Errorf("%w: %v", errInvalidRecord, err)
	}

	version, err := semver.NewVersion(rec.Schema)
	if err != nil {
		return State{}, fmt.Errorf("%w: schema %q: %v", errInvalidRecord, rec.Schema, err)
	}
	if !schemaConstraint.Check(version) {
		return State{}, fmt.Errorf("%w: unsupported schema %s", errInvalidRecord, version)
	}

	if rec.UsedCount < 0 {
		return State{}, fmt.Errorf("%w: negative used count %d", errInvalidRecord, rec.UsedCount)
	}
	if rec.WindowStartedAt.IsZero() {
		return State{}, fmt.Errorf("%w: missing window start", errInvalidRecord)
	}

	return State{
		UsedCount:       rec.UsedCount,
		WindowStartedAt: rec.WindowStartedAt,
		ResetAt:         rec.WindowStartedAt.Add(window),
		EscalationSent:  rec.EscalationSent,
	}, nil
}
